package main

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/gridcap-etl/internal/adapter/kml"
	"github.com/couchcryptid/gridcap-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

var (
	kmlInput     string
	kmlOutput    string
	kmlCols      domain.CoordinateColumns
	kmlDescribe  []string
	kmlRoute     routeOptions
	kmlCountry   string
	kmlLongitude string
)

// routeLineColors cycles through the per-route line colours (aabbggrr).
var routeLineColors = []string{"ff00ffff", "ff0000ff", "ff00ff00", "ffff00ff", "ffff0000", "ff00a5ff"}

// routeOptions selects how located points are joined into lines. Column
// groups rows into one line per distinct value; Name draws a single line
// through every point.
type routeOptions struct {
	Name   string
	Column string
}

var kmlCmd = &cobra.Command{
	Use:   "kml",
	Short: "Convert a workbook of named locations to KML or KMZ",
	Long: `Read the first sheet of a workbook and write one placemark per row whose
coordinates can be resolved. Coordinates may be decimal or DMS, a UTM
easting/northing pair, or geocoded from the name when Mapbox is enabled.
The output format follows the --output extension (.kml or .kmz).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := xlsx.NewStore(logger).Read(kmlInput)
		if err != nil {
			return err
		}
		if !t.HasColumn(kmlCols.Name) {
			return fmt.Errorf("%w: %s (available: %s)", domain.ErrColumnNotFound, kmlCols.Name, strings.Join(t.Columns, ", "))
		}

		if kmlRoute.Column != "" && !t.HasColumn(kmlRoute.Column) {
			return fmt.Errorf("%w: %s (available: %s)", domain.ErrColumnNotFound, kmlRoute.Column, strings.Join(t.Columns, ", "))
		}
		conv, err := kmlSignConvention(kmlLongitude, cmd.Flags().Changed("longitude-default"))
		if err != nil {
			return err
		}

		located := domain.LocateRows(cmd.Context(), t, kmlCols, conv, newGeocoder(kmlCountry), logger)
		doc := buildKML(documentName(kmlOutput), t, located, kmlCols.Name, kmlDescribe, kmlRoute)
		skipped := t.Len() - countLocated(located)
		if skipped > 0 {
			logger.Warn("rows without usable coordinates skipped", "count", skipped)
		}

		if strings.EqualFold(filepath.Ext(kmlOutput), ".kmz") {
			if _, err := kml.WriteKMZ(kmlOutput, doc); err != nil {
				return err
			}
		} else if err := kml.WriteKML(kmlOutput, doc); err != nil {
			return err
		}
		metrics.PlacemarksWritten.Add(float64(doc.Len()))
		pushMetrics(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d placemarks to %s\n", doc.Len(), kmlOutput)
		return nil
	},
}

// kmlSignConvention picks how unsigned longitudes are read. The flag wins
// when given; GRIDCAP_LONGITUDE_DEFAULT applies only when explicitly set.
// Otherwise longitudes are taken as written, since the workbooks converted
// here are not limited to the western hemisphere.
func kmlSignConvention(flag string, flagSet bool) (domain.SignConvention, error) {
	if flagSet {
		return domain.ParseSignConvention(flag)
	}
	if os.Getenv("GRIDCAP_LONGITUDE_DEFAULT") != "" {
		return cfg.LongitudeDefault, nil
	}
	return domain.AsWritten, nil
}

// buildKML turns located rows into point placemarks, then adds the route
// lines selected by route.
func buildKML(name string, t *domain.Table, located []domain.Located, nameCol string, describe []string, route routeOptions) *kml.Document {
	doc := kml.NewDocument(name)
	var path []domain.Geo
	var groups []string
	byGroup := map[string][]domain.Geo{}
	for i, loc := range located {
		if !loc.OK() {
			continue
		}
		r := t.Rows[i]
		doc.AddPoint(domain.FormatValue(r[nameCol]), "", describeRow(r, describe), loc.Geo)
		path = append(path, loc.Geo)

		if route.Column == "" || domain.IsNull(r[route.Column]) {
			continue
		}
		g := strings.TrimSpace(domain.FormatValue(r[route.Column]))
		if _, seen := byGroup[g]; !seen {
			groups = append(groups, g)
		}
		byGroup[g] = append(byGroup[g], loc.Geo)
	}

	switch {
	case route.Column != "":
		for i, g := range groups {
			id := fmt.Sprintf("route-%d", i+1)
			doc.AddStyle(kml.Style{ID: id, LineColor: routeLineColors[i%len(routeLineColors)], LineWidth: 3})
			doc.AddLine(g, id, "", byGroup[g])
		}
	case route.Name != "":
		doc.AddStyle(kml.Style{ID: "route", LineColor: "ff0000ff", LineWidth: 3})
		doc.AddLine(route.Name, "route", "", path)
	}
	return doc
}

// describeRow renders the listed columns as an HTML snippet. Blank values
// read "Unknown".
func describeRow(r domain.Record, cols []string) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		v := domain.FormatValue(r[c])
		if domain.IsNull(r[c]) {
			v = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("<b>%s:</b> %s", html.EscapeString(c), html.EscapeString(v)))
	}
	return strings.Join(parts, "<br/>")
}

func countLocated(located []domain.Located) int {
	n := 0
	for _, l := range located {
		if l.OK() {
			n++
		}
	}
	return n
}

func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func init() {
	rootCmd.AddCommand(kmlCmd)
	f := kmlCmd.Flags()
	f.StringVar(&kmlInput, "input", "", "workbook to convert (required)")
	f.StringVar(&kmlOutput, "output", "output.kml", "output path ending in .kml or .kmz")
	f.StringVar(&kmlCols.Name, "name-col", "Project Name", "column holding the placemark name")
	f.StringVar(&kmlCols.Latitude, "lat-col", "Latitude", "latitude column")
	f.StringVar(&kmlCols.Longitude, "lon-col", "Longitude", "longitude column")
	f.StringVar(&kmlCols.Easting, "easting-col", "", "UTM easting column, used when latitude/longitude are missing")
	f.StringVar(&kmlCols.Northing, "northing-col", "", "UTM northing column")
	f.IntVar(&kmlCols.UTMZone, "utm-zone", 30, "UTM zone of the easting/northing columns")
	f.StringVar(&kmlCols.Municipality, "municipality-col", "", "municipality column, used to disambiguate geocoding")
	f.StringVar(&kmlCols.District, "district-col", "", "district column, used to disambiguate geocoding")
	f.StringSliceVar(&kmlDescribe, "describe", []string{"Capacity (MW)", "Status", "Owner", "Location accuracy"}, "columns shown in each placemark description")
	f.StringVar(&kmlRoute.Name, "route-name", "", "also draw a line named this through the points in row order")
	f.StringVar(&kmlRoute.Column, "route-col", "", "draw one line per distinct value of this column, in row order; overrides --route-name")
	f.StringVar(&kmlCountry, "mapbox-country", "", "ISO country filter for geocoding")
	f.StringVar(&kmlLongitude, "longitude-default", "as-written", "how unsigned longitudes are read: as-written or west")
	_ = kmlCmd.MarkFlagRequired("input")
}
