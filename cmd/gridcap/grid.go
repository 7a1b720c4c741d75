package main

import (
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/gridcap-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/gridcap-etl/internal/adapter/kml"
	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

var (
	gridLayers     []string
	gridOutput     string
	gridNameFields []string
	gridDescribe   []string
	gridVoltage    []string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Convert GeoJSON grid layers to KML or KMZ",
	Long: `Load one or more GeoJSON layers, from ArcGIS FeatureServer query URLs or
local files, and write their points, lines and polygons to a single KML or KMZ.
Each --layer is "Title=source". The voltage property is detected per layer by
name and shown in every description next to the --describe properties.

Example:
  gridcap grid \
    --layer "Projects=https://services5.arcgis.com/.../Projects_Upload/FeatureServer/0/query" \
    --layer "Transmission Lines=lines.geojson" --output canada_grid.kmz`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, err := parseLayers(gridLayers)
		if err != nil {
			return err
		}
		client := arcgis.NewClient(cfg.HTTPTimeout, logger)

		layers := make([]gridLayer, 0, len(specs))
		for _, s := range specs {
			fc, err := client.Fetch(cmd.Context(), s.Source)
			if err != nil {
				return err
			}
			s.Features = fc
			s.Voltage = arcgis.DetectProperty(fc, gridVoltage...)
			logger.Info("layer loaded", "layer", s.Title, "features", len(fc.Features), "voltage_field", s.Voltage)
			metrics.RecordsFetched.Add(float64(len(fc.Features)))
			layers = append(layers, s)
		}

		doc, skipped := buildGridKML(documentName(gridOutput), layers, gridNameFields, gridDescribe)
		if skipped > 0 {
			logger.Warn("features without supported geometry skipped", "count", skipped)
		}
		if strings.EqualFold(filepath.Ext(gridOutput), ".kmz") {
			if _, err := kml.WriteKMZ(gridOutput, doc); err != nil {
				return err
			}
		} else if err := kml.WriteKML(gridOutput, doc); err != nil {
			return err
		}
		metrics.PlacemarksWritten.Add(float64(doc.Len()))
		pushMetrics(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d placemarks from %d layers to %s\n", doc.Len(), len(layers), gridOutput)
		return nil
	},
}

// gridLayer is one loaded GeoJSON layer.
type gridLayer struct {
	Title    string
	Source   string
	Voltage  string // detected voltage property, may be empty
	Features *geojson.FeatureCollection
}

// parseLayers splits "Title=source" flags. A bare source is titled after its
// position.
func parseLayers(specs []string) ([]gridLayer, error) {
	if len(specs) == 0 {
		return nil, errors.New("at least one --layer is required")
	}
	out := make([]gridLayer, 0, len(specs))
	for i, s := range specs {
		title, source, ok := strings.Cut(s, "=")
		if !ok || strings.Contains(title, "://") {
			title, source = fmt.Sprintf("Layer %d", i+1), s
		}
		title, source = strings.TrimSpace(title), strings.TrimSpace(source)
		if source == "" {
			return nil, fmt.Errorf("invalid --layer %q: missing source", s)
		}
		out = append(out, gridLayer{Title: title, Source: source})
	}
	return out, nil
}

// buildGridKML writes every feature of every layer, one style per layer.
// Multi-geometries become one placemark per part. It returns the number of
// features skipped for having no geometry or an unsupported one.
func buildGridKML(name string, layers []gridLayer, nameFields, describe []string) (*kml.Document, int) {
	doc := kml.NewDocument(name)
	skipped := 0
	for i, l := range layers {
		style := fmt.Sprintf("layer-%d", i+1)
		doc.AddStyle(kml.Style{ID: style, LineColor: routeLineColors[i%len(routeLineColors)], LineWidth: 2})
		if l.Features == nil {
			continue
		}
		for _, f := range l.Features.Features {
			title := featureName(f.Properties, nameFields)
			desc := featureDescription(l, f.Properties, describe)
			if !addGeometry(doc, title, style, desc, f.Geometry) {
				skipped++
			}
		}
	}
	return doc, skipped
}

func addGeometry(doc *kml.Document, name, style, desc string, g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Point:
		doc.AddPoint(name, style, desc, toGeo(g))
	case orb.MultiPoint:
		for _, p := range g {
			doc.AddPoint(name, style, desc, toGeo(p))
		}
	case orb.LineString:
		doc.AddLine(name, style, desc, toGeos(g))
	case orb.MultiLineString:
		for _, ls := range g {
			doc.AddLine(name, style, desc, toGeos(ls))
		}
	case orb.Polygon:
		if len(g) == 0 {
			return false
		}
		doc.AddPolygon(name, style, desc, toGeos(g[0]))
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 {
				doc.AddPolygon(name, style, desc, toGeos(p[0]))
			}
		}
	default:
		return false
	}
	return true
}

func toGeo(p orb.Point) domain.Geo {
	return domain.Geo{Lat: p.Lat(), Lon: p.Lon()}
}

func toGeos(pts []orb.Point) []domain.Geo {
	out := make([]domain.Geo, len(pts))
	for i, p := range pts {
		out[i] = toGeo(p)
	}
	return out
}

// featureName is the first non-blank property among fields, or "Unnamed".
func featureName(props geojson.Properties, fields []string) string {
	for _, f := range fields {
		if v := strings.TrimSpace(domain.FormatValue(props[f])); v != "" && !domain.IsNull(props[f]) {
			return v
		}
	}
	return "Unnamed"
}

// featureDescription lists the layer title, the voltage and the describe
// properties the feature carries. Null values read "Unknown".
func featureDescription(l gridLayer, props geojson.Properties, describe []string) string {
	parts := []string{fmt.Sprintf("<b>Layer:</b> %s", html.EscapeString(l.Title))}
	cols := describe
	if l.Voltage != "" {
		cols = append([]string{l.Voltage}, describe...)
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		v, ok := props[c]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		text := domain.FormatValue(v)
		if domain.IsNull(v) {
			text = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("<b>%s:</b> %s", html.EscapeString(c), html.EscapeString(text)))
	}
	return strings.Join(parts, "<br/>")
}

func init() {
	rootCmd.AddCommand(gridCmd)
	f := gridCmd.Flags()
	f.StringArrayVar(&gridLayers, "layer", nil, `layer as "Title=source"; source is a FeatureServer query URL, a GeoJSON URL or a file (repeatable, required)`)
	f.StringVar(&gridOutput, "output", "grid.kmz", "output path ending in .kml or .kmz")
	f.StringSliceVar(&gridNameFields, "name-field", []string{"Project_Na", "NAME", "Name", "name"}, "properties tried in order for the placemark name")
	f.StringSliceVar(&gridDescribe, "describe", []string{"Generator_Type", "MW_Type", "Status_1", "TFO"}, "properties shown in each description when present")
	f.StringSliceVar(&gridVoltage, "voltage-match", []string{"voltage", "volt", "kv"}, "substrings that identify a layer's voltage property")
	_ = gridCmd.MarkFlagRequired("layer")
}
