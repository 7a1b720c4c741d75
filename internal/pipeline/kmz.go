package pipeline

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/couchcryptid/gridcap-etl/internal/adapter/kml"
	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

// Icon names inside the KMZ; styles reference them by these hrefs.
const (
	iconOnName  = "ON.png"
	iconOffName = "off.png"
)

// writeKMZ places every row with resolvable coordinates, styled "on" when its
// available capacity is positive.
func (u *Updater) writeKMZ(ctx context.Context, logger *slog.Logger, t *domain.Table, cols domain.ColumnMap, opts Options) (int, error) {
	zone := opts.UTMZone
	if zone == 0 {
		zone = DefaultUTMZone
	}
	located := domain.LocateRows(ctx, t, domain.CoordinateColumns{
		Name:         cols.Get(domain.FieldSubstation),
		Municipality: cols.Get(domain.FieldMunicipality),
		District:     cols.Get(domain.FieldDistrict),
		Latitude:     cols.Get(domain.FieldLatitude),
		Longitude:    cols.Get(domain.FieldLongitude),
		Easting:      cols.Get(domain.FieldEasting),
		Northing:     cols.Get(domain.FieldNorthing),
		UTMZone:      zone,
	}, u.conv, u.geocoder, logger)

	doc := kml.NewDocument(t.Name)
	doc.AddStyle(kml.Style{ID: "onStyle", IconHref: iconOnName, IconScale: 1.2, LabelScale: 1.1})
	doc.AddStyle(kml.Style{ID: "offStyle", IconHref: iconOffName, IconScale: 1.2, LabelScale: 1.1})

	avCol := cols.Get(domain.FieldAvailable)
	bySource := map[string]int{}
	for i, loc := range located {
		bySource[loc.Source]++
		if !loc.OK() {
			continue
		}
		name := domain.FormatValue(t.Value(i, cols.Get(domain.FieldSubstation)))
		av := t.Value(i, avCol)
		style := "offStyle"
		if v, ok := domain.ParseNumeric(av); ok && v > 0 {
			style = "onStyle"
		}
		doc.AddPoint(name, style, placemarkDescription(name, av, loc.Geo), loc.Geo)
	}
	logger.Debug("coordinates resolved", "by_source", bySource)

	missing, err := kml.WriteKMZ(opts.KMZPath, doc,
		kml.Asset{Name: iconOnName, Path: opts.IconOn},
		kml.Asset{Name: iconOffName, Path: opts.IconOff},
	)
	if err != nil {
		return 0, err
	}
	for _, m := range missing {
		logger.Warn("KMZ icon not found, placemarks will use the default icon", "path", m)
	}
	return doc.Len(), nil
}

func placemarkDescription(name string, available any, g domain.Geo) string {
	return fmt.Sprintf("<b>Substation:</b> %s<br/><b>Available Capacity:</b> %s<br/><b>Latitude:</b> %.6f<br/><b>Longitude:</b> %.6f",
		html.EscapeString(name), html.EscapeString(domain.FormatValue(available)), g.Lat, g.Lon)
}
