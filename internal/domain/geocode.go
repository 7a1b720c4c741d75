package domain

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Where a row's coordinates came from.
const (
	GeoSourceOriginal = "original"
	GeoSourceUTM      = "utm"
	GeoSourceForward  = "forward"
	GeoSourceFailed   = "failed"
	GeoSourceMissing  = "missing"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FormatCoordinate renders g in KML "lon,lat,0" order with 8 decimals.
func FormatCoordinate(g Geo) string {
	return strconv.FormatFloat(g.Lon, 'f', 8, 64) + "," + strconv.FormatFloat(g.Lat, 'f', 8, 64) + ",0"
}

// Located is the resolved position of one table row.
type Located struct {
	Geo    Geo
	Source string
}

// OK reports whether the row has usable coordinates.
func (l Located) OK() bool {
	switch l.Source {
	case GeoSourceOriginal, GeoSourceUTM, GeoSourceForward:
		return true
	default:
		return false
	}
}

// CoordinateColumns names the columns LocateRows reads. Easting and Northing
// are optional UTM columns used when latitude/longitude are absent; they are
// only converted when UTMZone is set.
type CoordinateColumns struct {
	Name         string
	Municipality string
	District     string
	Latitude     string
	Longitude    string
	Easting      string
	Northing     string
	UTMZone      int
}

// LocateRows resolves a position for every row: the row's own coordinates
// first, then a UTM easting/northing pair, then forward geocoding of the name
// when a geocoder is configured. Geocoding failures are logged and the row is
// marked GeoSourceFailed (graceful degradation).
func LocateRows(ctx context.Context, t *Table, cols CoordinateColumns, conv SignConvention, geocoder Geocoder, logger *slog.Logger) []Located {
	out := make([]Located, t.Len())
	for i, r := range t.Rows {
		out[i] = locateRow(ctx, r, cols, conv, geocoder, logger)
	}
	return out
}

func locateRow(ctx context.Context, r Record, cols CoordinateColumns, conv SignConvention, geocoder Geocoder, logger *slog.Logger) Located {
	lat, okLat := ParseCoordinate(r[cols.Latitude], Latitude, conv)
	lon, okLon := ParseCoordinate(r[cols.Longitude], Longitude, conv)
	if cols.Latitude != "" && cols.Longitude != "" && okLat && okLon {
		return Located{Geo: Geo{Lat: lat, Lon: lon}, Source: GeoSourceOriginal}
	}

	if cols.Easting != "" && cols.Northing != "" && cols.UTMZone != 0 {
		x, okX := ParseNumeric(r[cols.Easting])
		y, okY := ParseNumeric(r[cols.Northing])
		if okX && okY && DetectCoordinateKind(x, y) == CoordinateUTM {
			if lat, lon, ok := UTMToLatLon(x, y, cols.UTMZone, true); ok {
				return Located{Geo: Geo{Lat: lat, Lon: lon}, Source: GeoSourceUTM}
			}
		}
	}

	if geocoder == nil {
		return Located{Source: GeoSourceMissing}
	}
	place := Place{
		Name:         strings.TrimSpace(toText(r[cols.Name])),
		Municipality: strings.TrimSpace(toText(r[cols.Municipality])),
		District:     strings.TrimSpace(toText(r[cols.District])),
	}
	if place.Name == "" {
		return Located{Source: GeoSourceMissing}
	}

	result, err := geocoder.ForwardGeocode(ctx, place)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"name", place.Name,
			"municipality", place.Municipality,
			"error", err,
		)
		return Located{Source: GeoSourceFailed}
	}
	if result.Lat == 0 && result.Lon == 0 {
		return Located{Source: GeoSourceMissing}
	}
	return Located{Geo: Geo{Lat: result.Lat, Lon: result.Lon}, Source: GeoSourceForward}
}
