package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  []Place
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, place Place) (GeocodingResult, error) {
	m.calls = append(m.calls, place)
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testCoordinateColumns = CoordinateColumns{
	Name:         "Substation",
	Municipality: "Municipality",
	District:     "District",
	Latitude:     "Latitude",
	Longitude:    "Longitude",
	Easting:      "X",
	Northing:     "Y",
	UTMZone:      30,
}

// --- tests ---

func TestLocateRows_OriginalCoordinates(t *testing.T) {
	tbl := NewTable("subs")
	tbl.Append(Record{"Substation": "Ermesinde", "Latitude": `41°13'N`, "Longitude": "8.55"})
	geo := &mockGeocoder{}

	got := LocateRows(context.Background(), tbl, testCoordinateColumns, WestDefault, geo, discardLogger())

	require.Len(t, got, 1)
	assert.Equal(t, GeoSourceOriginal, got[0].Source)
	assert.True(t, got[0].OK())
	assert.InDelta(t, 41.2167, got[0].Geo.Lat, 1e-3)
	assert.InDelta(t, -8.55, got[0].Geo.Lon, 1e-9)
	assert.Empty(t, geo.calls, "rows with coordinates are never geocoded")
}

func TestLocateRows_UTMPair(t *testing.T) {
	tbl := NewTable("subs")
	tbl.Append(Record{"Substation": "Madrid", "X": 440291.0, "Y": "4474254"})

	got := LocateRows(context.Background(), tbl, testCoordinateColumns, WestDefault, nil, discardLogger())

	require.Len(t, got, 1)
	assert.Equal(t, GeoSourceUTM, got[0].Source)
	assert.InDelta(t, 40.4168, got[0].Geo.Lat, 1e-3)
	assert.InDelta(t, -3.7038, got[0].Geo.Lon, 1e-3)
}

func TestLocateRows_UTMPairNeedsZone(t *testing.T) {
	tbl := NewTable("subs")
	tbl.Append(Record{"Substation": "Madrid", "X": 440291.0, "Y": "4474254"})
	cols := testCoordinateColumns
	cols.UTMZone = 0

	got := LocateRows(context.Background(), tbl, cols, WestDefault, nil, discardLogger())

	require.Len(t, got, 1)
	assert.Equal(t, GeoSourceMissing, got[0].Source, "no zone, no guess")
}

func TestLocateRows_ForwardGeocode(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{Lat: 41.1579, Lon: -8.6291, PlaceName: "Porto"}}
	tbl := NewTable("subs")
	tbl.Append(Record{"Substation": " Prelada ", "Municipality": "Porto", "District": "Porto", "Latitude": "n/d"})

	got := LocateRows(context.Background(), tbl, testCoordinateColumns, WestDefault, geo, discardLogger())

	require.Len(t, got, 1)
	assert.Equal(t, GeoSourceForward, got[0].Source)
	assert.Equal(t, Geo{Lat: 41.1579, Lon: -8.6291}, got[0].Geo)
	require.Len(t, geo.calls, 1)
	assert.Equal(t, Place{Name: "Prelada", Municipality: "Porto", District: "Porto"}, geo.calls[0])
}

func TestLocateRows_GeocoderError(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("API timeout")}
	tbl := NewTable("subs")
	tbl.Append(Record{"Substation": "Prelada"})

	got := LocateRows(context.Background(), tbl, testCoordinateColumns, WestDefault, geo, discardLogger())

	assert.Equal(t, GeoSourceFailed, got[0].Source)
	assert.False(t, got[0].OK())
}

func TestLocateRows_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}
	tbl := NewTable("subs")
	tbl.Append(Record{"Substation": "Nowhere"})

	got := LocateRows(context.Background(), tbl, testCoordinateColumns, WestDefault, geo, discardLogger())

	assert.Equal(t, GeoSourceMissing, got[0].Source)
}

func TestLocateRows_NoGeocoderNoName(t *testing.T) {
	tbl := NewTable("subs")
	tbl.Append(Record{"Substation": "Prelada"})
	tbl.Append(Record{"Municipality": "Porto"})
	geo := &mockGeocoder{}

	withoutGeocoder := LocateRows(context.Background(), tbl, testCoordinateColumns, WestDefault, nil, discardLogger())
	assert.Equal(t, GeoSourceMissing, withoutGeocoder[0].Source)

	withGeocoder := LocateRows(context.Background(), tbl, testCoordinateColumns, WestDefault, geo, discardLogger())
	assert.Equal(t, GeoSourceMissing, withGeocoder[1].Source)
	assert.Len(t, geo.calls, 1, "nameless rows are not sent to the provider")
}

func TestFormatCoordinate(t *testing.T) {
	assert.Equal(t, "-8.61090000,41.14960000,0", FormatCoordinate(Geo{Lat: 41.1496, Lon: -8.6109}))
}
