package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTMToLatLon(t *testing.T) {
	t.Run("central meridian on the equator", func(t *testing.T) {
		lat, lon, ok := UTMToLatLon(500000, 0, 30, true)
		require.True(t, ok)
		assert.InDelta(t, 0.0, lat, 1e-9)
		assert.InDelta(t, -3.0, lon, 1e-9)
	})

	t.Run("Madrid, zone 30N", func(t *testing.T) {
		lat, lon, ok := UTMToLatLon(440291, 4474254, 30, true)
		require.True(t, ok)
		assert.InDelta(t, 40.4168, lat, 1e-3)
		assert.InDelta(t, -3.7038, lon, 1e-3)
	})

	t.Run("southern hemisphere offset", func(t *testing.T) {
		lat, _, ok := UTMToLatLon(500000, 10000000, 30, false)
		require.True(t, ok)
		assert.InDelta(t, 0.0, lat, 1e-9)
	})

	t.Run("invalid zone", func(t *testing.T) {
		_, _, ok := UTMToLatLon(500000, 4474254, 0, true)
		assert.False(t, ok)
		_, _, ok = UTMToLatLon(500000, 4474254, 61, true)
		assert.False(t, ok)
	})
}

func TestDetectCoordinateKind(t *testing.T) {
	tests := []struct {
		name     string
		x, y     float64
		expected CoordinateKind
	}{
		{"ETRS89 easting/northing", 440291, 4474254, CoordinateUTM},
		{"lat/lon", 40.4168, -3.7038, CoordinateLatLon},
		{"out of range", 5000, 5000, CoordinateUnknown},
		{"northing outside Iberia", 440291, 5500000, CoordinateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectCoordinateKind(tt.x, tt.y)
			assert.Equal(t, tt.expected, got)
			assert.NotEmpty(t, got.String())
		})
	}
}
