package domain

import "context"

// Place is a named location to be geocoded.
type Place struct {
	Name         string
	Municipality string
	District     string
}

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves substation names to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place name to coordinates. A zero result with
	// a nil error means the provider found nothing.
	ForwardGeocode(ctx context.Context, place Place) (GeocodingResult, error)
}
