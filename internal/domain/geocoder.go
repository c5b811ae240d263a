package domain

import "context"

// GeocodingResult contains place data returned by a geocoding provider.
type GeocodingResult struct {
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves coordinates to place details.
type Geocoder interface {
	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
