package domain

import (
	"context"
	"log/slog"
)

// Place describes where an epicenter lies, as resolved by a Geocoder.
type Place struct {
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	Source           string  `json:"source"` // "reverse", "none", "failed"
}

// DescribeEpicenter resolves the event's epicenter to a place. A nil geocoder,
// an empty result, or a provider failure all degrade to a Place with no name;
// the review never fails because geocoding did.
func DescribeEpicenter(ctx context.Context, e *SeismicEvent, geocoder Geocoder, logger *slog.Logger) Place {
	if geocoder == nil {
		return Place{Source: "none"}
	}

	result, err := geocoder.ReverseGeocode(ctx, e.Epicenter.Lat, e.Epicenter.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"event_id", e.ID,
			"lat", e.Epicenter.Lat,
			"lon", e.Epicenter.Lon,
			"error", err,
		)
		return Place{Source: "failed"}
	}
	if result.FormattedAddress == "" {
		return Place{Source: "none"}
	}
	return Place{
		Name:             result.PlaceName,
		FormattedAddress: result.FormattedAddress,
		Confidence:       result.Confidence,
		Source:           "reverse",
	}
}
