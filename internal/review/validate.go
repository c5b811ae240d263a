package review

import (
	"fmt"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

// validateForReject runs the completeness checks a rejection needs, in order,
// and reports the first one that fails.
func validateForReject(ev *domain.SeismicEvent, filters Filters) *IncompleteDataError {
	switch {
	case ev.Magnitude == nil:
		return &IncompleteDataError{Field: FieldMagnitude, Reason: "event has no magnitude"}
	case ev.Scope.Name == "":
		return &IncompleteDataError{Field: FieldScope, Reason: "event has no scope"}
	case ev.Origin.Name == "":
		return &IncompleteDataError{Field: FieldOrigin, Reason: "event has no generation origin"}
	case filters.Empty():
		return &IncompleteDataError{Field: FieldFilter, Reason: "choose at least one of scope, classification or origin"}
	case len(ev.Series) == 0:
		return &IncompleteDataError{Field: FieldSeries, Reason: "event has no time series"}
	}
	for i, ts := range ev.Series {
		if len(ts.Samples) == 0 {
			return &IncompleteDataError{Field: FieldSamples, Reason: fmt.Sprintf("series %d has no samples", i)}
		}
	}
	return nil
}

// CheckRejectable reports what a rejection of ev would find missing if the
// operator kept the filters seeded from the event's own tags. It returns nil
// when the event could be rejected as is.
func CheckRejectable(ev *domain.SeismicEvent) error {
	if ierr := validateForReject(ev, filtersOf(ev)); ierr != nil {
		return ierr
	}
	return nil
}
