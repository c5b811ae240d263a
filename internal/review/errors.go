package review

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

var (
	// ErrWrongState is returned when a command is issued against an event
	// that is not in the state the command requires.
	ErrWrongState = errors.New("event is not in the required state")

	// ErrUnsynced is returned while a transition applied in memory has not
	// been written to the gateway. RetryPersist or LoadPendingReviews clears it.
	ErrUnsynced = fmt.Errorf("unsynced transition pending: %w", domain.ErrPersistence)

	// ErrNothingToRetry is returned by RetryPersist when every transition is
	// already durable.
	ErrNothingToRetry = errors.New("no unsynced transition")
)

// Completeness fields checked before a rejection, in check order.
const (
	FieldMagnitude = "magnitude"
	FieldScope     = "scope"
	FieldOrigin    = "origin"
	FieldFilter    = "filter"
	FieldSeries    = "series"
	FieldSamples   = "samples"
)

// IncompleteDataError names the first piece of data a rejection found missing.
type IncompleteDataError struct {
	Field  string
	Reason string
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("incomplete data: %s: %s", e.Field, e.Reason)
}

func (e *IncompleteDataError) Unwrap() error { return domain.ErrIncompleteData }

// PersistenceError reports a state write that failed on every attempt. The
// transition it carries is already applied in memory.
type PersistenceError struct {
	EventID  domain.EventID
	State    string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s as %s after %d attempt(s): %v", e.EventID, e.State, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{domain.ErrPersistence, e.Err}
}
