package domain

import (
	"fmt"
	"time"
)

// Transition moves the event into target at the given time: the open
// StateChange is closed at `at` and a new open change for target is appended.
//
// Transition does not know which transitions are legal; callers enforce their
// own preconditions. Its only contract is that the history has exactly one
// open change before and after, with non-decreasing timestamps. A history
// without an open change, or an `at` earlier than the open change's start,
// fails with ErrInvalidState and leaves the event untouched.
func Transition(e *SeismicEvent, target State, at time.Time) error {
	i := e.openChange()
	if i < 0 {
		return fmt.Errorf("transition %s to %s: no open state change: %w", e.ID, target.Name, ErrInvalidState)
	}
	if at.Before(e.Changes[i].Start) {
		return fmt.Errorf("transition %s to %s: %s precedes current state start %s: %w",
			e.ID, target.Name, at.Format(time.RFC3339), e.Changes[i].Start.Format(time.RFC3339), ErrInvalidState)
	}

	end := at
	e.Changes[i].End = &end
	e.Changes = append(e.Changes, StateChange{Start: at, State: target})
	return nil
}

// CheckHistory verifies the history invariant: exactly one open change and
// timestamps that never move backwards.
func CheckHistory(e *SeismicEvent) error {
	open := 0
	for i, c := range e.Changes {
		if c.Open() {
			open++
		} else if c.End.Before(c.Start) {
			return fmt.Errorf("event %s: change %d ends before it starts: %w", e.ID, i, ErrInvalidState)
		}
		if i > 0 {
			prev := e.Changes[i-1]
			if prev.End != nil && c.Start.Before(*prev.End) {
				return fmt.Errorf("event %s: change %d starts before change %d ends: %w", e.ID, i, i-1, ErrInvalidState)
			}
		}
	}
	if open != 1 {
		return fmt.Errorf("event %s: %d open state changes: %w", e.ID, open, ErrInvalidState)
	}
	return nil
}
