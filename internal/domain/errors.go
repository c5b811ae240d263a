package domain

import "errors"

var (
	// ErrNotFound is returned when a state, event, or station lookup fails.
	ErrNotFound = errors.New("not found")

	// ErrNoSelection is returned when a command needs a selected event and
	// none is selected.
	ErrNoSelection = errors.New("no event selected")

	// ErrIncompleteData is returned when an event lacks data a command needs.
	ErrIncompleteData = errors.New("incomplete event data")

	// ErrInvalidState signals a broken history invariant: no open StateChange,
	// or a transition that would move time backwards. It is an internal fault
	// and callers should abort rather than repair.
	ErrInvalidState = errors.New("invalid state history")

	// ErrPersistence is returned when a gateway read or write did not complete.
	ErrPersistence = errors.New("persistence failure")

	// ErrCorruptData is returned when a persisted record cannot be mapped back
	// to the domain, e.g. a state name missing from the catalog.
	ErrCorruptData = errors.New("corrupt persisted data")
)
