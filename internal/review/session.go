package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

// Session identifies the operator driving a coordinator.
type Session struct {
	ID        uuid.UUID `json:"id"`
	User      string    `json:"user"`
	StartedAt time.Time `json:"started_at"`
}

func NewSession(user string, startedAt time.Time) Session {
	return Session{ID: uuid.New(), User: user, StartedAt: startedAt}
}

// Filters are the scope, classification, and origin the operator chose while
// reviewing. They are recorded for audit and never gate a command, except that
// a rejection needs at least one of them.
type Filters struct {
	Scope          string `json:"scope,omitempty"`
	Classification string `json:"classification,omitempty"`
	Origin         string `json:"origin,omitempty"`
}

// Empty reports whether no filter was chosen.
func (f Filters) Empty() bool {
	return f.Scope == "" && f.Classification == "" && f.Origin == ""
}

func filtersOf(ev *domain.SeismicEvent) Filters {
	return Filters{
		Scope:          ev.Scope.Name,
		Classification: ev.Classification.Name,
		Origin:         ev.Origin.Name,
	}
}

// Outcome is what a successful command reports back: the state the event now
// occupies and who moved it there.
type Outcome struct {
	EventID domain.EventID `json:"event_id"`
	State   string         `json:"state"`
	Actor   string         `json:"actor"`
	At      time.Time      `json:"at"`
}

// AuditEntry describes one durable transition for the Notifier.
type AuditEntry struct {
	SessionID uuid.UUID      `json:"session_id"`
	EventID   domain.EventID `json:"event_id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Actor     string         `json:"actor"`
	At        time.Time      `json:"at"`
	Filters   Filters        `json:"filters"`
}
