// Package review coordinates one operator's review session: it loads the
// events awaiting review, locks the one the operator selects, and applies the
// confirm, reject, and derive outcomes, writing every transition through the
// gateway before reporting it.
package review

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/observability"
)

// Gateway loads and stores seismic events.
type Gateway interface {
	LoadAll(ctx context.Context) ([]*domain.SeismicEvent, error)
	UpdateState(ctx context.Context, id domain.EventID, state string, at time.Time) error
}

// Notifier receives every transition once it is durable.
type Notifier interface {
	Publish(ctx context.Context, entry AuditEntry) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used for transition times and retry backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics sets where workflow metrics are recorded.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = metrics }
}

// WithNotifier publishes each durable transition.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithGeocoder enables epicenter place names on selection.
func WithGeocoder(g domain.Geocoder) Option {
	return func(c *Coordinator) { c.geocoder = g }
}

// WithRetry overrides DefaultRetryPolicy.
func WithRetry(p RetryPolicy) Option {
	return func(c *Coordinator) { c.retry = p }
}

type unsynced struct {
	event   *domain.SeismicEvent
	from    string
	outcome Outcome
}

// Coordinator is the only entry point into workflow state. All commands are
// serialized: a command holds the coordinator for its whole validation,
// transition, and awaited write.
type Coordinator struct {
	gateway  Gateway
	catalog  *domain.Catalog
	session  Session
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	notifier Notifier
	geocoder domain.Geocoder
	retry    RetryPolicy

	mu       sync.Mutex
	all      []*domain.SeismicEvent
	pending  []EventSummary
	selected *domain.SeismicEvent
	place    domain.Place
	filters  Filters
	unsynced *unsynced
}

// New creates a Coordinator for one session.
func New(gateway Gateway, catalog *domain.Catalog, session Session, opts ...Option) *Coordinator {
	c := &Coordinator{
		gateway: gateway,
		catalog: catalog,
		session: session,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
		retry:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observability.NewUnregisteredMetrics()
	}
	return c
}

// LoadPendingReviews reloads every event from the gateway and returns the ones
// awaiting review, oldest occurrence first. Events that occurred at the same
// instant keep the gateway's order. Reloading drops the current selection and
// any transition that was never written, since storage is authoritative.
//
// The returned sequence is a snapshot; ranging over it again replays the same
// rows without touching the gateway.
func (c *Coordinator) LoadPendingReviews(ctx context.Context) (iter.Seq[EventSummary], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	events, err := c.gateway.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending reviews: %w", err)
	}

	if c.unsynced != nil {
		c.logger.Warn("discarding unsynced transition on reload",
			"event_id", c.unsynced.event.ID,
			"state", c.unsynced.outcome.State,
		)
		c.unsynced = nil
	}

	pending := make([]*domain.SeismicEvent, 0, len(events))
	for _, ev := range events {
		if ev.InState(domain.StateAutoDetected) {
			pending = append(pending, ev)
		}
	}
	slices.SortStableFunc(pending, func(a, b *domain.SeismicEvent) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})

	summaries := make([]EventSummary, len(pending))
	for i, ev := range pending {
		summaries[i] = summarize(ev)
	}

	c.all = events
	c.pending = summaries
	c.selected = nil
	c.place = domain.Place{}
	c.filters = Filters{}
	c.metrics.PendingEvents.Set(float64(len(summaries)))

	c.logger.Info("pending reviews loaded", "total", len(events), "pending", len(summaries))

	return func(yield func(EventSummary) bool) {
		for _, s := range summaries {
			if !yield(s) {
				return
			}
		}
	}, nil
}

// SelectEvent locks an event awaiting review for this session and returns its
// detail. The operator's filters are seeded from the event's own tags. An id
// that was not part of the last load fails with domain.ErrNoSelection and
// domain.ErrNotFound.
func (c *Coordinator) SelectEvent(ctx context.Context, id domain.EventID) (EventDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkSynced("select event"); err != nil {
		return EventDetail{}, err
	}

	ev := c.find(id)
	if ev == nil {
		return EventDetail{}, fmt.Errorf("select event %s: %w: %w", id, domain.ErrNoSelection, domain.ErrNotFound)
	}
	if err := requireState(ev, domain.StateAutoDetected, "select event"); err != nil {
		return EventDetail{}, err
	}

	c.selected = ev
	c.filters = filtersOf(ev)
	c.place = domain.Place{}

	if _, err := c.apply(ctx, ev, domain.StateLockedInReview); err != nil {
		if c.unsynced == nil {
			c.selected = nil
			c.filters = Filters{}
		}
		return EventDetail{}, err
	}

	c.place = domain.DescribeEpicenter(ctx, ev, c.geocoder, c.logger)
	return detailOf(ev, c.place), nil
}

// ChooseFilters records the operator's filter selection for the current
// review.
func (c *Coordinator) ChooseFilters(f Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = f
}

// Confirm moves the selected event from review to confirmed.
func (c *Coordinator) Confirm(ctx context.Context) (Outcome, error) {
	return c.resolve(ctx, "confirm", domain.StateConfirmed)
}

// Derive refers the selected event to an expert.
func (c *Coordinator) Derive(ctx context.Context) (Outcome, error) {
	return c.resolve(ctx, "derive", domain.StatePendingRevision)
}

// Reject moves the selected event from review to rejected. The event must
// carry a magnitude, a scope and an origin, the operator must have chosen at
// least one filter, and every series must hold samples. The first missing
// item is reported as an *IncompleteDataError and nothing changes.
func (c *Coordinator) Reject(ctx context.Context) (Outcome, error) {
	return c.resolve(ctx, "reject", domain.StateRejected)
}

// RetryPersist writes the transition a previous command could not make
// durable.
func (c *Coordinator) RetryPersist(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.unsynced
	if u == nil {
		return Outcome{}, ErrNothingToRetry
	}
	if err := c.persist(ctx, u.event.ID, u.outcome.State, u.outcome.At); err != nil {
		return Outcome{}, err
	}
	c.unsynced = nil
	c.committed(ctx, u.event, u.from, u.outcome)
	return u.outcome, nil
}

// Selected returns the detail of the selected event, if any.
func (c *Coordinator) Selected() (EventDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return EventDetail{}, false
	}
	return detailOf(c.selected, c.place), true
}

// Pending replays the rows of the last LoadPendingReviews.
func (c *Coordinator) Pending() []EventSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.pending)
}

// Filters returns the filter selection recorded for the current event.
func (c *Coordinator) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Session returns the session the coordinator was created for.
func (c *Coordinator) Session() Session {
	return c.session
}

// Unsynced reports whether a transition is applied in memory but not yet
// durable.
func (c *Coordinator) Unsynced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsynced != nil
}

// Status is a point-in-time view of the coordinator for operators and probes.
type Status struct {
	Session       Session        `json:"session"`
	Pending       int            `json:"pending"`
	SelectedID    domain.EventID `json:"selected_id,omitempty"`
	SelectedState string         `json:"selected_state,omitempty"`
	Filters       Filters        `json:"filters"`
	UnsyncedID    domain.EventID `json:"unsynced_id,omitempty"`
	UnsyncedState string         `json:"unsynced_state,omitempty"`
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{Session: c.session, Pending: len(c.pending), Filters: c.filters}
	if c.selected != nil {
		st.SelectedID = c.selected.ID
		if cur, ok := c.selected.CurrentState(); ok {
			st.SelectedState = cur.Name
		}
	}
	if c.unsynced != nil {
		st.UnsyncedID = c.unsynced.event.ID
		st.UnsyncedState = c.unsynced.outcome.State
	}
	return st
}

func (c *Coordinator) resolve(ctx context.Context, op, target string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkSynced(op); err != nil {
		return Outcome{}, err
	}
	ev := c.selected
	if ev == nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, domain.ErrNoSelection)
	}
	if err := requireState(ev, domain.StateLockedInReview, op); err != nil {
		return Outcome{}, err
	}

	if target == domain.StateRejected {
		if ierr := validateForReject(ev, c.filters); ierr != nil {
			c.metrics.ValidationFailures.WithLabelValues(ierr.Field).Inc()
			c.logger.Info("rejection refused", "event_id", ev.ID, "field", ierr.Field, "reason", ierr.Reason)
			return Outcome{}, fmt.Errorf("%s %s: %w", op, ev.ID, ierr)
		}
	}

	return c.apply(ctx, ev, target)
}

// apply transitions ev to target and waits for the write. When the write
// fails the transition stays applied and is remembered as unsynced.
func (c *Coordinator) apply(ctx context.Context, ev *domain.SeismicEvent, target string) (Outcome, error) {
	state, err := c.catalog.Find(target)
	if err != nil {
		return Outcome{}, fmt.Errorf("apply %s: %w", target, err)
	}
	from, _ := ev.CurrentState()
	at := c.clock.Now()

	if err := domain.Transition(ev, state, at); err != nil {
		c.logger.Error("transition aborted", "event_id", ev.ID, "target", target, "error", err)
		return Outcome{}, err
	}

	outcome := Outcome{EventID: ev.ID, State: state.Name, Actor: c.session.User, At: at}
	if err := c.persist(ctx, ev.ID, state.Name, at); err != nil {
		c.unsynced = &unsynced{event: ev, from: from.Name, outcome: outcome}
		c.logger.Error("transition not durable",
			"event_id", ev.ID,
			"state", state.Name,
			"error", err,
		)
		return Outcome{}, err
	}

	c.committed(ctx, ev, from.Name, outcome)
	return outcome, nil
}

// committed records a durable transition: metrics, log, and audit.
func (c *Coordinator) committed(ctx context.Context, ev *domain.SeismicEvent, from string, o Outcome) {
	c.metrics.Transitions.WithLabelValues(o.State).Inc()
	c.logger.Info("event state changed",
		"event_id", ev.ID,
		"from", from,
		"to", o.State,
		"user", o.Actor,
		"session_id", c.session.ID,
	)

	if c.notifier == nil {
		return
	}
	entry := AuditEntry{
		SessionID: c.session.ID,
		EventID:   ev.ID,
		From:      from,
		To:        o.State,
		Actor:     o.Actor,
		At:        o.At,
		Filters:   c.filters,
	}
	if err := c.notifier.Publish(ctx, entry); err != nil {
		c.metrics.AuditPublished.WithLabelValues("error").Inc()
		c.logger.Warn("audit publish failed", "event_id", ev.ID, "to", o.State, "error", err)
		return
	}
	c.metrics.AuditPublished.WithLabelValues("success").Inc()
}

func (c *Coordinator) checkSynced(op string) error {
	if c.unsynced == nil {
		return nil
	}
	return fmt.Errorf("%s: event %s as %s: %w", op, c.unsynced.event.ID, c.unsynced.outcome.State, ErrUnsynced)
}

func (c *Coordinator) find(id domain.EventID) *domain.SeismicEvent {
	for _, ev := range c.all {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

func requireState(ev *domain.SeismicEvent, want, op string) error {
	current, ok := ev.CurrentState()
	if !ok {
		return fmt.Errorf("%s %s: no open state change: %w", op, ev.ID, domain.ErrInvalidState)
	}
	if current.Name != want {
		return fmt.Errorf("%s %s: state is %s, requires %s: %w", op, ev.ID, current.Name, want, ErrWrongState)
	}
	return nil
}
