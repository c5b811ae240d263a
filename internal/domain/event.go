package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EventID is the stable natural key of a seismic event. It survives a round
// trip through any gateway and is what UpdateState uses to relocate a record.
type EventID string

// NewEventID derives a deterministic ID from the occurrence time and epicenter.
// The same detection always maps to the same ID, so reloading an event from
// storage never changes its identity.
func NewEventID(occurredAt time.Time, epicenterLat, epicenterLon float64) EventID {
	input := fmt.Sprintf("%s|%.4f|%.4f", occurredAt.UTC().Format(time.RFC3339Nano), epicenterLat, epicenterLon)
	hash := sha256.Sum256([]byte(input))
	return EventID("evt-" + hex.EncodeToString(hash[:8]))
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Magnitude is the measured magnitude of an event and its descriptor
// (e.g. "Richter"). Values are carried as opaque tags.
type Magnitude struct {
	Value      float64 `json:"value"`
	Descriptor string  `json:"descriptor,omitempty"`
}

// Tag is a named classification attached to an event: its classification,
// generation origin, or scope.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Station is a seismological station. Stations are shared by reference and
// never owned by the series that recorded through them.
type Station struct {
	StorageID uint   `json:"-"`
	Name      string `json:"name"`
	Code      string `json:"code"`
}

// Seismograph is the instrument a series was recorded with.
type Seismograph struct {
	StorageID    uint      `json:"-"`
	Identifier   string    `json:"identifier"`
	SerialNumber string    `json:"serial_number,omitempty"`
	AcquiredAt   time.Time `json:"acquired_at"`
	Station      *Station  `json:"station,omitempty"`
}

// DataKind describes what a sample detail value measures.
type DataKind struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit,omitempty"`
}

// SampleDetail is one typed value within a sample.
type SampleDetail struct {
	StorageID uint     `json:"-"`
	Value     float64  `json:"value"`
	Kind      DataKind `json:"kind"`
}

// Sample is one reading within a series.
type Sample struct {
	StorageID uint           `json:"-"`
	TakenAt   time.Time      `json:"taken_at"`
	Note      string         `json:"note,omitempty"`
	Details   []SampleDetail `json:"details"`
}

// TimeSeries is one sensor recording attached to an event.
type TimeSeries struct {
	StorageID      uint         `json:"-"`
	AlarmCondition bool         `json:"alarm_condition"`
	SamplingStart  time.Time    `json:"sampling_start"`
	RegisteredAt   time.Time    `json:"registered_at"`
	FrequencyHz    float64      `json:"frequency_hz"`
	Seismograph    *Seismograph `json:"seismograph,omitempty"`
	Samples        []Sample     `json:"samples"`
}

// StationName returns the name of the station the series was recorded
// through, or "" when the series carries no seismograph or station.
func (s TimeSeries) StationName() string {
	if s.Seismograph == nil || s.Seismograph.Station == nil {
		return ""
	}
	return s.Seismograph.Station.Name
}

// EventAttributes are the core attributes an external event source supplies
// when it creates an event.
type EventAttributes struct {
	OccurredAt     time.Time
	EndedAt        time.Time
	Epicenter      Coordinates
	Hypocenter     Coordinates
	Magnitude      *Magnitude
	Classification Tag
	Origin         Tag
	Scope          Tag
}

// SeismicEvent is the aggregate root of the review workflow. Series and state
// changes are owned by value; the current state is always derived from the
// open StateChange and never stored separately.
//
// StorageID fields here and on owned entities carry the gateway's surrogate
// keys through a load; they are zero for entities that were never stored.
type SeismicEvent struct {
	ID        EventID
	StorageID uint
	EventAttributes

	Series  []TimeSeries
	Changes []StateChange
}

// NewSeismicEvent creates a fully formed event whose history is seeded with a
// single open StateChange in the given state starting at since.
func NewSeismicEvent(attrs EventAttributes, initial State, since time.Time) *SeismicEvent {
	return &SeismicEvent{
		ID:              NewEventID(attrs.OccurredAt, attrs.Epicenter.Lat, attrs.Epicenter.Lon),
		EventAttributes: attrs,
		Changes:         []StateChange{{Start: since, State: initial}},
	}
}

// AddSeries appends a recorded series to the event.
func (e *SeismicEvent) AddSeries(series ...TimeSeries) {
	e.Series = append(e.Series, series...)
}

// CurrentState returns the state of the open StateChange. ok is false when the
// event has no open change, which only happens for events that were never
// initialized.
func (e *SeismicEvent) CurrentState() (State, bool) {
	i := e.openChange()
	if i < 0 {
		return State{}, false
	}
	return e.Changes[i].State, true
}

// InState reports whether the event currently occupies the named state.
func (e *SeismicEvent) InState(name string) bool {
	s, ok := e.CurrentState()
	return ok && s.Name == name
}

// StateSince returns when the current state was entered.
func (e *SeismicEvent) StateSince() (time.Time, bool) {
	i := e.openChange()
	if i < 0 {
		return time.Time{}, false
	}
	return e.Changes[i].Start, true
}

// History returns a copy of the transition history, oldest first.
func (e *SeismicEvent) History() []StateChange {
	out := make([]StateChange, len(e.Changes))
	copy(out, e.Changes)
	return out
}

func (e *SeismicEvent) openChange() int {
	for i := len(e.Changes) - 1; i >= 0; i-- {
		if e.Changes[i].Open() {
			return i
		}
	}
	return -1
}
