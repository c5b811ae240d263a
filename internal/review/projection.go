package review

import (
	"cmp"
	"slices"
	"time"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

// EventSummary is one row of the pending-review list.
type EventSummary struct {
	ID             domain.EventID     `json:"id"`
	OccurredAt     time.Time          `json:"occurred_at"`
	Epicenter      domain.Coordinates `json:"epicenter"`
	Hypocenter     domain.Coordinates `json:"hypocenter"`
	Magnitude      *domain.Magnitude  `json:"magnitude,omitempty"`
	Scope          string             `json:"scope,omitempty"`
	Classification string             `json:"classification,omitempty"`
	Origin         string             `json:"origin,omitempty"`
	State          string             `json:"state"`
}

// Reading is one typed value of a sample.
type Reading struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// SampleRow is one sample of a series, flattened for display.
type SampleRow struct {
	TakenAt  time.Time `json:"taken_at"`
	Note     string    `json:"note,omitempty"`
	Readings []Reading `json:"readings"`
}

// Value returns the reading with the given data kind name.
func (r SampleRow) Value(name string) (float64, bool) {
	for _, rd := range r.Readings {
		if rd.Name == name {
			return rd.Value, true
		}
	}
	return 0, false
}

// SeriesTable is the sample table of one series. Station is empty when the
// series carries no seismograph or station.
type SeriesTable struct {
	Station        string      `json:"station"`
	Seismograph    string      `json:"seismograph,omitempty"`
	AlarmCondition bool        `json:"alarm_condition"`
	SamplingStart  time.Time   `json:"sampling_start"`
	FrequencyHz    float64     `json:"frequency_hz"`
	Rows           []SampleRow `json:"rows"`
}

// EventDetail is the full view of the selected event. Series and Stations are
// parallel and in the event's series order.
type EventDetail struct {
	ID             domain.EventID     `json:"id"`
	OccurredAt     time.Time          `json:"occurred_at"`
	EndedAt        time.Time          `json:"ended_at"`
	Epicenter      domain.Coordinates `json:"epicenter"`
	Hypocenter     domain.Coordinates `json:"hypocenter"`
	Magnitude      *domain.Magnitude  `json:"magnitude,omitempty"`
	Scope          domain.Tag         `json:"scope"`
	Classification domain.Tag         `json:"classification"`
	Origin         domain.Tag         `json:"origin"`
	State          string             `json:"state"`
	StateSince     time.Time          `json:"state_since"`
	Place          domain.Place       `json:"place"`
	Series         []SeriesTable      `json:"series"`
	Stations       []string           `json:"stations"`
}

// ByStation returns the series tables ordered by station name. Series from
// the same station, and series without a station, keep their relative order.
func (d EventDetail) ByStation() []SeriesTable {
	out := slices.Clone(d.Series)
	slices.SortStableFunc(out, func(a, b SeriesTable) int {
		return cmp.Compare(a.Station, b.Station)
	})
	return out
}

func summarize(ev *domain.SeismicEvent) EventSummary {
	s := EventSummary{
		ID:             ev.ID,
		OccurredAt:     ev.OccurredAt,
		Epicenter:      ev.Epicenter,
		Hypocenter:     ev.Hypocenter,
		Magnitude:      copyMagnitude(ev.Magnitude),
		Scope:          ev.Scope.Name,
		Classification: ev.Classification.Name,
		Origin:         ev.Origin.Name,
	}
	if state, ok := ev.CurrentState(); ok {
		s.State = state.Name
	}
	return s
}

func detailOf(ev *domain.SeismicEvent, place domain.Place) EventDetail {
	d := EventDetail{
		ID:             ev.ID,
		OccurredAt:     ev.OccurredAt,
		EndedAt:        ev.EndedAt,
		Epicenter:      ev.Epicenter,
		Hypocenter:     ev.Hypocenter,
		Magnitude:      copyMagnitude(ev.Magnitude),
		Scope:          ev.Scope,
		Classification: ev.Classification,
		Origin:         ev.Origin,
		Place:          place,
		Series:         make([]SeriesTable, 0, len(ev.Series)),
		Stations:       make([]string, 0, len(ev.Series)),
	}
	if state, ok := ev.CurrentState(); ok {
		d.State = state.Name
	}
	if since, ok := ev.StateSince(); ok {
		d.StateSince = since
	}

	for _, ts := range ev.Series {
		table := SeriesTable{
			Station:        ts.StationName(),
			AlarmCondition: ts.AlarmCondition,
			SamplingStart:  ts.SamplingStart,
			FrequencyHz:    ts.FrequencyHz,
			Rows:           make([]SampleRow, 0, len(ts.Samples)),
		}
		if ts.Seismograph != nil {
			table.Seismograph = ts.Seismograph.Identifier
		}
		for _, smp := range ts.Samples {
			row := SampleRow{
				TakenAt:  smp.TakenAt,
				Note:     smp.Note,
				Readings: make([]Reading, 0, len(smp.Details)),
			}
			for _, det := range smp.Details {
				row.Readings = append(row.Readings, Reading{Name: det.Kind.Name, Value: det.Value, Unit: det.Kind.Unit})
			}
			table.Rows = append(table.Rows, row)
		}
		d.Series = append(d.Series, table)
		d.Stations = append(d.Stations, table.Station)
	}
	return d
}

func copyMagnitude(m *domain.Magnitude) *domain.Magnitude {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
