// Package models holds the durable record shapes of seismic events and the
// mapping between records and domain entities. Records are gorm-tagged for the
// postgres gateway and JSON-tagged for seed fixtures.
package models

import (
	"time"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

type StationRecord struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	Code string `gorm:"type:text;uniqueIndex;not null" json:"code"`
	Name string `gorm:"type:text;not null" json:"name"`
}

func (StationRecord) TableName() string {
	return "stations"
}

type SeismographRecord struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"-"`
	Identifier   string         `gorm:"type:text;uniqueIndex;not null" json:"identifier"`
	SerialNumber string         `gorm:"type:text" json:"serial_number,omitempty"`
	AcquiredAt   time.Time      `gorm:"type:timestamptz" json:"acquired_at"`
	StationID    *uint          `gorm:"index" json:"-"`
	Station      *StationRecord `gorm:"foreignKey:StationID" json:"station,omitempty"`
}

func (SeismographRecord) TableName() string {
	return "seismographs"
}

type SampleDetailRecord struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	SampleID        uint    `gorm:"index;not null" json:"-"`
	Position        int     `gorm:"not null" json:"-"`
	Value           float64 `gorm:"not null" json:"value"`
	TypeName        string  `gorm:"type:text;not null" json:"type_name"`
	TypeDescription string  `gorm:"type:text" json:"type_description,omitempty"`
	Unit            string  `gorm:"type:text" json:"unit,omitempty"`
}

func (SampleDetailRecord) TableName() string {
	return "sample_details"
}

type SampleRecord struct {
	ID       uint                 `gorm:"primaryKey;autoIncrement" json:"-"`
	SeriesID uint                 `gorm:"index;not null" json:"-"`
	Position int                  `gorm:"not null" json:"-"`
	TakenAt  time.Time            `gorm:"type:timestamptz;not null" json:"taken_at"`
	Detail   string               `gorm:"type:text" json:"detail,omitempty"`
	Details  []SampleDetailRecord `gorm:"foreignKey:SampleID;constraint:OnDelete:CASCADE" json:"details"`
}

func (SampleRecord) TableName() string {
	return "samples"
}

type SeriesRecord struct {
	ID             uint               `gorm:"primaryKey;autoIncrement" json:"-"`
	EventID        uint               `gorm:"index;not null" json:"-"`
	Position       int                `gorm:"not null" json:"-"`
	AlarmCondition bool               `gorm:"not null;default:false" json:"alarm_condition"`
	SamplingStart  time.Time          `gorm:"type:timestamptz" json:"sampling_start"`
	RegisteredAt   time.Time          `gorm:"type:timestamptz" json:"registered_at"`
	FrequencyHz    float64            `json:"frequency_hz"`
	SeismographID  *uint              `gorm:"index" json:"-"`
	Seismograph    *SeismographRecord `gorm:"foreignKey:SeismographID" json:"seismograph,omitempty"`
	Samples        []SampleRecord     `gorm:"foreignKey:SeriesID;constraint:OnDelete:CASCADE" json:"samples"`
}

func (SeriesRecord) TableName() string {
	return "series"
}

// EventRecord is the persisted form of a seismic event. ID is a surrogate key
// owned by the database; Key is the natural key (domain.EventID) gateways use
// to relocate the record. Only the current state is stored, as State and
// StateSince.
type EventRecord struct {
	ID                        uint           `gorm:"primaryKey;autoIncrement" json:"-"`
	Key                       string         `gorm:"column:event_key;type:text;uniqueIndex;not null" json:"key,omitempty"`
	OccurredAt                time.Time      `gorm:"type:timestamptz;not null;index" json:"occurred_at"`
	EndedAt                   time.Time      `gorm:"type:timestamptz" json:"ended_at"`
	EpicenterLat              float64        `gorm:"not null" json:"epicenter_lat"`
	EpicenterLon              float64        `gorm:"not null" json:"epicenter_lon"`
	HypocenterLat             float64        `json:"hypocenter_lat"`
	HypocenterLon             float64        `json:"hypocenter_lon"`
	MagnitudeValue            *float64       `json:"magnitude_value,omitempty"`
	MagnitudeDescriptor       string         `gorm:"type:text" json:"magnitude_descriptor,omitempty"`
	State                     string         `gorm:"type:text;not null;index" json:"state"`
	StateSince                time.Time      `gorm:"type:timestamptz" json:"state_since"`
	ClassificationName        string         `gorm:"type:text" json:"classification_name,omitempty"`
	ClassificationDescription string         `gorm:"type:text" json:"classification_description,omitempty"`
	OriginName                string         `gorm:"type:text" json:"origin_name,omitempty"`
	OriginDescription         string         `gorm:"type:text" json:"origin_description,omitempty"`
	ScopeName                 string         `gorm:"type:text" json:"scope_name,omitempty"`
	ScopeDescription          string         `gorm:"type:text" json:"scope_description,omitempty"`
	Series                    []SeriesRecord `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"series"`
}

func (EventRecord) TableName() string {
	return "seismic_events"
}

// NaturalKey returns Key, or the key derived from occurrence time and
// epicenter when the record was written without one.
func (r *EventRecord) NaturalKey() domain.EventID {
	if r.Key != "" {
		return domain.EventID(r.Key)
	}
	return domain.NewEventID(r.OccurredAt, r.EpicenterLat, r.EpicenterLon)
}

// Normalize fills the fields a hand-written fixture may leave out: the natural
// key, positions from slice order, and a state start defaulting to the
// occurrence time.
func (r *EventRecord) Normalize() {
	r.Key = string(r.NaturalKey())
	if r.StateSince.IsZero() {
		r.StateSince = r.OccurredAt
	}
	for i := range r.Series {
		r.Series[i].Position = i
		for j := range r.Series[i].Samples {
			r.Series[i].Samples[j].Position = j
			for k := range r.Series[i].Samples[j].Details {
				r.Series[i].Samples[j].Details[k].Position = k
			}
		}
	}
}

// Clone copies the record and everything it owns. Seismograph and station
// records are copied too, so the clone shares nothing with r.
func (r *EventRecord) Clone() EventRecord {
	out := *r
	if r.MagnitudeValue != nil {
		v := *r.MagnitudeValue
		out.MagnitudeValue = &v
	}
	out.Series = make([]SeriesRecord, len(r.Series))
	for i, sr := range r.Series {
		if sr.Seismograph != nil {
			sg := *sr.Seismograph
			if sg.Station != nil {
				st := *sg.Station
				sg.Station = &st
			}
			sr.Seismograph = &sg
		}
		samples := make([]SampleRecord, len(sr.Samples))
		for j, smp := range sr.Samples {
			smp.Details = append([]SampleDetailRecord(nil), smp.Details...)
			samples[j] = smp
		}
		sr.Samples = samples
		out.Series[i] = sr
	}
	return out
}

// All lists every record type in dependency order, for migrations.
func All() []any {
	return []any{
		&StationRecord{},
		&SeismographRecord{},
		&EventRecord{},
		&SeriesRecord{},
		&SampleRecord{},
		&SampleDetailRecord{},
	}
}
