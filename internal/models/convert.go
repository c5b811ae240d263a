package models

import (
	"fmt"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

// Instruments interns stations and seismographs while a batch of records is
// hydrated, so every series recorded through the same instrument shares one
// pointer.
type Instruments struct {
	stations     map[string]*domain.Station
	seismographs map[string]*domain.Seismograph
}

func NewInstruments() *Instruments {
	return &Instruments{
		stations:     make(map[string]*domain.Station),
		seismographs: make(map[string]*domain.Seismograph),
	}
}

func (in *Instruments) station(rec *StationRecord) *domain.Station {
	if rec == nil {
		return nil
	}
	if s, ok := in.stations[rec.Code]; ok {
		return s
	}
	s := &domain.Station{StorageID: rec.ID, Name: rec.Name, Code: rec.Code}
	in.stations[rec.Code] = s
	return s
}

func (in *Instruments) seismograph(rec *SeismographRecord) *domain.Seismograph {
	if rec == nil {
		return nil
	}
	if s, ok := in.seismographs[rec.Identifier]; ok {
		return s
	}
	s := &domain.Seismograph{
		StorageID:    rec.ID,
		Identifier:   rec.Identifier,
		SerialNumber: rec.SerialNumber,
		AcquiredAt:   rec.AcquiredAt,
		Station:      in.station(rec.Station),
	}
	in.seismographs[rec.Identifier] = s
	return s
}

// ToDomain hydrates a record into a fully formed event whose history holds a
// single open change for the persisted state. A state name the catalog does
// not know is reported as domain.ErrCorruptData; it is never reset to a
// default. A nil instruments interns within this record only.
func ToDomain(rec *EventRecord, catalog *domain.Catalog, instruments *Instruments) (*domain.SeismicEvent, error) {
	key := rec.NaturalKey()
	state, err := catalog.Find(rec.State)
	if err != nil {
		return nil, fmt.Errorf("hydrate event %s: %w: %w", key, domain.ErrCorruptData, err)
	}
	if instruments == nil {
		instruments = NewInstruments()
	}

	attrs := domain.EventAttributes{
		OccurredAt:     rec.OccurredAt,
		EndedAt:        rec.EndedAt,
		Epicenter:      domain.Coordinates{Lat: rec.EpicenterLat, Lon: rec.EpicenterLon},
		Hypocenter:     domain.Coordinates{Lat: rec.HypocenterLat, Lon: rec.HypocenterLon},
		Classification: domain.Tag{Name: rec.ClassificationName, Description: rec.ClassificationDescription},
		Origin:         domain.Tag{Name: rec.OriginName, Description: rec.OriginDescription},
		Scope:          domain.Tag{Name: rec.ScopeName, Description: rec.ScopeDescription},
	}
	if rec.MagnitudeValue != nil {
		attrs.Magnitude = &domain.Magnitude{Value: *rec.MagnitudeValue, Descriptor: rec.MagnitudeDescriptor}
	}

	since := rec.StateSince
	if since.IsZero() {
		since = rec.OccurredAt
	}
	ev := domain.NewSeismicEvent(attrs, state, since)
	ev.ID = key
	ev.StorageID = rec.ID

	for _, sr := range rec.Series {
		ev.AddSeries(seriesToDomain(sr, instruments))
	}
	return ev, nil
}

// ToDomainAll hydrates a batch, interning instruments across all records.
func ToDomainAll(recs []EventRecord, catalog *domain.Catalog) ([]*domain.SeismicEvent, error) {
	instruments := NewInstruments()
	events := make([]*domain.SeismicEvent, 0, len(recs))
	for i := range recs {
		ev, err := ToDomain(&recs[i], catalog, instruments)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func seriesToDomain(sr SeriesRecord, instruments *Instruments) domain.TimeSeries {
	ts := domain.TimeSeries{
		StorageID:      sr.ID,
		AlarmCondition: sr.AlarmCondition,
		SamplingStart:  sr.SamplingStart,
		RegisteredAt:   sr.RegisteredAt,
		FrequencyHz:    sr.FrequencyHz,
		Seismograph:    instruments.seismograph(sr.Seismograph),
		Samples:        make([]domain.Sample, 0, len(sr.Samples)),
	}
	for _, smp := range sr.Samples {
		s := domain.Sample{
			StorageID: smp.ID,
			TakenAt:   smp.TakenAt,
			Note:      smp.Detail,
			Details:   make([]domain.SampleDetail, 0, len(smp.Details)),
		}
		for _, d := range smp.Details {
			s.Details = append(s.Details, domain.SampleDetail{
				StorageID: d.ID,
				Value:     d.Value,
				Kind:      domain.DataKind{Name: d.TypeName, Description: d.TypeDescription, Unit: d.Unit},
			})
		}
		ts.Samples = append(ts.Samples, s)
	}
	return ts
}

// FromDomain flattens an event into its record. Surrogate keys and the
// foreign keys that point at them come from the StorageID fields, so an event
// that was never stored yields a record with zero IDs for the gateway to assign.
func FromDomain(ev *domain.SeismicEvent) *EventRecord {
	rec := &EventRecord{
		ID:                        ev.StorageID,
		Key:                       string(ev.ID),
		OccurredAt:                ev.OccurredAt,
		EndedAt:                   ev.EndedAt,
		EpicenterLat:              ev.Epicenter.Lat,
		EpicenterLon:              ev.Epicenter.Lon,
		HypocenterLat:             ev.Hypocenter.Lat,
		HypocenterLon:             ev.Hypocenter.Lon,
		ClassificationName:        ev.Classification.Name,
		ClassificationDescription: ev.Classification.Description,
		OriginName:                ev.Origin.Name,
		OriginDescription:         ev.Origin.Description,
		ScopeName:                 ev.Scope.Name,
		ScopeDescription:          ev.Scope.Description,
		Series:                    make([]SeriesRecord, 0, len(ev.Series)),
	}
	if ev.Magnitude != nil {
		v := ev.Magnitude.Value
		rec.MagnitudeValue = &v
		rec.MagnitudeDescriptor = ev.Magnitude.Descriptor
	}
	if state, ok := ev.CurrentState(); ok {
		rec.State = state.Name
	}
	if since, ok := ev.StateSince(); ok {
		rec.StateSince = since
	}

	for i, ts := range ev.Series {
		sr := SeriesRecord{
			ID:             ts.StorageID,
			EventID:        ev.StorageID,
			Position:       i,
			AlarmCondition: ts.AlarmCondition,
			SamplingStart:  ts.SamplingStart,
			RegisteredAt:   ts.RegisteredAt,
			FrequencyHz:    ts.FrequencyHz,
			Seismograph:    seismographRecord(ts.Seismograph),
			Samples:        make([]SampleRecord, 0, len(ts.Samples)),
		}
		if sr.Seismograph != nil && sr.Seismograph.ID != 0 {
			id := sr.Seismograph.ID
			sr.SeismographID = &id
		}
		for j, s := range ts.Samples {
			smp := SampleRecord{
				ID:       s.StorageID,
				SeriesID: ts.StorageID,
				Position: j,
				TakenAt:  s.TakenAt,
				Detail:   s.Note,
				Details:  make([]SampleDetailRecord, 0, len(s.Details)),
			}
			for k, d := range s.Details {
				smp.Details = append(smp.Details, SampleDetailRecord{
					ID:              d.StorageID,
					SampleID:        s.StorageID,
					Position:        k,
					Value:           d.Value,
					TypeName:        d.Kind.Name,
					TypeDescription: d.Kind.Description,
					Unit:            d.Kind.Unit,
				})
			}
			sr.Samples = append(sr.Samples, smp)
		}
		rec.Series = append(rec.Series, sr)
	}
	return rec
}

func seismographRecord(s *domain.Seismograph) *SeismographRecord {
	if s == nil {
		return nil
	}
	rec := &SeismographRecord{
		ID:           s.StorageID,
		Identifier:   s.Identifier,
		SerialNumber: s.SerialNumber,
		AcquiredAt:   s.AcquiredAt,
	}
	if s.Station != nil {
		rec.Station = &StationRecord{ID: s.Station.StorageID, Name: s.Station.Name, Code: s.Station.Code}
		if s.Station.StorageID != 0 {
			id := s.Station.StorageID
			rec.StationID = &id
		}
	}
	return rec
}
