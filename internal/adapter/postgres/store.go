package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/models"
)

// Store reads and writes event records through gorm. Only the current state of
// an event is stored; history beyond it lives in memory for the session.
type Store struct {
	db      *gorm.DB
	catalog *domain.Catalog
}

func NewStore(db *gorm.DB, catalog *domain.Catalog) *Store {
	return &Store{db: db, catalog: catalog}
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// LoadAll hydrates every stored event with its series, samples and instruments.
func (s *Store) LoadAll(ctx context.Context) ([]*domain.SeismicEvent, error) {
	var recs []models.EventRecord
	err := s.db.WithContext(ctx).
		Preload("Series", byPosition).
		Preload("Series.Seismograph.Station").
		Preload("Series.Samples", byPosition).
		Preload("Series.Samples.Details", byPosition).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load events: %w: %w", domain.ErrPersistence, err)
	}

	events, err := models.ToDomainAll(recs, s.catalog)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return events, nil
}

// UpdateState stores state as the event's current state, started at at.
func (s *Store) UpdateState(ctx context.Context, id domain.EventID, state string, at time.Time) error {
	if _, err := s.catalog.Find(state); err != nil {
		return fmt.Errorf("update state %s: %w", id, err)
	}

	res := s.db.WithContext(ctx).
		Model(&models.EventRecord{}).
		Where("event_key = ?", string(id)).
		Updates(map[string]any{
			"state":       state,
			"state_since": at,
		})
	if res.Error != nil {
		return fmt.Errorf("update state %s: %w: %w", id, domain.ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update state %s: event: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Seed inserts the records whose natural key is not stored yet and returns how
// many were added. Stations and seismographs are shared by code and
// identifier. The whole batch commits or none of it does.
func (s *Store) Seed(ctx context.Context, recs []models.EventRecord) (int, error) {
	added := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seeder := &seeder{
			tx:           tx,
			stations:     make(map[string]uint),
			seismographs: make(map[string]uint),
		}
		for _, rec := range recs {
			rec = rec.Clone()
			rec.Normalize()

			var count int64
			if err := tx.Model(&models.EventRecord{}).Where("event_key = ?", rec.Key).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := seeder.linkInstruments(&rec); err != nil {
				return err
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("insert event %s: %w", rec.Key, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed events: %w: %w", domain.ErrPersistence, err)
	}
	return added, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.PingContext(ctx)
}

type seeder struct {
	tx           *gorm.DB
	stations     map[string]uint
	seismographs map[string]uint
}

// linkInstruments upserts each series' seismograph and replaces the nested
// record with its foreign key, so Create does not write instruments twice.
func (sd *seeder) linkInstruments(rec *models.EventRecord) error {
	for i := range rec.Series {
		sr := &rec.Series[i]
		if sr.Seismograph == nil {
			continue
		}
		id, err := sd.seismograph(sr.Seismograph)
		if err != nil {
			return err
		}
		sr.SeismographID = &id
		sr.Seismograph = nil
	}
	return nil
}

func (sd *seeder) seismograph(rec *models.SeismographRecord) (uint, error) {
	if id, ok := sd.seismographs[rec.Identifier]; ok {
		return id, nil
	}
	if rec.Identifier == "" {
		return 0, errors.New("seismograph identifier is required")
	}

	sg := *rec
	sg.ID = 0
	if sg.Station != nil {
		id, err := sd.station(sg.Station)
		if err != nil {
			return 0, err
		}
		sg.StationID = &id
		sg.Station = nil
	}

	err := sd.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"serial_number", "acquired_at", "station_id"}),
	}).Create(&sg).Error
	if err != nil {
		return 0, fmt.Errorf("upsert seismograph %s: %w", rec.Identifier, err)
	}
	sd.seismographs[rec.Identifier] = sg.ID
	return sg.ID, nil
}

func (sd *seeder) station(rec *models.StationRecord) (uint, error) {
	if id, ok := sd.stations[rec.Code]; ok {
		return id, nil
	}
	if rec.Code == "" {
		return 0, errors.New("station code is required")
	}

	st := models.StationRecord{Code: rec.Code, Name: rec.Name}
	err := sd.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&st).Error
	if err != nil {
		return 0, fmt.Errorf("upsert station %s: %w", rec.Code, err)
	}
	sd.stations[rec.Code] = st.ID
	return st.ID, nil
}
