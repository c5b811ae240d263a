// Package memory is a gateway that keeps event records in process memory. It
// backs the service when no database is configured and serves as the
// reference gateway in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/models"
)

type Store struct {
	catalog *domain.Catalog

	mu      sync.RWMutex
	records []models.EventRecord
	index   map[domain.EventID]int
}

func NewStore(catalog *domain.Catalog) *Store {
	return &Store{catalog: catalog, index: make(map[domain.EventID]int)}
}

// Seed adds records whose natural key is not stored yet and returns how many
// were added. Records keep their arrival order.
func (s *Store) Seed(ctx context.Context, recs []models.EventRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("seed events: %w: %w", domain.ErrPersistence, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, rec := range recs {
		rec = rec.Clone()
		rec.Normalize()
		key := domain.EventID(rec.Key)
		if _, exists := s.index[key]; exists {
			continue
		}
		s.index[key] = len(s.records)
		s.records = append(s.records, rec)
		added++
	}
	return added, nil
}

// LoadAll hydrates every stored record, interning stations and seismographs
// across the whole set.
func (s *Store) LoadAll(ctx context.Context) ([]*domain.SeismicEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load events: %w: %w", domain.ErrPersistence, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, err := models.ToDomainAll(s.records, s.catalog)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return events, nil
}

// UpdateState records the event's new current state.
func (s *Store) UpdateState(ctx context.Context, id domain.EventID, state string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("update state %s: %w: %w", id, domain.ErrPersistence, err)
	}
	if _, err := s.catalog.Find(state); err != nil {
		return fmt.Errorf("update state %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("update state %s: event: %w", id, domain.ErrNotFound)
	}
	s.records[i].State = state
	s.records[i].StateSince = at
	return nil
}

// Record returns a copy of the stored record for id.
func (s *Store) Record(id domain.EventID) (models.EventRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.EventRecord{}, false
	}
	return s.records[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CheckReadiness always succeeds while the context is live.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return ctx.Err()
}
