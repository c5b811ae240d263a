//go:build integration

package postgres_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/couchcryptid/seismic-review-service/internal/adapter/postgres"
	"github.com/couchcryptid/seismic-review-service/internal/config"
	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/models"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

const fixture = `[
  {
    "occurred_at": "2024-01-01T00:00:00Z",
    "ended_at": "2024-01-01T00:02:00Z",
    "epicenter_lat": -31.42, "epicenter_lon": -64.18,
    "magnitude_value": 5.2, "magnitude_descriptor": "Richter",
    "state": "autoDetectado",
    "scope_name": "regional", "origin_name": "tectonico",
    "series": [
      {"frequency_hz": 50, "alarm_condition": true, "sampling_start": "2024-01-01T00:00:00Z",
       "seismograph": {"identifier": "SG-1", "serial_number": "A1", "station": {"code": "CBN", "name": "Córdoba Norte"}},
       "samples": [
         {"taken_at": "2024-01-01T00:00:00Z", "details": [
           {"value": 7.1, "type_name": "velocidad", "unit": "km/s"},
           {"value": 10, "type_name": "frecuencia", "unit": "Hz"}
         ]},
         {"taken_at": "2024-01-01T00:00:01Z", "details": [{"value": 0.7, "type_name": "longitud", "unit": "km/ciclo"}]}
       ]},
      {"frequency_hz": 20,
       "seismograph": {"identifier": "SG-2", "station": {"code": "MDZ", "name": "Mendoza"}},
       "samples": [{"taken_at": "2024-01-01T00:00:00Z", "details": [{"value": 6.4, "type_name": "velocidad", "unit": "km/s"}]}]}
    ]
  },
  {
    "occurred_at": "2024-01-01T01:00:00Z",
    "epicenter_lat": -32.00, "epicenter_lon": -65.00,
    "state": "autoDetectado",
    "series": [
      {"frequency_hz": 20,
       "seismograph": {"identifier": "SG-1", "station": {"code": "CBN", "name": "Córdoba Norte"}},
       "samples": []}
    ]
  }
]`

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("review"),
		tcpostgres.WithUsername("review"),
		tcpostgres.WithPassword("review"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func openStore(ctx context.Context, t *testing.T) *postgres.Store {
	t.Helper()
	cfg := &config.Config{
		DatabaseDSN:       startPostgres(ctx, t),
		DBMaxOpenConns:    4,
		DBMaxIdleConns:    2,
		DBConnMaxLifetime: time.Minute,
		DBAutoMigrate:     true,
	}
	db, err := postgres.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = postgres.Close(db) })

	store := postgres.NewStore(db, domain.LoadCatalog())
	require.NoError(t, store.CheckReadiness(ctx))
	return store
}

func TestStore_SeedAndLoad(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := openStore(ctx, t)

	recs, err := models.ParseFixture([]byte(fixture))
	require.NoError(t, err)

	n, err := store.Seed(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.Seed(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "reseeding skips stored keys")

	events, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, domain.EventID(recs[0].Key), first.ID)
	require.NotNil(t, first.Magnitude)
	assert.InDelta(t, 5.2, first.Magnitude.Value, 1e-9)
	require.Len(t, first.Series, 2)
	assert.Equal(t, "Córdoba Norte", first.Series[0].StationName())
	assert.Equal(t, "Mendoza", first.Series[1].StationName())
	require.Len(t, first.Series[0].Samples, 2)
	assert.Equal(t, "velocidad", first.Series[0].Samples[0].Details[0].Kind.Name)
	assert.Equal(t, "frecuencia", first.Series[0].Samples[0].Details[1].Kind.Name)
	assert.Same(t, first.Series[0].Seismograph, events[1].Series[0].Seismograph)
	assert.Nil(t, events[1].Magnitude)
}

func TestStore_UpdateState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := openStore(ctx, t)

	recs, err := models.ParseFixture([]byte(fixture))
	require.NoError(t, err)
	_, err = store.Seed(ctx, recs)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	id := domain.EventID(recs[1].Key)
	require.NoError(t, store.UpdateState(ctx, id, domain.StateLockedInReview, at))

	events, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.True(t, events[1].InState(domain.StateLockedInReview))
	since, ok := events[1].StateSince()
	require.True(t, ok)
	assert.True(t, since.Equal(at))

	err = store.UpdateState(ctx, "evt-missing", domain.StateConfirmed, at)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = store.UpdateState(ctx, id, "archivado", at)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ReviewWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := openStore(ctx, t)

	recs, err := models.ParseFixture([]byte(fixture))
	require.NoError(t, err)
	_, err = store.Seed(ctx, recs)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))
	coord := review.New(store, domain.LoadCatalog(), review.NewSession("analista", clock.Now()), review.WithClock(clock))

	seq, err := coord.LoadPendingReviews(ctx)
	require.NoError(t, err)
	rows := slices.Collect(seq)
	require.Len(t, rows, 2)

	_, err = coord.SelectEvent(ctx, rows[0].ID)
	require.NoError(t, err)
	_, err = coord.Reject(ctx)
	require.NoError(t, err)

	seq, err = coord.LoadPendingReviews(ctx)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 1)

	events, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.True(t, events[0].InState(domain.StateRejected))
}
