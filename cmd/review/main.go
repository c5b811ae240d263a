package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/couchcryptid/seismic-review-service/internal/adapter/console"
	httpadapter "github.com/couchcryptid/seismic-review-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/seismic-review-service/internal/adapter/kafka"
	"github.com/couchcryptid/seismic-review-service/internal/adapter/mapbox"
	"github.com/couchcryptid/seismic-review-service/internal/adapter/memory"
	"github.com/couchcryptid/seismic-review-service/internal/adapter/postgres"
	"github.com/couchcryptid/seismic-review-service/internal/config"
	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/models"
	"github.com/couchcryptid/seismic-review-service/internal/observability"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

// eventStore is what both gateways offer the process.
type eventStore interface {
	review.Gateway
	sharedobs.ReadinessChecker
	Seed(ctx context.Context, recs []models.EventRecord) (int, error)
}

func main() {
	headless := flag.Bool("headless", false, "serve probes and metrics only, without the operator console")
	history := flag.String("history", "", "console history file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, !*headless)
	metrics := observability.NewMetrics()
	catalog := domain.LoadCatalog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, catalog, logger)
	if err != nil {
		logger.Error("failed to open event store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	if cfg.SeedFile != "" {
		if err := seed(ctx, store, cfg.SeedFile, logger); err != nil {
			logger.Error("failed to seed events", "error", err)
			os.Exit(1)
		}
	}

	clock := clockwork.NewRealClock()
	opts := []review.Option{
		review.WithClock(clock),
		review.WithLogger(logger),
		review.WithMetrics(metrics),
		review.WithRetry(review.RetryPolicy{
			MaxAttempts:    cfg.PersistMaxAttempts,
			InitialBackoff: cfg.PersistInitialBackoff,
			MaxBackoff:     cfg.PersistMaxBackoff,
		}),
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts = append(opts, review.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var publisher *kafkaadapter.Publisher
	if cfg.AuditEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, review.WithNotifier(publisher))
		logger.Info("transition audit enabled", "topic", cfg.KafkaAuditTopic, "brokers", cfg.KafkaBrokers)
	}

	session := review.NewSession(cfg.ReviewUser, clock.Now())
	coord := review.New(store, catalog, session, opts...)
	logger.Info("review session started", "user", session.User, "session_id", session.ID)

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, coord, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if *headless {
		<-ctx.Done()
	} else {
		if err := console.Run(ctx, coord, session.User, *history, logger); err != nil {
			logger.Error("console error", "error", err)
		}
		stop()
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if coord.Unsynced() {
		st := coord.Status()
		logger.Warn("exiting with an unsaved transition", "event_id", st.UnsyncedID, "state", st.UnsyncedState)
	}

	logger.Info("shutdown complete")
}

// openStore returns the postgres gateway when a DSN is configured and the
// in-memory gateway otherwise. db is nil for the in-memory gateway.
func openStore(ctx context.Context, cfg *config.Config, catalog *domain.Catalog, logger *slog.Logger) (eventStore, *gorm.DB, error) {
	if cfg.DatabaseDSN == "" {
		logger.Info("no DATABASE_DSN set, keeping events in memory")
		return memory.NewStore(catalog), nil, nil
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database", "auto_migrate", cfg.DBAutoMigrate)
	return postgres.NewStore(db, catalog), db, nil
}

func seed(ctx context.Context, store eventStore, path string, logger *slog.Logger) error {
	recs, err := models.LoadFixture(path)
	if err != nil {
		return err
	}
	added, err := store.Seed(ctx, recs)
	if err != nil {
		return err
	}
	logger.Info("seeded events", "file", path, "records", len(recs), "added", added)
	return nil
}
