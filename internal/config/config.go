package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	ReviewUser      string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Event storage. An empty DSN selects the in-memory gateway.
	DatabaseDSN       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBAutoMigrate     bool
	SeedFile          string

	// Awaited state writes.
	PersistMaxAttempts    int
	PersistInitialBackoff time.Duration
	PersistMaxBackoff     time.Duration

	// Transition audit topic.
	AuditEnabled    bool
	KafkaBrokers    []string
	KafkaAuditTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	connMaxLifetime, err := parsePositiveDuration("DB_CONN_MAX_LIFETIME", "30m")
	if err != nil {
		return nil, err
	}
	initialBackoff, err := parsePositiveDuration("PERSIST_INITIAL_BACKOFF", "200ms")
	if err != nil {
		return nil, err
	}
	maxBackoff, err := parsePositiveDuration("PERSIST_MAX_BACKOFF", "5s")
	if err != nil {
		return nil, err
	}

	maxAttempts, err := parseIntInRange("PERSIST_MAX_ATTEMPTS", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	maxOpen, err := parseIntInRange("DB_MAX_OPEN_CONNS", 10, 1, 1000)
	if err != nil {
		return nil, err
	}
	maxIdle, err := parseIntInRange("DB_MAX_IDLE_CONNS", 5, 0, 1000)
	if err != nil {
		return nil, err
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		ReviewUser:      sharedcfg.EnvOrDefault("REVIEW_USER", "operator"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseDSN:       os.Getenv("DATABASE_DSN"),
		DBMaxOpenConns:    maxOpen,
		DBMaxIdleConns:    maxIdle,
		DBConnMaxLifetime: connMaxLifetime,
		DBAutoMigrate:     sharedcfg.EnvOrDefault("DB_AUTO_MIGRATE", "true") == "true",
		SeedFile:          os.Getenv("SEED_FILE"),

		PersistMaxAttempts:    maxAttempts,
		PersistInitialBackoff: initialBackoff,
		PersistMaxBackoff:     maxBackoff,

		AuditEnabled:    os.Getenv("AUDIT_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAuditTopic: sharedcfg.EnvOrDefault("KAFKA_AUDIT_TOPIC", "seismic-review-transitions"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	if cfg.ReviewUser == "" {
		return nil, errors.New("REVIEW_USER is required")
	}
	if cfg.PersistMaxBackoff < cfg.PersistInitialBackoff {
		return nil, errors.New("PERSIST_MAX_BACKOFF must not be shorter than PERSIST_INITIAL_BACKOFF")
	}
	if cfg.AuditEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("AUDIT_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.AuditEnabled && cfg.KafkaAuditTopic == "" {
		return nil, errors.New("KAFKA_AUDIT_TOPIC is required when AUDIT_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
