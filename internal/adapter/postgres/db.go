// Package postgres is the gorm-backed gateway for seismic event records.
package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/couchcryptid/seismic-review-service/internal/config"
	"github.com/couchcryptid/seismic-review-service/internal/models"
)

// Open connects to the database named by cfg.DatabaseDSN and applies the pool
// settings. When cfg.DBAutoMigrate is set the schema is migrated as well.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqldb.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if cfg.DBAutoMigrate {
		if err := Migrate(ctx, gdb); err != nil {
			_ = sqldb.Close()
			return nil, err
		}
	}
	return gdb, nil
}

// Migrate creates or updates the event tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqldb, err := db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}
