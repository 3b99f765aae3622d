package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"iot-telemetry-api/config"
	"iot-telemetry-api/internal/model"
)

// Init opens the configured database, sizes the pool and runs migrations.
func Init(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("running database migrations", "driver", cfg.Driver)
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableTimescale && cfg.Driver == "postgres" {
		log.Info("TimescaleDB is enabled, applying TimescaleDB-specific DDL")
		if err := applyTimescaleDDL(db); err != nil {
			log.Warn("failed to apply some TimescaleDB DDL, continuing without it", "error", err)
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate creates or updates the tables of every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Admin{},
		&model.Company{},
		&model.Location{},
		&model.Sensor{},
		&model.Reading{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite", "":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// applyTimescaleDDL turns sensor_data into a hypertable partitioned on the
// reading timestamp. Hypertables need the time column in every unique index,
// so the primary key is widened first.
func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",
		"ALTER TABLE sensor_data DROP CONSTRAINT IF EXISTS sensor_data_pkey;",
		"ALTER TABLE sensor_data ADD PRIMARY KEY (id, timestamp);",
		"SELECT create_hypertable('sensor_data', 'timestamp', if_not_exists => TRUE, migrate_data => TRUE);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
