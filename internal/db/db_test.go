package db

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"iot-telemetry-api/config"
	"iot-telemetry-api/internal/model"
)

func TestInit_SQLiteMemory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := Init(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1, LogLevel: "silent"}, log)
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	defer sqlDB.Close()

	for _, m := range []any{&model.Admin{}, &model.Company{}, &model.Location{}, &model.Sensor{}, &model.Reading{}} {
		assert.True(t, gdb.Migrator().HasTable(m), "table for %T should exist", m)
	}
	assert.True(t, gdb.Migrator().HasTable("sensor_data"))
	assert.True(t, gdb.Migrator().HasIndex(&model.Reading{}, "idx_sensor_data_sensor_ts"))
}

func TestInit_UnknownDriver(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Init(&config.DatabaseConfig{Driver: "oracle", DSN: "x"}, log)
	assert.Error(t, err)
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
	assert.Equal(t, logger.Info, gormLogLevel("INFO"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}
