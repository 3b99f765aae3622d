package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"iot-telemetry-api/config"
	"iot-telemetry-api/internal/db"
	"iot-telemetry-api/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore returns a store over a fresh in-memory database.
func newSQLiteStore(t *testing.T) (*gormStore, *gorm.DB) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1, LogLevel: "silent"}, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})
	return NewGormStore(gdb).(*gormStore), gdb
}

// seedSensor creates a company, a location and a sensor and returns their ids and keys.
type seeded struct {
	company    model.Company
	companyKey string
	location   model.Location
	sensor     model.Sensor
	sensorKey  string
}

func seedSensor(t *testing.T, s *gormStore, companyName string) seeded {
	t.Helper()
	ctx := context.Background()

	company, companyKey, err := s.CreateCompany(ctx, companyName)
	require.NoError(t, err)

	loc := model.Location{CompanyID: company.ID, Name: companyName + " HQ", Country: "ES", City: "Madrid"}
	require.NoError(t, s.CreateLocation(ctx, &loc))

	sensor := model.Sensor{LocationID: loc.ID, Name: "thermo", Category: "temperature"}
	sensorKey, err := s.CreateSensor(ctx, company.ID, &sensor)
	require.NoError(t, err)

	return seeded{company: company, companyKey: companyKey, location: loc, sensor: sensor, sensorKey: sensorKey}
}

func TestGormStore_Keys(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	a := seedSensor(t, s, "Acme")
	b := seedSensor(t, s, "Globex")

	keys := []string{a.companyKey, a.sensorKey, b.companyKey, b.sensorKey}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			assert.NotEqual(t, keys[i], keys[j], "issued keys must be unique")
		}
	}

	t.Run("Resolves company key", func(t *testing.T) {
		company, err := s.CompanyByKey(ctx, a.companyKey)
		require.NoError(t, err)
		assert.Equal(t, a.company.ID, company.ID)
	})

	t.Run("Resolves sensor key", func(t *testing.T) {
		sensor, err := s.SensorByKey(ctx, b.sensorKey)
		require.NoError(t, err)
		assert.Equal(t, b.sensor.ID, sensor.ID)
	})

	t.Run("Company key does not resolve as sensor key", func(t *testing.T) {
		_, err := s.SensorByKey(ctx, a.companyKey)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unknown and malformed keys are not found", func(t *testing.T) {
		_, err := s.CompanyByKey(ctx, "00000000000000000000000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.CompanyByKey(ctx, "short")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Key survives sensor update", func(t *testing.T) {
		_, err := s.UpdateSensor(ctx, a.company.ID, a.sensor.ID, SensorFields{Name: "renamed", Category: "humidity"})
		require.NoError(t, err)
		sensor, err := s.SensorByKey(ctx, a.sensorKey)
		require.NoError(t, err)
		assert.Equal(t, "renamed", sensor.Name)
	})
}

func TestGormStore_CreateSensorRequiresOwnedLocation(t *testing.T) {
	s, _ := newSQLiteStore(t)
	a := seedSensor(t, s, "Acme")
	b := seedSensor(t, s, "Globex")

	sensor := model.Sensor{LocationID: b.location.ID, Name: "intruder"}
	_, err := s.CreateSensor(context.Background(), a.company.ID, &sensor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_DuplicateAdmin(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.CreateAdmin(ctx, "alice", "hash")
	require.NoError(t, err)
	_, err = s.CreateAdmin(ctx, "alice", "hash2")
	assert.ErrorIs(t, err, ErrDuplicate)

	admin, err := s.AdminByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", admin.PasswordHash)

	_, err = s.AdminByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_InsertReadings(t *testing.T) {
	s, gdb := newSQLiteStore(t)
	ctx := context.Background()
	seed := seedSensor(t, s, "Acme")

	batch, err := s.InsertReadings(ctx, seed.sensor.ID, []ReadingInput{
		{Key: "temp", Value: "21.5"},
		{Key: "humidity", Value: "40"},
		{Key: "pressure", Value: "1013"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, batch.ID)

	var rows []model.Reading
	require.NoError(t, gdb.Where("sensor_id = ?", seed.sensor.ID).Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, batch.ID, r.BatchID, "all rows share one submission")
		assert.True(t, batch.Timestamp.Equal(r.Timestamp.UTC()), "all rows share one timestamp")
	}
}

func TestGormStore_TimestampsAreMonotonic(t *testing.T) {
	s, _ := newSQLiteStore(t)
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return frozen }

	seed := seedSensor(t, s, "Acme")
	first, err := s.InsertReadings(context.Background(), seed.sensor.ID, []ReadingInput{{Key: "a", Value: "1"}})
	require.NoError(t, err)
	second, err := s.InsertReadings(context.Background(), seed.sensor.ID, []ReadingInput{{Key: "a", Value: "2"}})
	require.NoError(t, err)

	assert.True(t, second.Timestamp.After(first.Timestamp), "a frozen clock must still yield increasing timestamps")
}

func TestGormStore_QueryReadings(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	acme := seedSensor(t, s, "Acme")
	second := model.Sensor{LocationID: acme.location.ID, Name: "hygro"}
	_, err := s.CreateSensor(ctx, acme.company.ID, &second)
	require.NoError(t, err)
	globex := seedSensor(t, s, "Globex")

	insertAt := func(offset time.Duration, sensorID int64, value string) {
		clock = base.Add(offset)
		_, err := s.InsertReadings(ctx, sensorID, []ReadingInput{{Key: "v", Value: value}})
		require.NoError(t, err)
	}
	insertAt(0, acme.sensor.ID, "a0")
	insertAt(100*time.Second, acme.sensor.ID, "a100")
	insertAt(150*time.Second, second.ID, "b150")
	insertAt(200*time.Second, acme.sensor.ID, "a200")
	insertAt(300*time.Second, acme.sensor.ID, "a300")
	insertAt(150*time.Second+time.Hour, globex.sensor.ID, "g")

	values := func(rs []model.Reading) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Value
		}
		return out
	}

	t.Run("Window is inclusive on both ends", func(t *testing.T) {
		from, to := base.Add(100*time.Second), base.Add(200*time.Second)
		rs, err := s.QueryReadings(ctx, ReadingQuery{
			CompanyID: acme.company.ID,
			SensorIDs: []int64{acme.sensor.ID, second.ID},
			From:      &from,
			To:        &to,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a100", "b150", "a200"}, values(rs))
	})

	t.Run("No window returns everything for the sensor", func(t *testing.T) {
		rs, err := s.QueryReadings(ctx, ReadingQuery{CompanyID: acme.company.ID, SensorIDs: []int64{acme.sensor.ID}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a0", "a100", "a200", "a300"}, values(rs))
	})

	t.Run("A single bound is ignored", func(t *testing.T) {
		from := base.Add(250 * time.Second)
		rs, err := s.QueryReadings(ctx, ReadingQuery{CompanyID: acme.company.ID, SensorIDs: []int64{acme.sensor.ID}, From: &from})
		require.NoError(t, err)
		assert.Len(t, rs, 4)
	})

	t.Run("Other companies' sensors are not visible", func(t *testing.T) {
		rs, err := s.QueryReadings(ctx, ReadingQuery{CompanyID: acme.company.ID, SensorIDs: []int64{globex.sensor.ID}})
		require.NoError(t, err)
		assert.Empty(t, rs)
		assert.NotNil(t, rs)
	})

	t.Run("Empty window yields empty slice", func(t *testing.T) {
		from, to := base.Add(10*time.Hour), base.Add(11*time.Hour)
		rs, err := s.QueryReadings(ctx, ReadingQuery{CompanyID: acme.company.ID, SensorIDs: []int64{acme.sensor.ID}, From: &from, To: &to})
		require.NoError(t, err)
		assert.Empty(t, rs)
	})
}

func TestGormStore_DeleteLocationCascades(t *testing.T) {
	s, gdb := newSQLiteStore(t)
	ctx := context.Background()
	seed := seedSensor(t, s, "Acme")
	_, err := s.InsertReadings(ctx, seed.sensor.ID, []ReadingInput{{Key: "k", Value: "v"}})
	require.NoError(t, err)

	other := seedSensor(t, s, "Globex")
	_, err = s.DeleteLocation(ctx, other.company.ID, seed.location.ID)
	assert.ErrorIs(t, err, ErrNotFound, "only the owner may delete")

	changes, err := s.DeleteLocation(ctx, seed.company.ID, seed.location.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changes)

	var count int64
	gdb.Model(&model.Reading{}).Where("sensor_id = ?", seed.sensor.ID).Count(&count)
	assert.Zero(t, count)
	_, err = s.SensorByKey(ctx, seed.sensorKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_InsertReadingsRollsBack(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sensor_data"`)).
		WithArgs(int64(7), Any{}, "temp", "21.5", Any{}, int64(7), Any{}, "humidity", "40", Any{}).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.InsertReadings(context.Background(), 7, []ReadingInput{
		{Key: "temp", Value: "21.5"},
		{Key: "humidity", Value: "40"},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_InsertReadingsCommits(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sensor_data"`)).
		WithArgs(int64(9), Any{}, "temp", "21.5", Any{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	batch, err := s.InsertReadings(context.Background(), 9, []ReadingInput{{Key: "temp", Value: "21.5"}})
	require.NoError(t, err)
	assert.Equal(t, int64(9), batch.SensorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
