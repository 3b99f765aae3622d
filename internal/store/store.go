package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"iot-telemetry-api/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the caller.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique column would be violated.
	ErrDuplicate = errors.New("record already exists")
)

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	CreateAdmin(ctx context.Context, username, passwordHash string) (model.Admin, error)
	AdminByUsername(ctx context.Context, username string) (model.Admin, error)
	ListAdmins(ctx context.Context) ([]model.Admin, error)

	CreateCompany(ctx context.Context, name string) (model.Company, string, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)
	CompanyByKey(ctx context.Context, key string) (model.Company, error)

	CreateLocation(ctx context.Context, loc *model.Location) error
	ListLocations(ctx context.Context, companyID int64) ([]model.Location, error)
	LocationForCompany(ctx context.Context, companyID, id int64) (model.Location, error)
	UpdateLocation(ctx context.Context, companyID, id int64, f LocationFields) (int64, error)
	DeleteLocation(ctx context.Context, companyID, id int64) (int64, error)

	CreateSensor(ctx context.Context, companyID int64, sensor *model.Sensor) (string, error)
	ListSensors(ctx context.Context, companyID int64) ([]model.Sensor, error)
	SensorForCompany(ctx context.Context, companyID, id int64) (model.Sensor, error)
	UpdateSensor(ctx context.Context, companyID, id int64, f SensorFields) (int64, error)
	DeleteSensor(ctx context.Context, companyID, id int64) (int64, error)
	SensorByKey(ctx context.Context, key string) (model.Sensor, error)

	InsertReadings(ctx context.Context, sensorID int64, readings []ReadingInput) (Batch, error)
	QueryReadings(ctx context.Context, q ReadingQuery) ([]model.Reading, error)
}

// gormStore implements the Store interface using GORM.
//
// Every write goes through writeMu so that a batch transaction never
// interleaves with another writer, whatever the pool size of the driver.
type gormStore struct {
	db *gorm.DB

	writeMu  sync.Mutex
	lastTime time.Time
	now      func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// Ping checks that the database answers.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// write runs fn inside a transaction while holding the write lock.
func (s *gormStore) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.WithContext(ctx).Transaction(fn)
}

// nextTimestamp returns a UTC timestamp strictly after the previous one it
// handed out. Callers must hold writeMu.
func (s *gormStore) nextTimestamp() time.Time {
	ts := s.now().UTC().Truncate(time.Microsecond)
	if !ts.After(s.lastTime) {
		ts = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = ts
	return ts
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func wrapCreate(what string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("create %s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("create %s: %w", what, err)
}
