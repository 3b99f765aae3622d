package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"iot-telemetry-api/internal/model"
)

// insertChunk bounds the number of rows per INSERT statement.
const insertChunk = 500

// InsertReadings stores every pair of one submission in a single transaction.
// Either all rows are committed or none are.
func (s *gormStore) InsertReadings(ctx context.Context, sensorID int64, readings []ReadingInput) (Batch, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	batch := Batch{
		ID:        uuid.NewString(),
		SensorID:  sensorID,
		Timestamp: s.nextTimestamp(),
		Readings:  readings,
	}

	rows := make([]model.Reading, len(readings))
	for i, r := range readings {
		rows[i] = model.Reading{
			SensorID:  sensorID,
			BatchID:   batch.ID,
			Key:       r.Key,
			Value:     r.Value,
			Timestamp: batch.Timestamp,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, insertChunk).Error
	})
	if err != nil {
		return Batch{}, fmt.Errorf("insert %d readings for sensor %d: %w", len(rows), sensorID, err)
	}
	return batch, nil
}

// QueryReadings returns the readings of q.SensorIDs that belong to q.CompanyID,
// optionally limited to [From, To], oldest first.
func (s *gormStore) QueryReadings(ctx context.Context, q ReadingQuery) ([]model.Reading, error) {
	readings := make([]model.Reading, 0)
	if len(q.SensorIDs) == 0 {
		return readings, nil
	}

	tx := s.db.WithContext(ctx).
		Model(&model.Reading{}).
		Select("sensor_data.*").
		Joins("JOIN sensors ON sensors.id = sensor_data.sensor_id").
		Joins("JOIN locations ON locations.id = sensors.location_id").
		Where("locations.company_id = ?", q.CompanyID).
		Where("sensor_data.sensor_id IN ?", q.SensorIDs)

	if q.From != nil && q.To != nil {
		tx = tx.Where("sensor_data.timestamp BETWEEN ? AND ?", q.From.UTC(), q.To.UTC())
	}

	if err := tx.Order("sensor_data.timestamp, sensor_data.id").Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	return readings, nil
}
