package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"iot-telemetry-api/internal/credential"
	"iot-telemetry-api/internal/model"
)

// CreateSensor stores sensor under one of companyID's locations and returns
// the newly issued sensor key.
func (s *gormStore) CreateSensor(ctx context.Context, companyID int64, sensor *model.Sensor) (string, error) {
	key, err := credential.NewAPIKey()
	if err != nil {
		return "", err
	}
	sensor.APIKeyHash = credential.HashKey(key)

	err = s.write(ctx, func(tx *gorm.DB) error {
		if _, err := locationForCompany(tx, companyID, sensor.LocationID); err != nil {
			return err
		}
		if err := tx.Omit("Location").Create(sensor).Error; err != nil {
			return wrapCreate("sensor", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func ownedSensors(db *gorm.DB, companyID int64) *gorm.DB {
	return db.Model(&model.Sensor{}).
		Joins("JOIN locations ON locations.id = sensors.location_id").
		Where("locations.company_id = ?", companyID)
}

// ListSensors returns the sensors under all of a company's locations.
func (s *gormStore) ListSensors(ctx context.Context, companyID int64) ([]model.Sensor, error) {
	sensors := make([]model.Sensor, 0)
	if err := ownedSensors(s.db.WithContext(ctx), companyID).Order("sensors.id").Find(&sensors).Error; err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}
	return sensors, nil
}

// SensorForCompany returns a sensor only if it sits under one of companyID's locations.
func (s *gormStore) SensorForCompany(ctx context.Context, companyID, id int64) (model.Sensor, error) {
	return sensorForCompany(s.db.WithContext(ctx), companyID, id)
}

func sensorForCompany(db *gorm.DB, companyID, id int64) (model.Sensor, error) {
	var sensor model.Sensor
	if err := ownedSensors(db, companyID).Where("sensors.id = ?", id).First(&sensor).Error; err != nil {
		return model.Sensor{}, notFound(err)
	}
	return sensor, nil
}

// UpdateSensor overwrites name, category and meta. The key is immutable.
func (s *gormStore) UpdateSensor(ctx context.Context, companyID, id int64, f SensorFields) (int64, error) {
	var changes int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		if _, err := sensorForCompany(tx, companyID, id); err != nil {
			return err
		}
		res := tx.Model(&model.Sensor{}).Where("id = ?", id).Updates(map[string]any{
			"name":     f.Name,
			"category": f.Category,
			"meta":     f.Meta,
		})
		if res.Error != nil {
			return fmt.Errorf("update sensor %d: %w", id, res.Error)
		}
		changes = res.RowsAffected
		return nil
	})
	return changes, err
}

// DeleteSensor removes a sensor and its readings.
func (s *gormStore) DeleteSensor(ctx context.Context, companyID, id int64) (int64, error) {
	var changes int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		if _, err := sensorForCompany(tx, companyID, id); err != nil {
			return err
		}
		if err := tx.Where("sensor_id = ?", id).Delete(&model.Reading{}).Error; err != nil {
			return fmt.Errorf("delete readings of sensor %d: %w", id, err)
		}
		res := tx.Delete(&model.Sensor{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete sensor %d: %w", id, res.Error)
		}
		changes = res.RowsAffected
		return nil
	})
	return changes, err
}

// SensorByKey resolves a presented sensor key.
func (s *gormStore) SensorByKey(ctx context.Context, key string) (model.Sensor, error) {
	if !credential.WellFormed(key) {
		return model.Sensor{}, ErrNotFound
	}
	var sensor model.Sensor
	err := s.db.WithContext(ctx).Where("api_key_hash = ?", credential.HashKey(key)).First(&sensor).Error
	if err != nil {
		return model.Sensor{}, notFound(err)
	}
	return sensor, nil
}
