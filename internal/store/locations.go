package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"iot-telemetry-api/internal/model"
)

// CreateLocation stores loc; loc.CompanyID must already be set by the caller.
func (s *gormStore) CreateLocation(ctx context.Context, loc *model.Location) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.WithContext(ctx).Omit("Company", "Sensors").Create(loc).Error; err != nil {
		return wrapCreate("location", err)
	}
	return nil
}

// ListLocations returns the locations of one company.
func (s *gormStore) ListLocations(ctx context.Context, companyID int64) ([]model.Location, error) {
	locations := make([]model.Location, 0)
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).Order("id").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

// LocationForCompany returns a location only if companyID owns it.
func (s *gormStore) LocationForCompany(ctx context.Context, companyID, id int64) (model.Location, error) {
	return locationForCompany(s.db.WithContext(ctx), companyID, id)
}

func locationForCompany(db *gorm.DB, companyID, id int64) (model.Location, error) {
	var loc model.Location
	if err := db.Where("id = ? AND company_id = ?", id, companyID).First(&loc).Error; err != nil {
		return model.Location{}, notFound(err)
	}
	return loc, nil
}

// UpdateLocation overwrites the mutable columns and returns the number of changed rows.
func (s *gormStore) UpdateLocation(ctx context.Context, companyID, id int64, f LocationFields) (int64, error) {
	var changes int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		if _, err := locationForCompany(tx, companyID, id); err != nil {
			return err
		}
		res := tx.Model(&model.Location{}).Where("id = ?", id).Updates(map[string]any{
			"name":    f.Name,
			"country": f.Country,
			"city":    f.City,
			"meta":    f.Meta,
		})
		if res.Error != nil {
			return fmt.Errorf("update location %d: %w", id, res.Error)
		}
		changes = res.RowsAffected
		return nil
	})
	return changes, err
}

// DeleteLocation removes a location together with its sensors and their readings.
func (s *gormStore) DeleteLocation(ctx context.Context, companyID, id int64) (int64, error) {
	var changes int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		if _, err := locationForCompany(tx, companyID, id); err != nil {
			return err
		}
		sensorIDs := tx.Model(&model.Sensor{}).Select("id").Where("location_id = ?", id)
		if err := tx.Where("sensor_id IN (?)", sensorIDs).Delete(&model.Reading{}).Error; err != nil {
			return fmt.Errorf("delete readings of location %d: %w", id, err)
		}
		if err := tx.Where("location_id = ?", id).Delete(&model.Sensor{}).Error; err != nil {
			return fmt.Errorf("delete sensors of location %d: %w", id, err)
		}
		res := tx.Delete(&model.Location{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete location %d: %w", id, res.Error)
		}
		changes = res.RowsAffected
		return nil
	})
	return changes, err
}
