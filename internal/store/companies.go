package store

import (
	"context"
	"fmt"

	"iot-telemetry-api/internal/credential"
	"iot-telemetry-api/internal/model"
)

// CreateCompany stores a company and returns it together with its freshly
// issued API key. The key is not recoverable afterwards.
func (s *gormStore) CreateCompany(ctx context.Context, name string) (model.Company, string, error) {
	key, err := credential.NewAPIKey()
	if err != nil {
		return model.Company{}, "", err
	}

	company := model.Company{Name: name, APIKeyHash: credential.HashKey(key)}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.WithContext(ctx).Create(&company).Error; err != nil {
		return model.Company{}, "", wrapCreate("company", err)
	}
	return company, key, nil
}

// ListCompanies returns all companies ordered by id.
func (s *gormStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	companies := make([]model.Company, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

// CompanyByKey resolves a presented company key.
func (s *gormStore) CompanyByKey(ctx context.Context, key string) (model.Company, error) {
	if !credential.WellFormed(key) {
		return model.Company{}, ErrNotFound
	}
	var company model.Company
	err := s.db.WithContext(ctx).Where("api_key_hash = ?", credential.HashKey(key)).First(&company).Error
	if err != nil {
		return model.Company{}, notFound(err)
	}
	return company, nil
}
