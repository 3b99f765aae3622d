package store

import (
	"context"
	"fmt"

	"iot-telemetry-api/internal/model"
)

// CreateAdmin stores a new admin with an already hashed password.
func (s *gormStore) CreateAdmin(ctx context.Context, username, passwordHash string) (model.Admin, error) {
	admin := model.Admin{Username: username, PasswordHash: passwordHash}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return model.Admin{}, wrapCreate("admin", err)
	}
	return admin, nil
}

// AdminByUsername looks up an admin by exact username.
func (s *gormStore) AdminByUsername(ctx context.Context, username string) (model.Admin, error) {
	var admin model.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return model.Admin{}, notFound(err)
	}
	return admin, nil
}

// ListAdmins returns all admins ordered by id.
func (s *gormStore) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins := make([]model.Admin, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}
