package model

import "time"

// Company owns locations and, through them, sensors.
type Company struct {
	ID         int64     `gorm:"primaryKey" json:"company_id"`
	Name       string    `gorm:"size:256;not null" json:"company_name"`
	APIKeyHash string    `gorm:"uniqueIndex;size:64;not null" json:"-"` // SHA-256 of the issued key
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`

	// Associations
	Locations []Location `gorm:"foreignKey:CompanyID" json:"-"`
}
