package model

import "time"

// Sensor is a device pushing readings. Its API key is issued once at creation.
type Sensor struct {
	ID         int64     `gorm:"primaryKey" json:"sensor_id"`
	LocationID int64     `gorm:"index;not null" json:"location_id"`
	Name       string    `gorm:"size:256;not null" json:"sensor_name"`
	Category   string    `gorm:"size:128" json:"sensor_category"`
	Meta       string    `json:"sensor_meta"`
	APIKeyHash string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Associations
	Location Location `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
