package model

import "time"

// Location is a site belonging to exactly one company.
type Location struct {
	ID        int64     `gorm:"primaryKey" json:"location_id"`
	CompanyID int64     `gorm:"index;not null" json:"company_id"`
	Name      string    `gorm:"size:256;not null" json:"location_name"`
	Country   string    `gorm:"size:128" json:"location_country"`
	City      string    `gorm:"size:128" json:"location_city"`
	Meta      string    `json:"location_meta"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Company Company  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Sensors []Sensor `gorm:"foreignKey:LocationID" json:"-"`
}
