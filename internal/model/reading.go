package model

import "time"

// Reading is one key/value datum of a sensor submission (append-only).
// Rows stored by the same submission share BatchID and Timestamp.
type Reading struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SensorID  int64     `gorm:"not null;index:idx_sensor_data_sensor_ts,priority:1" json:"sensor_id"`
	BatchID   string    `gorm:"size:36;not null;index" json:"batch_id"`
	Key       string    `gorm:"column:data_key;not null" json:"data_key"`
	Value     string    `gorm:"column:data_value;not null" json:"data_value"`
	Timestamp time.Time `gorm:"not null;index:idx_sensor_data_sensor_ts,priority:2" json:"timestamp"`
}

// TableName keeps the table name used by existing deployments.
func (Reading) TableName() string {
	return "sensor_data"
}
