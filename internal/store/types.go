package store

import "time"

// ReadingInput is one validated key/value pair of a submission.
type ReadingInput struct {
	Key   string
	Value string
}

// Batch describes a committed submission.
type Batch struct {
	ID        string
	SensorID  int64
	Timestamp time.Time
	Readings  []ReadingInput
}

// ReadingQuery selects readings of a company's sensors.
// The time window only applies when both From and To are set.
type ReadingQuery struct {
	CompanyID int64
	SensorIDs []int64
	From      *time.Time
	To        *time.Time
}

// LocationFields are the mutable columns of a location.
type LocationFields struct {
	Name    string
	Country string
	City    string
	Meta    string
}

// SensorFields are the mutable columns of a sensor. The API key is not one of them.
type SensorFields struct {
	Name     string
	Category string
	Meta     string
}
