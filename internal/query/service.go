// Package query reads stored readings on behalf of a company.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"iot-telemetry-api/internal/model"
	"iot-telemetry-api/internal/parse"
	"iot-telemetry-api/internal/store"
)

var (
	// ErrUnauthorized is returned for a missing or unknown company key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned for malformed sensor ids or time bounds.
	ErrValidation = errors.New("invalid query")
)

// Params are the raw query string values of a reading query.
type Params struct {
	SensorIDs string // "4" or "1,2,3"
	From      string // Unix seconds or RFC 3339, optional
	To        string
}

// Store is the part of the store queries need.
type Store interface {
	CompanyByKey(ctx context.Context, key string) (model.Company, error)
	QueryReadings(ctx context.Context, q store.ReadingQuery) ([]model.Reading, error)
}

// Recorder observes query outcomes.
type Recorder interface {
	ObserveQuery(outcome string, rows int, elapsed time.Duration)
}

// Service answers reading queries.
type Service struct {
	store    Store
	recorder Recorder
}

// NewService creates a query service. recorder may be nil.
func NewService(s Store, recorder Recorder) *Service {
	return &Service{store: s, recorder: recorder}
}

// Query returns readings of the requested sensors owned by the company
// holding companyKey. The key is resolved before the parameters are parsed,
// so an unknown caller always gets ErrUnauthorized. The window [from, to] is
// inclusive and only applied when both bounds are given.
func (s *Service) Query(ctx context.Context, companyKey string, p Params) ([]model.Reading, error) {
	start := time.Now()

	company, err := s.store.CompanyByKey(ctx, companyKey)
	if errors.Is(err, store.ErrNotFound) {
		s.observe("unauthorized", 0, start)
		return nil, ErrUnauthorized
	}
	if err != nil {
		s.observe("error", 0, start)
		return nil, fmt.Errorf("resolving company key: %w", err)
	}

	q, err := readingQuery(company.ID, p)
	if err != nil {
		s.observe("invalid", 0, start)
		return nil, err
	}

	readings, err := s.store.QueryReadings(ctx, q)
	if err != nil {
		s.observe("error", 0, start)
		return nil, err
	}

	s.observe("ok", len(readings), start)
	return readings, nil
}

func readingQuery(companyID int64, p Params) (store.ReadingQuery, error) {
	ids, err := parse.SensorIDs(p.SensorIDs)
	if err != nil {
		return store.ReadingQuery{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	from, err := parse.Timestamp(p.From)
	if err != nil {
		return store.ReadingQuery{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	to, err := parse.Timestamp(p.To)
	if err != nil {
		return store.ReadingQuery{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	q := store.ReadingQuery{CompanyID: companyID, SensorIDs: ids}
	if from != nil && to != nil {
		q.From, q.To = from, to
	}
	return q, nil
}

func (s *Service) observe(outcome string, rows int, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveQuery(outcome, rows, time.Since(start))
	}
}
