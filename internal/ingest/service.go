// Package ingest stores batches of sensor readings.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"iot-telemetry-api/internal/model"
	"iot-telemetry-api/internal/store"
)

var (
	// ErrValidation is returned for a batch that is not a list of string pairs.
	ErrValidation = errors.New("invalid reading batch")
	// ErrUnauthorized is returned for an unknown sensor key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStorage is returned when the batch could not be committed.
	ErrStorage = errors.New("storage failure")
)

// maxBatchSize bounds the number of pairs in one submission.
const maxBatchSize = 10000

// Store is the part of the store ingestion needs.
type Store interface {
	SensorByKey(ctx context.Context, key string) (model.Sensor, error)
	InsertReadings(ctx context.Context, sensorID int64, readings []store.ReadingInput) (store.Batch, error)
}

// Dispatcher receives every committed batch. It must not block.
type Dispatcher interface {
	Dispatch(batch store.Batch)
}

// Recorder observes ingestion outcomes.
type Recorder interface {
	ObserveIngest(outcome string, readings int, elapsed time.Duration)
}

// Service validates and stores reading batches.
type Service struct {
	store      Store
	dispatcher Dispatcher
	recorder   Recorder
	log        *slog.Logger
}

// NewService creates an ingestion service. dispatcher and recorder may be nil.
func NewService(s Store, dispatcher Dispatcher, recorder Recorder, log *slog.Logger) *Service {
	return &Service{
		store:      s,
		dispatcher: dispatcher,
		recorder:   recorder,
		log:        log.With("component", "ingest"),
	}
}

type rawReading struct {
	Key   json.RawMessage `json:"data_key"`
	Value json.RawMessage `json:"data_value"`
}

// ParseBatch checks that raw is a non-empty JSON array of objects whose
// data_key and data_value are both strings. Any bad element rejects the batch.
func ParseBatch(raw json.RawMessage) ([]store.ReadingInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: json_data must be an array", ErrValidation)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: json_data is empty", ErrValidation)
	}
	if len(elems) > maxBatchSize {
		return nil, fmt.Errorf("%w: at most %d readings per batch", ErrValidation, maxBatchSize)
	}

	readings := make([]store.ReadingInput, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrValidation, i)
		}
		var r rawReading
		if err := json.Unmarshal(elem, &r); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrValidation, i, err)
		}
		key, ok := jsonString(r.Key)
		if !ok {
			return nil, fmt.Errorf("%w: element %d: data_key must be a string", ErrValidation, i)
		}
		value, ok := jsonString(r.Value)
		if !ok {
			return nil, fmt.Errorf("%w: element %d: data_value must be a string", ErrValidation, i)
		}
		readings[i] = store.ReadingInput{Key: key, Value: value}
	}
	return readings, nil
}

// jsonString decodes raw only if it is a JSON string literal.
func jsonString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Ingest validates the batch, resolves the sensor key and stores every
// reading in one transaction.
func (s *Service) Ingest(ctx context.Context, sensorKey string, raw json.RawMessage) (store.Batch, error) {
	start := time.Now()

	readings, err := ParseBatch(raw)
	if err != nil {
		s.observe("invalid", 0, start)
		return store.Batch{}, err
	}

	sensor, err := s.store.SensorByKey(ctx, sensorKey)
	if errors.Is(err, store.ErrNotFound) {
		s.observe("unauthorized", 0, start)
		return store.Batch{}, ErrUnauthorized
	}
	if err != nil {
		s.observe("error", 0, start)
		return store.Batch{}, fmt.Errorf("%w: resolving sensor key: %w", ErrStorage, err)
	}

	batch, err := s.store.InsertReadings(ctx, sensor.ID, readings)
	if err != nil {
		s.observe("error", 0, start)
		s.log.Error("reading batch rolled back", "sensor_id", sensor.ID, "readings", len(readings), "error", err)
		return store.Batch{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.observe("stored", len(readings), start)
	s.log.Debug("reading batch stored", "sensor_id", sensor.ID, "batch_id", batch.ID, "readings", len(readings))

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(batch)
	}
	return batch, nil
}

func (s *Service) observe(outcome string, readings int, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveIngest(outcome, readings, time.Since(start))
	}
}
