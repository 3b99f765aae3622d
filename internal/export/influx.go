package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"iot-telemetry-api/config"
	"iot-telemetry-api/internal/store"
)

const (
	measurement        = "sensor_data"
	defaultPingTimeout = 5 * time.Second
)

// ErrUnhealthy is returned when the server answers the ping as not ready.
var ErrUnhealthy = errors.New("influxdb not healthy")

// InfluxSink writes batches to an InfluxDB v2 bucket.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink connects to InfluxDB and verifies the server answers a ping.
func NewInfluxSink(ctx context.Context, cfg config.ExportConfig) (*InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping failed: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, ErrUnhealthy
	}

	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// WriteBatch writes one point per reading, all stamped with the batch time.
func (s *InfluxSink) WriteBatch(ctx context.Context, batch store.Batch) error {
	if err := s.writeAPI.WritePoint(ctx, Points(batch)...); err != nil {
		return fmt.Errorf("write batch %s: %w", batch.ID, err)
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// Points converts a batch to line-protocol points. The sensor id and the
// reading key are tags; the value and batch id are fields.
func Points(batch store.Batch) []*write.Point {
	sensorID := strconv.FormatInt(batch.SensorID, 10)
	points := make([]*write.Point, 0, len(batch.Readings))
	for _, r := range batch.Readings {
		points = append(points, write.NewPoint(
			measurement,
			map[string]string{
				"sensor_id": sensorID,
				"data_key":  r.Key,
			},
			map[string]interface{}{
				"data_value": r.Value,
				"batch_id":   batch.ID,
			},
			batch.Timestamp,
		))
	}
	return points
}
