// Package export mirrors committed reading batches to a time-series sink.
package export

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"iot-telemetry-api/internal/store"
)

const (
	// writeTimeout bounds a single sink write.
	writeTimeout = 10 * time.Second
	// defaultDrainTimeout bounds how long queued batches are still exported
	// after shutdown starts.
	defaultDrainTimeout = 5 * time.Second
)

// Sink receives committed batches.
type Sink interface {
	WriteBatch(ctx context.Context, batch store.Batch) error
}

// Recorder observes export outcomes.
type Recorder interface {
	ObserveExport(outcome string)
}

// WorkerPool hands batches to a fixed number of workers writing to a Sink.
type WorkerPool struct {
	size     int
	jobs     chan store.Batch
	sink     Sink
	recorder Recorder
	log      *slog.Logger
	wg       sync.WaitGroup

	drainTimeout time.Duration
}

// NewWorkerPool creates a pool of size workers with a queue of queueSize batches.
func NewWorkerPool(size, queueSize int, sink Sink, recorder Recorder, log *slog.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	return &WorkerPool{
		size:     size,
		jobs:     make(chan store.Batch, queueSize),
		sink:     sink,
		recorder: recorder,
		log:      log.With("component", "export"),

		drainTimeout: defaultDrainTimeout,
	}
}

// SetDrainTimeout sets how long workers keep exporting queued batches once
// the pool's context is cancelled.
func (wp *WorkerPool) SetDrainTimeout(d time.Duration) {
	wp.drainTimeout = d
}

// Start launches the worker goroutines. When ctx is cancelled they export
// what is left in the queue, up to the drain timeout, and exit.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("export worker started", "worker", id)
	for {
		select {
		case batch := <-wp.jobs:
			wp.export(context.WithoutCancel(ctx), id, batch)
		case <-ctx.Done():
			wp.drain(id)
			wp.log.Debug("export worker shutting down", "worker", id)
			return
		}
	}
}

// drain exports the batches still queued. Batches left when the drain
// deadline passes are counted as dropped.
func (wp *WorkerPool) drain(id int) {
	ctx, cancel := context.WithTimeout(context.Background(), wp.drainTimeout)
	defer cancel()

	exported, dropped := 0, 0
	for {
		select {
		case batch := <-wp.jobs:
			if ctx.Err() != nil {
				dropped++
				wp.observe("dropped")
				continue
			}
			wp.export(ctx, id, batch)
			exported++
		default:
			switch {
			case dropped > 0:
				wp.log.Warn("batches not exported before shutdown", "worker", id, "exported", exported, "dropped", dropped)
			case exported > 0:
				wp.log.Info("export queue drained", "worker", id, "exported", exported)
			}
			return
		}
	}
}

// Dispatch queues a batch for export. A full queue drops the batch rather
// than stall the request that committed it.
func (wp *WorkerPool) Dispatch(batch store.Batch) {
	select {
	case wp.jobs <- batch:
	default:
		wp.observe("dropped")
		wp.log.Warn("export queue full, dropping batch", "batch_id", batch.ID, "sensor_id", batch.SensorID)
	}
}

func (wp *WorkerPool) export(ctx context.Context, worker int, batch store.Batch) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := wp.sink.WriteBatch(ctx, batch); err != nil {
		wp.observe("error")
		wp.log.Error("export failed", "worker", worker, "batch_id", batch.ID, "error", err)
		return
	}
	wp.observe("ok")
}

func (wp *WorkerPool) observe(outcome string) {
	if wp.recorder != nil {
		wp.recorder.ObserveExport(outcome)
	}
}
