// Package metrics exposes Prometheus collectors for ingestion, queries,
// exports and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iotapi"

// Metrics holds every collector of the service on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	ingestBatches  *prometheus.CounterVec
	ingestReadings prometheus.Counter
	ingestDuration *prometheus.HistogramVec
	queryRequests  *prometheus.CounterVec
	queryRows      prometheus.Counter
	queryDuration  *prometheus.HistogramVec
	exportBatches  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_batches_total",
				Help:      "Reading batches submitted, by outcome.",
			},
			[]string{"outcome"},
		),
		ingestReadings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_readings_total",
				Help:      "Readings stored.",
			},
		),
		ingestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Time to validate and store a batch.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		queryRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_requests_total",
				Help:      "Reading queries, by outcome.",
			},
			[]string{"outcome"},
		),
		queryRows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_rows_total",
				Help:      "Readings returned by queries.",
			},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Time to answer a reading query.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		exportBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_batches_total",
				Help:      "Batches mirrored to the time-series sink, by outcome.",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by method and route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestBatches,
		m.ingestReadings,
		m.ingestDuration,
		m.queryRequests,
		m.queryRows,
		m.queryDuration,
		m.exportBatches,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// ObserveIngest records one ingestion attempt.
func (m *Metrics) ObserveIngest(outcome string, readings int, elapsed time.Duration) {
	m.ingestBatches.WithLabelValues(outcome).Inc()
	m.ingestReadings.Add(float64(readings))
	m.ingestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveQuery records one reading query.
func (m *Metrics) ObserveQuery(outcome string, rows int, elapsed time.Duration) {
	m.queryRequests.WithLabelValues(outcome).Inc()
	m.queryRows.Add(float64(rows))
	m.queryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveExport records the fate of one exported batch.
func (m *Metrics) ObserveExport(outcome string) {
	m.exportBatches.WithLabelValues(outcome).Inc()
}

// Middleware counts requests by route template, so ids never become labels.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
