package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveIngest("stored", 3, 10*time.Millisecond)
	m.ObserveIngest("stored", 2, 10*time.Millisecond)
	m.ObserveIngest("invalid", 0, time.Millisecond)
	m.ObserveQuery("ok", 4, time.Millisecond)
	m.ObserveExport("dropped")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ingestBatches.WithLabelValues("stored")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ingestBatches.WithLabelValues("invalid")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.ingestReadings))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.queryRows))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.exportBatches.WithLabelValues("dropped")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/v1/sensor/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sensor/17", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/sensor/:id", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `iotapi_http_requests_total{method="GET",route="/api/v1/sensor/:id",status="200"} 1`)
}
