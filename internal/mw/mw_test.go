package mw

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(NewClientRateLimiter(rate.Limit(1), 2)))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(router, "/").Code)
	assert.Equal(t, http.StatusOK, get(router, "/").Code)
	w := get(router, "/")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func TestClientRateLimiter_PerClient(t *testing.T) {
	l := NewClientRateLimiter(rate.Limit(1), 1)

	assert.Same(t, l.Limiter("10.0.0.1"), l.Limiter("10.0.0.1"))
	assert.NotSame(t, l.Limiter("10.0.0.1"), l.Limiter("10.0.0.2"))
	assert.True(t, l.Limiter("10.0.0.2").Allow())
}

func TestPageCache(t *testing.T) {
	calls := 0
	router := gin.New()
	router.Use(PageCache(cache.New(time.Minute, time.Minute), time.Minute))
	router.GET("/api-docs", func(c *gin.Context) {
		calls++
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<h1>docs</h1>"))
	})
	router.GET("/plain", func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, "plain")
	})

	t.Run("Pages are cached with an ETag", func(t *testing.T) {
		first := get(router, "/api-docs")
		second := get(router, "/api-docs")

		assert.Equal(t, 1, calls)
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "<h1>docs</h1>", first.Body.String())
		assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
		assert.NotEmpty(t, first.Header().Get("ETag"))

		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
		assert.Equal(t, first.Header().Get("ETag"), second.Header().Get("ETag"))
		assert.Equal(t, "text/html; charset=utf-8", second.Header().Get("Content-Type"))
	})

	t.Run("Matching If-None-Match is not modified", func(t *testing.T) {
		etag := get(router, "/api-docs").Header().Get("ETag")

		req := httptest.NewRequest(http.MethodGet, "/api-docs", nil)
		req.Header.Set("If-None-Match", etag)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("Non-HTML responses pass through uncached", func(t *testing.T) {
		before := calls
		first := get(router, "/plain")
		second := get(router, "/plain")

		assert.Equal(t, before+2, calls)
		assert.Equal(t, "plain", first.Body.String())
		assert.Equal(t, "plain", second.Body.String())
		assert.Empty(t, second.Header().Get("ETag"))
	})
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(Recovery(slog.New(slog.NewJSONHandler(&buf, nil))))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := get(router, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	router.GET("/sensor_data", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	get(router, "/sensor_data?company_api_key=secret")

	out := buf.String()
	assert.Contains(t, out, `"status":401`)
	assert.Contains(t, out, `"path":"/sensor_data"`)
	assert.NotContains(t, out, "secret")
	assert.Equal(t, "WARN", levelOf(t, out))
}

func levelOf(t *testing.T, line string) string {
	t.Helper()
	for _, lvl := range []string{"ERROR", "WARN", "INFO"} {
		if bytes.Contains([]byte(line), []byte(`"level":"`+lvl+`"`)) {
			return lvl
		}
	}
	return ""
}
