package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"iot-telemetry-api/internal/ingest"
	"iot-telemetry-api/internal/model"
	"iot-telemetry-api/internal/query"
	"iot-telemetry-api/internal/session"
	"iot-telemetry-api/internal/store"
)

// errInvalidKey is reported for a missing, malformed or unknown company key.
var errInvalidKey = errors.New("unauthorized")

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	sessions *session.Manager
	ingest   *ingest.Service
	query    *query.Service
	log      *slog.Logger
	timeout  time.Duration
}

// NewHandler creates a new API handler. timeout bounds the work of each request.
func NewHandler(s store.Store, sessions *session.Manager, ing *ingest.Service, q *query.Service, log *slog.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		store:    s,
		sessions: sessions,
		ingest:   ing,
		query:    q,
		log:      log,
		timeout:  timeout,
	}
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// company resolves the company key sent with the request. The key is read
// from the JSON body when the route has one, else from the query string.
func (h *Handler) company(ctx context.Context, c *gin.Context, bodyKey string) (model.Company, error) {
	key := bodyKey
	if key == "" {
		key = c.Query("company_api_key")
	}
	company, err := h.store.CompanyByKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return model.Company{}, errInvalidKey
	}
	return company, err
}
