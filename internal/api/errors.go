package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"iot-telemetry-api/internal/ingest"
	"iot-telemetry-api/internal/query"
	"iot-telemetry-api/internal/session"
	"iot-telemetry-api/internal/store"
)

const internalErrorMessage = "internal server error"

// badRequest marks an error as a client input problem.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func newBadRequest(msg string) error { return badRequest{msg: msg} }

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, ingest.ErrValidation),
		errors.Is(err, query.ErrValidation),
		errors.Is(err, session.ErrMissingFields),
		errors.Is(err, session.ErrAlreadyLoggedIn):
		return http.StatusBadRequest
	case errors.Is(err, errInvalidKey),
		errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrUnauthorized),
		errors.Is(err, ingest.ErrUnauthorized),
		errors.Is(err, query.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUsernameTaken),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Server-side failures are logged and
// answered with a fixed message.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": internalErrorMessage})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
