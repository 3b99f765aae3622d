package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"iot-telemetry-api/internal/session"
)

// RequireSession rejects requests without a valid session token in header.
// The token may be sent raw or as "Bearer <token>". On success the username
// is stored under "username" in the gin context.
func (h *Handler) RequireSession(header string) gin.HandlerFunc {
	if header == "" {
		header = "Authorization"
	}
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(header))
		if rest, ok := strings.CutPrefix(token, "Bearer "); ok {
			token = strings.TrimSpace(rest)
		}
		if token == "" {
			respondError(c, h.log, session.ErrUnauthorized)
			return
		}

		username, err := h.sessions.Validate(token)
		if err != nil {
			respondError(c, h.log, err)
			return
		}

		c.Set("username", username)
		c.Next()
	}
}
