package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"iot-telemetry-api/internal/query"
)

type postSensorDataRequest struct {
	APIKey       string          `json:"api_key"`
	SensorAPIKey string          `json:"sensor_api_key"`
	Data         json.RawMessage `json:"json_data"`
}

// PostSensorData handles POST /api/v1/sensor_data.
func (h *Handler) PostSensorData(c *gin.Context) {
	var req postSensorDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, newBadRequest("invalid request body"))
		return
	}
	key := req.SensorAPIKey
	if key == "" {
		key = req.APIKey
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if _, err := h.ingest.Ingest(ctx, key, req.Data); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// GetSensorData handles GET /api/v1/sensor_data.
func (h *Handler) GetSensorData(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	readings, err := h.query.Query(ctx, c.Query("company_api_key"), query.Params{
		SensorIDs: c.Query("sensor_id"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}
