package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"iot-telemetry-api/internal/model"
	"iot-telemetry-api/internal/store"
)

type sensorRequest struct {
	CompanyAPIKey string `json:"company_api_key"`
	LocationID    int64  `json:"location_id"`
	Name          string `json:"sensor_name"`
	Category      string `json:"sensor_category"`
	Meta          string `json:"sensor_meta"`
}

func bindSensor(c *gin.Context) (sensorRequest, error) {
	var req sensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, newBadRequest("invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, newBadRequest("sensor_name is required")
	}
	return req, nil
}

// CreateSensor handles POST /api/v1/sensor. The location must belong to the
// calling company.
func (h *Handler) CreateSensor(c *gin.Context) {
	req, err := bindSensor(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.LocationID <= 0 {
		respondError(c, h.log, newBadRequest("location_id is required"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	company, err := h.company(ctx, c, req.CompanyAPIKey)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	sensor := model.Sensor{
		LocationID: req.LocationID,
		Name:       req.Name,
		Category:   req.Category,
		Meta:       req.Meta,
	}
	key, err := h.store.CreateSensor(ctx, company.ID, &sensor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sensor.ID, "sensor_api_key": key})
}

// ListSensors handles GET /api/v1/sensors.
func (h *Handler) ListSensors(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	company, err := h.company(ctx, c, "")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	sensors, err := h.store.ListSensors(ctx, company.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

// GetSensor handles GET /api/v1/sensor/:id.
func (h *Handler) GetSensor(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	company, err := h.company(ctx, c, "")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	sensor, err := h.store.SensorForCompany(ctx, company.ID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

// UpdateSensor handles PUT /api/v1/sensor/:id. The sensor key and location
// are not updatable.
func (h *Handler) UpdateSensor(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	req, err := bindSensor(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	company, err := h.company(ctx, c, req.CompanyAPIKey)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	changes, err := h.store.UpdateSensor(ctx, company.ID, id, store.SensorFields{
		Name:     req.Name,
		Category: req.Category,
		Meta:     req.Meta,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// DeleteSensor handles DELETE /api/v1/sensor/:id.
func (h *Handler) DeleteSensor(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	company, err := h.company(ctx, c, "")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	changes, err := h.store.DeleteSensor(ctx, company.ID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}
