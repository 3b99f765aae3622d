package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"iot-telemetry-api/internal/model"
	"iot-telemetry-api/internal/parse"
	"iot-telemetry-api/internal/store"
)

type locationRequest struct {
	CompanyAPIKey string `json:"company_api_key"`
	Name          string `json:"location_name"`
	Country       string `json:"location_country"`
	City          string `json:"location_city"`
	Meta          string `json:"location_meta"`
}

func bindLocation(c *gin.Context) (locationRequest, error) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, newBadRequest("invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, newBadRequest("location_name is required")
	}
	return req, nil
}

func pathID(c *gin.Context) (int64, error) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		return 0, newBadRequest("invalid id")
	}
	return id, nil
}

// CreateLocation handles POST /api/v1/location.
func (h *Handler) CreateLocation(c *gin.Context) {
	req, err := bindLocation(c)
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

	loc := model.Location{
		CompanyID: company.ID,
		Name:      req.Name,
		Country:   req.Country,
		City:      req.City,
		Meta:      req.Meta,
	}
	if err := h.store.CreateLocation(ctx, &loc); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": loc.ID})
}

// ListLocations handles GET /api/v1/locations.
func (h *Handler) ListLocations(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	company, err := h.company(ctx, c, "")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	locations, err := h.store.ListLocations(ctx, company.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, locations)
}

// GetLocation handles GET /api/v1/location/:id.
func (h *Handler) GetLocation(c *gin.Context) {
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
	loc, err := h.store.LocationForCompany(ctx, company.ID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// UpdateLocation handles PUT /api/v1/location/:id.
func (h *Handler) UpdateLocation(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	req, err := bindLocation(c)
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
	changes, err := h.store.UpdateLocation(ctx, company.ID, id, store.LocationFields{
		Name:    req.Name,
		Country: req.Country,
		City:    req.City,
		Meta:    req.Meta,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// DeleteLocation handles DELETE /api/v1/location/:id. Sensors of the
// location and their readings go with it.
func (h *Handler) DeleteLocation(c *gin.Context) {
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
	changes, err := h.store.DeleteLocation(ctx, company.ID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}
