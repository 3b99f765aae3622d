package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createCompanyRequest struct {
	Name string `json:"company_name"`
}

// CreateCompany handles POST /api/v1/company. The key in the response is
// the only time it is ever shown.
func (h *Handler) CreateCompany(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(c, h.log, newBadRequest("company_name is required"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	company, key, err := h.store.CreateCompany(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("company created", "company_id", company.ID, "by", c.GetString("username"))
	c.JSON(http.StatusCreated, gin.H{"id": company.ID, "company_api_key": key})
}

// ListCompanies handles GET /api/v1/companies.
func (h *Handler) ListCompanies(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	companies, err := h.store.ListCompanies(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}
