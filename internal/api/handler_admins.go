package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/v1/register.
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, newBadRequest("invalid request body"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	admin, err := h.sessions.Register(ctx, req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Admin registered", "id": admin.ID})
}

// Login handles POST /api/v1/login.
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, newBadRequest("invalid request body"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	token, err := h.sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "session": token})
}

// Logout handles GET /api/v1/logout.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Logout(c.GetString("username"))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// ListAdmins handles GET /api/v1/admins.
func (h *Handler) ListAdmins(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	admins, err := h.store.ListAdmins(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, admins)
}
