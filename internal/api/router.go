package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"iot-telemetry-api/config"
	"iot-telemetry-api/internal/metrics"
	"iot-telemetry-api/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, m *metrics.Metrics, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(mw.Recovery(h.log), mw.RequestLogger(h.log))
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.SetHTMLTemplate(loadTemplates())

	// Docs pages are static; cache them for five minutes.
	pages := mw.PageCache(cache.New(5*time.Minute, 10*time.Minute), 5*time.Minute)
	r.GET("/", pages, h.Home)
	r.GET("/api-docs", pages, h.APIDocs)
	r.GET("/healthz", h.Health)

	limiter := mw.NewClientRateLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	session := h.RequireSession(cfg.Auth.SessionHeader)

	api := r.Group("/api/v1")
	api.Use(mw.RateLimit(limiter))
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.GET("/logout", session, h.Logout)
		api.GET("/admins", session, h.ListAdmins)
		api.POST("/company", session, h.CreateCompany)
		api.GET("/companies", session, h.ListCompanies)

		api.POST("/location", h.CreateLocation)
		api.GET("/locations", h.ListLocations)
		api.GET("/location/:id", h.GetLocation)
		api.PUT("/location/:id", h.UpdateLocation)
		api.DELETE("/location/:id", h.DeleteLocation)

		api.POST("/sensor", h.CreateSensor)
		api.GET("/sensors", h.ListSensors)
		api.GET("/sensor/:id", h.GetSensor)
		api.PUT("/sensor/:id", h.UpdateSensor)
		api.DELETE("/sensor/:id", h.DeleteSensor)

		api.POST("/sensor_data", h.PostSensorData)
		api.GET("/sensor_data", h.GetSensorData)
	}

	return r
}
