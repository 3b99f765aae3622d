package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// Home renders the landing page.
func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{"title": "IoT Telemetry API"})
}

// APIDocs renders the route reference.
func (h *Handler) APIDocs(c *gin.Context) {
	c.HTML(http.StatusOK, "api.html", gin.H{"title": "API reference", "routes": routeDocs})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type routeDoc struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

var routeDocs = []routeDoc{
	{"POST", "/api/v1/register", "none", `{"username", "password"}`},
	{"POST", "/api/v1/login", "none", `{"username", "password"}`},
	{"GET", "/api/v1/logout", "session token", ""},
	{"GET", "/api/v1/admins", "session token", ""},
	{"POST", "/api/v1/company", "session token", `{"company_name"}`},
	{"GET", "/api/v1/companies", "session token", ""},
	{"POST", "/api/v1/location", "company_api_key", `{"location_name", "location_country", "location_city", "location_meta"}`},
	{"GET", "/api/v1/locations", "company_api_key", ""},
	{"GET", "/api/v1/location/:id", "company_api_key", ""},
	{"PUT", "/api/v1/location/:id", "company_api_key", `{"location_name", "location_country", "location_city", "location_meta"}`},
	{"DELETE", "/api/v1/location/:id", "company_api_key", ""},
	{"POST", "/api/v1/sensor", "company_api_key", `{"location_id", "sensor_name", "sensor_category", "sensor_meta"}`},
	{"GET", "/api/v1/sensors", "company_api_key", ""},
	{"GET", "/api/v1/sensor/:id", "company_api_key", ""},
	{"PUT", "/api/v1/sensor/:id", "company_api_key", `{"sensor_name", "sensor_category", "sensor_meta"}`},
	{"DELETE", "/api/v1/sensor/:id", "company_api_key", ""},
	{"POST", "/api/v1/sensor_data", "sensor_api_key", `{"json_data": [{"data_key", "data_value"}]}`},
	{"GET", "/api/v1/sensor_data", "company_api_key", "?sensor_id=1,2&from=&to="},
}
