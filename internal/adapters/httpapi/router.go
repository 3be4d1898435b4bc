// Package httpapi exposes the catalog service as a JSON REST API.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lejeunel/image-db-app/docs/schema/openapi"
	"github.com/lejeunel/image-db-app/internal/core"
	"github.com/lejeunel/image-db-app/internal/observability"
	"github.com/lejeunel/image-db-app/internal/platform/logger"
)

// Config holds presentation settings.
type Config struct {
	Prefix          string
	DefaultPageSize int
	MaxPageSize     int
	MetricsPath     string
	CORS            CORSConfig
}

// Deps are the collaborators of the router. Metrics and Logger are optional.
type Deps struct {
	Service *core.Service
	Auth    *Authenticator
	Metrics *observability.Metrics
	Logger  *logger.Logger
	Config  Config
}

// Handler serves the catalog routes.
type Handler struct {
	svc    *core.Service
	config Config
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Prefix == "" {
		cfg.Prefix = "/api/v1"
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	auth := d.Auth
	if auth == nil {
		auth = NewAuthenticator(AuthConfig{Disabled: true})
	}
	h := &Handler{svc: d.Service, config: cfg}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger), requestMetrics(d.Metrics), corsMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if d.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group(cfg.Prefix, auth.Identify())
	admin := api.Group("", auth.RequireAdmin())

	api.GET("/openapi.yaml", func(c *gin.Context) { c.Data(http.StatusOK, "application/yaml", openapi.Spec()) })
	api.GET("/identity", auth.identity)
	api.GET("/filters", h.listFilterKeys)

	api.GET("/plates", h.listPlates)
	api.GET("/plates/:id", h.getPlate)
	api.GET("/plates/:id/timepoints", h.listPlateTimePoints)
	api.GET("/plates/:id/sections", h.listPlateSections)
	api.GET("/plates/:id/stack", h.getPlateStack)
	admin.POST("/plates", h.createPlate)
	admin.PATCH("/plates/:id", h.updatePlate)
	admin.DELETE("/plates/:id", h.deletePlate)
	admin.POST("/plates/:id/timepoints", h.createTimePoint)
	admin.DELETE("/plates/:id/timepoints", h.deletePlateTimePoints)
	admin.POST("/plates/:id/sections", h.createSection)
	admin.DELETE("/plates/:id/sections", h.deletePlateSections)
	admin.PUT("/plates/:id/stack", h.assignPlateStack)

	api.GET("/timepoints", h.listTimePoints)
	api.GET("/timepoints/:id", h.getTimePoint)
	admin.PATCH("/timepoints/:id", h.updateTimePoint)
	admin.DELETE("/timepoints/:id", h.deleteTimePoint)

	api.GET("/sections", h.listSections)
	api.GET("/sections/:id", h.getSection)
	admin.PATCH("/sections/:id", h.updateSection)
	admin.DELETE("/sections/:id", h.deleteSection)

	api.GET("/items", h.listItems)
	api.GET("/items/:id", h.getItem)
	api.GET("/items/:id/content", h.getItemContent)
	admin.POST("/items/tag/:name", h.tagItems)
	admin.DELETE("/items/tag/:name", h.untagItems)

	api.GET("/cells", h.listCells)
	api.GET("/cells/:id", h.getCell)
	admin.POST("/cells", h.createCell)
	admin.PATCH("/cells/:id", h.updateCell)
	admin.DELETE("/cells/:id", h.deleteCell)

	api.GET("/compounds", h.listCompounds)
	api.GET("/compounds/:id", h.getCompound)
	admin.POST("/compounds", h.createCompound)
	admin.PATCH("/compounds/:id", h.updateCompound)
	admin.DELETE("/compounds/:id", h.deleteCompound)

	api.GET("/properties", h.listProperties)
	api.GET("/properties/:id", h.getProperty)
	api.GET("/properties/:id/ancestors", h.getPropertyAncestors)
	admin.POST("/properties", h.createProperty)
	admin.PATCH("/properties/:id", h.updateProperty)
	admin.DELETE("/properties/:id", h.deleteProperty)

	api.GET("/modalities", h.listModalities)
	api.GET("/modalities/:id", h.getModality)
	admin.POST("/modalities", h.createModality)
	admin.PATCH("/modalities/:id", h.updateModality)
	admin.DELETE("/modalities/:id", h.deleteModality)

	api.GET("/stacks", h.listStacks)
	api.GET("/stacks/:id", h.getStack)
	admin.POST("/stacks", h.createStack)
	admin.PUT("/stacks/:id", h.updateStack)
	admin.DELETE("/stacks/:id", h.deleteStack)

	api.GET("/tags", h.listTags)
	api.GET("/tags/:id", h.getTag)
	admin.POST("/tags", h.createTag)
	admin.PATCH("/tags/:id", h.updateTag)
	admin.DELETE("/tags/:id", h.deleteTag)

	return r
}

func (h *Handler) listFilterKeys(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"keys": h.svc.Registry().Keys()})
}
