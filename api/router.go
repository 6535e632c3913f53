package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gather/api/handler"
	"github.com/use-agent/gather/api/middleware"
	"github.com/use-agent/gather/cache"
	"github.com/use-agent/gather/config"
	"github.com/use-agent/gather/render"
	"github.com/use-agent/gather/search"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(p *search.Pipeline, pool *render.Pool, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health endpoint, no auth required.
	v1.GET("/health", handler.Health(pool, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Search
	protected.POST("/search", handler.Search(p, cc))

	// Batch
	protected.POST("/batch/search", handler.PostBatch(p))
	protected.GET("/batch/:id", handler.GetBatch())

	return r
}
