package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/render"
)

// version is set at build time via -ldflags.
var version = "dev"

// Health returns a handler for GET /api/v1/health.
// Status is "degraded" when every rendered session is in use.
func Health(pool *render.Pool, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pool.Stats()

		status := "healthy"
		if stats.ActiveSessions >= stats.MaxSessions {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   version,
		})
	}
}
