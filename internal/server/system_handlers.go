package server

import (
	"context"
	"net/http"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/api"
	"github.com/SanchitCoder/PortIQ/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// Pinger is anything Ready can check for liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dbPinger interface {
	PingContext(ctx context.Context) error
}

// @Summary      Readiness check
// @Description  Reports unavailable when the database or email queue is unreachable.
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.ErrorResponse
// @Router       /ready [get]
func Ready(db dbPinger, queue Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				logger.Warn("readiness: database unreachable", "error", err)
				c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "database unavailable"})
				return
			}
		}
		if queue != nil {
			if err := queue.Ping(ctx); err != nil {
				logger.Warn("readiness: email queue unreachable", "error", err)
				c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "email queue unavailable"})
				return
			}
		}

		c.JSON(http.StatusOK, api.HealthResponse{Status: "ready"})
	}
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
