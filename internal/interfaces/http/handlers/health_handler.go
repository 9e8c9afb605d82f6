package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appservice "github.com/floodguard/serving/internal/application/service"
	"github.com/floodguard/serving/internal/infrastructure/persistence/redis"
	"github.com/floodguard/serving/pkg/logger"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	service *appservice.PredictionService
	redis   *redis.Connection // nil when Redis is disabled
	log     logger.Logger
}

// NewHealthHandler creates the handler.
func NewHealthHandler(service *appservice.PredictionService, conn *redis.Connection, log logger.Logger) *HealthHandler {
	return &HealthHandler{service: service, redis: conn, log: log}
}

// Live handles GET /health/live. The process is up; nothing else is implied.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// Ready handles GET /health/ready. Ready means every model family has an
// active handle. A degraded cache does not fail readiness: predictions
// still work, just uncached.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{
		"models": "ok",
	}
	status := http.StatusOK

	if !h.service.Ready() {
		checks["models"] = "not all model families loaded"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()); err != nil {
			checks["redis"] = "degraded: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	c.JSON(status, gin.H{
		"status":    map[bool]string{true: "ready", false: "not_ready"}[status == http.StatusOK],
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
