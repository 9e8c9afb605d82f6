package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appservice "github.com/floodguard/serving/internal/application/service"
	"github.com/floodguard/serving/pkg/logger"
)

// MetricsHandler exposes the in-process performance and cache statistics.
// Prometheus scraping uses the separate /metrics endpoint.
type MetricsHandler struct {
	service *appservice.PredictionService
	log     logger.Logger
}

// NewMetricsHandler creates the handler.
func NewMetricsHandler(service *appservice.PredictionService, log logger.Logger) *MetricsHandler {
	return &MetricsHandler{service: service, log: log.WithComponent("metrics_handler")}
}

// Performance handles GET /api/v1/metrics/performance.
func (h *MetricsHandler) Performance(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.PerformanceStats())
}

// ResetPerformance handles POST /api/v1/metrics/performance/reset.
func (h *MetricsHandler) ResetPerformance(c *gin.Context) {
	h.service.ResetPerformance()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// CacheStats handles GET /api/v1/metrics/cache.
func (h *MetricsHandler) CacheStats(c *gin.Context) {
	stats, err := h.service.CacheStats(c.Request.Context())
	if err != nil {
		// Partial stats are still useful when the store is unreachable.
		c.JSON(http.StatusOK, gin.H{"stats": stats, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
