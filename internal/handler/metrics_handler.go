package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/events-api/internal/service"
)

// MetricsHandler exposes the Prometheus scrape endpoint and health probes.
type MetricsHandler struct {
	metrics *service.MetricsService
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus serves the metrics registry. With metrics disabled the service
// handler answers 503 on its own.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health answers liveness and readiness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
