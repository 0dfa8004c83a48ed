package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/events-api/internal/service"
)

// Metrics records per-request latency and status counts. A nil service turns
// the middleware into a pass-through.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Label by route template so path parameters do not explode cardinality.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
