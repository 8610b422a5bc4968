package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statio/backend/pkg/observability"
)

// Metrics records request count, duration and in-flight gauge per route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.RequestStart(ctx)
		defer m.RequestEnd(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
