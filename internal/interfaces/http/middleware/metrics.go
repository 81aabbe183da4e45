package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
)

// unmatchedRoute labels requests that hit no route
const unmatchedRoute = "unmatched"

// Metrics records request count, latency and in-flight requests per route template.
// Paths listed in skip are not recorded.
func Metrics(m *telemetry.HTTPMetrics, skip ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		done := m.Begin()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		done(c.Request.Method, route, c.Writer.Status())
	}
}
