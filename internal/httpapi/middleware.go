package httpapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cathalhughes/canvas-collab/internal/logger"
)

// RequestLogger emits one structured log line per request, the zerolog
// analogue of the teacher's StructuredLoggerWithConfigFunc (stdlib log,
// key=value fields) — same fields, skip-health-check behavior, and
// status-to-level mapping, rebuilt on the logger this repository actually
// carries.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/collaboration/health") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		event := logger.HTTP().Info()
		switch {
		case status >= 500:
			event = logger.HTTP().Error()
		case status >= 400:
			event = logger.HTTP().Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Str("clientIp", c.ClientIP()).
			Msg("request handled")
	}
}
