package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Request size limits for the collaboration API. Payloads here are node
// content, cursor positions and batched activity queries — small JSON
// documents, not file uploads — so the ceilings are much tighter than a
// generic upload endpoint would need.
const (
	// MaxRequestBodySize is the maximum allowed request body size (1MB)
	MaxRequestBodySize int64 = 1 * 1024 * 1024

	// MaxJSONPayloadSize is the maximum size for a single node/tree mutation
	// payload (256KB), generous enough for a large node's content field
	// without admitting an accidental multi-megabyte dump.
	MaxJSONPayloadSize int64 = 256 * 1024
)

// RequestSizeLimiter limits the size of incoming HTTP requests to prevent
// abuse via oversized payloads.
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":       "Request entity too large",
				"message":     "Request body exceeds maximum allowed size",
				"max_size_mb": float64(maxSize) / (1024 * 1024),
			})
			return
		}

		// Content-Length can lie; cap the actual read regardless.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

		c.Next()
	}
}

// JSONSizeLimiter limits node/tree mutation payload size.
func JSONSizeLimiter() gin.HandlerFunc {
	return RequestSizeLimiter(MaxJSONPayloadSize)
}

// DefaultSizeLimiter uses the default max request body size.
func DefaultSizeLimiter() gin.HandlerFunc {
	return RequestSizeLimiter(MaxRequestBodySize)
}
