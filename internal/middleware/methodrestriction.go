// Package middleware provides HTTP middleware for the canvas collaboration
// API.
//
// This file restricts incoming requests to a fixed allow-list of methods
// that covers what the REST surface (internal/httpapi) and the /ws upgrade
// use, rejecting uncommon or dangerous methods like TRACE (response-
// splitting XSS) and CONNECT (proxy tunneling) before they reach routing.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllowedHTTPMethods restricts requests to a fixed allow-list of methods.
// No current route uses PUT or PATCH; they pass this check and are left to
// routing.
func AllowedHTTPMethods() gin.HandlerFunc {
	allowedMethods := map[string]bool{
		http.MethodGet:     true, // REST reads, /ws upgrade
		http.MethodPost:    true, // join/leave, lock/unlock, cursor/typing updates, sessions, cleanup
		http.MethodPut:     true, // not used by any current route
		http.MethodPatch:   true, // not used by any current route
		http.MethodDelete:  true, // ending a session, releasing a session lock
		http.MethodOptions: true, // CORS preflight
		http.MethodHead:    true, // health checks
	}

	return func(c *gin.Context) {
		method := c.Request.Method

		if !allowedMethods[method] {
			c.Header("Allow", "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD")
			c.JSON(http.StatusMethodNotAllowed, gin.H{
				"error":   "Method not allowed",
				"message": "The HTTP method " + method + " is not allowed for this resource.",
				"allowed_methods": []string{
					"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// DisallowedHTTPMethods explicitly blocks methods with no legitimate use
// against this API, for defense in depth alongside AllowedHTTPMethods.
func DisallowedHTTPMethods() gin.HandlerFunc {
	disallowedMethods := map[string]bool{
		"TRACE":   true,
		"TRACK":   true,
		"CONNECT": true,
	}

	return func(c *gin.Context) {
		method := c.Request.Method

		if disallowedMethods[method] {
			c.JSON(http.StatusMethodNotAllowed, gin.H{
				"error":   "Method not allowed",
				"message": "The HTTP method " + method + " is not permitted.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
