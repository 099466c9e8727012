package httpapi

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutesMountsFullTree(t *testing.T) {
	h, _, _ := setupHandler(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1/collaboration")
	h.RegisterRoutes(group)

	expected := []struct{ method, path string }{
		{"POST", "/api/v1/collaboration/canvas/join"},
		{"POST", "/api/v1/collaboration/canvas/leave"},
		{"GET", "/api/v1/collaboration/canvas/:id/presence"},
		{"GET", "/api/v1/collaboration/canvas/:id/hybrid-state"},
		{"POST", "/api/v1/collaboration/node/lock"},
		{"POST", "/api/v1/collaboration/node/unlock"},
		{"POST", "/api/v1/collaboration/node/:canvasId/:conversationId/:nodeId/extend-lock"},
		{"GET", "/api/v1/collaboration/node/:canvasId/:conversationId/:nodeId/lock"},
		{"GET", "/api/v1/collaboration/node/:canvasId/:conversationId/:nodeId/lock/realtime"},
		{"POST", "/api/v1/collaboration/cursor/update"},
		{"POST", "/api/v1/collaboration/typing/update"},
		{"POST", "/api/v1/collaboration/session/start"},
		{"DELETE", "/api/v1/collaboration/session/:sessionId"},
		{"POST", "/api/v1/collaboration/session/:sessionId/lock"},
		{"DELETE", "/api/v1/collaboration/session/:sessionId/lock"},
		{"POST", "/api/v1/collaboration/cleanup/presence/:canvasId"},
		{"POST", "/api/v1/collaboration/cleanup/locks/:canvasId"},
		{"POST", "/api/v1/collaboration/cleanup/sessions"},
		{"GET", "/api/v1/collaboration/health"},
		{"GET", "/api/v1/collaboration/activities/canvas/:id"},
		{"GET", "/api/v1/collaboration/activities/canvas/:id/summary"},
		{"GET", "/api/v1/collaboration/activities/conversation/:id"},
		{"GET", "/api/v1/collaboration/activities/user/:id"},
		{"POST", "/api/v1/collaboration/activities/cleanup"},
	}

	routes := router.Routes()
	for _, exp := range expected {
		found := false
		for _, r := range routes {
			if r.Method == exp.method && r.Path == exp.path {
				found = true
				break
			}
		}
		assert.True(t, found, "missing route %s %s", exp.method, exp.path)
	}
}
