package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cathalhughes/canvas-collab/internal/activity"
	"github.com/cathalhughes/canvas-collab/internal/collab"
)

// Handler wires the collaboration REST surface onto a *collab.Service and
// an *activity.Service, following the teacher's one-struct-per-domain
// handler convention (CollaborationHandler, ActivityHandler, ...).
type Handler struct {
	collab         *collab.Service
	activity       *activity.Service
	sessionTimeout time.Duration
}

// New builds the REST handler. sessionTimeout is the staleness window used
// by the sweep-all-sessions cleanup endpoint, mirroring the scheduler's own
// periodic job (config.SessionTimeout).
func New(collabSvc *collab.Service, activitySvc *activity.Service, sessionTimeout time.Duration) *Handler {
	return &Handler{collab: collabSvc, activity: activitySvc, sessionTimeout: sessionTimeout}
}

// RegisterRoutes mounts every endpoint under rg, following the exact
// SPEC_FULL §6.5 path list.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	canvas := rg.Group("/canvas")
	{
		canvas.POST("/join", h.JoinCanvas)
		canvas.POST("/leave", h.LeaveCanvas)
		canvas.GET("/:id/presence", h.GetCanvasPresence)
		canvas.GET("/:id/hybrid-state", h.GetHybridState)
	}

	node := rg.Group("/node")
	{
		node.POST("/lock", h.LockNode)
		node.POST("/unlock", h.UnlockNode)
		node.POST("/:canvasId/:conversationId/:nodeId/extend-lock", h.ExtendNodeLock)
		node.GET("/:canvasId/:conversationId/:nodeId/lock", h.GetLockStatus)
		node.GET("/:canvasId/:conversationId/:nodeId/lock/realtime", h.GetRealtimeLockStatus)
	}

	rg.POST("/cursor/update", h.UpdateCursor)
	rg.POST("/typing/update", h.UpdateTyping)

	session := rg.Group("/session")
	{
		session.POST("/start", h.StartSession)
		session.DELETE("/:sessionId", h.EndSession)
		session.POST("/:sessionId/lock", h.LockSession)
		session.DELETE("/:sessionId/lock", h.UnlockSession)
	}

	cleanup := rg.Group("/cleanup")
	{
		cleanup.POST("/presence/:canvasId", h.CleanupStalePresence)
		cleanup.POST("/locks/:canvasId", h.CleanupStaleLocks)
		cleanup.POST("/sessions", h.CleanupStaleSessions)
	}

	rg.GET("/health", h.Health)

	activities := rg.Group("/activities")
	{
		activities.GET("/canvas/:id", h.GetActivitiesByCanvas)
		activities.GET("/canvas/:id/summary", h.GetActivitySummaryByCanvas)
		activities.GET("/conversation/:id", h.GetActivitiesByConversation)
		activities.GET("/user/:id", h.GetActivitiesByUser)
		activities.POST("/cleanup", h.CleanupActivities)
	}
}
