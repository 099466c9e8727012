package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

type joinCanvasRequest struct {
	userPayload
	CanvasID string `json:"canvasId" binding:"required"`
}

// JoinCanvas handles POST /collaboration/canvas/join.
func (h *Handler) JoinCanvas(c *gin.Context) {
	var req joinCanvasRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	presence, err := h.collab.JoinCanvas(c.Request.Context(), req.CanvasID, req.UserID, toUserRef(req.userPayload))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(true), presence)
}

type leaveCanvasRequest struct {
	CanvasID string `json:"canvasId" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
}

// LeaveCanvas handles POST /collaboration/canvas/leave.
func (h *Handler) LeaveCanvas(c *gin.Context) {
	var req leaveCanvasRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	if err := h.collab.LeaveCanvas(c.Request.Context(), req.CanvasID, req.UserID); err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"canvasId": req.CanvasID, "userId": req.UserID})
}

// GetCanvasPresence handles GET /collaboration/canvas/:id/presence.
func (h *Handler) GetCanvasPresence(c *gin.Context) {
	canvasID := c.Param("id")
	snapshot, err := h.collab.GetCanvasPresence(c.Request.Context(), canvasID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), snapshot)
}

// GetHybridState handles GET /collaboration/canvas/:id/hybrid-state.
func (h *Handler) GetHybridState(c *gin.Context) {
	canvasID := c.Param("id")
	state, err := h.collab.GetHybridState(c.Request.Context(), canvasID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), state)
}

func toUserRef(p userPayload) models.UserRef {
	return models.UserRef{ID: p.User.ID, Name: p.User.Name, Email: p.User.Email}
}
