package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

type startSessionRequest struct {
	userPayload
	CanvasID       string             `json:"canvasId" binding:"required"`
	ConversationID *string            `json:"conversationId"`
	NodeID         *string            `json:"nodeId"`
	EditingType    models.EditingType `json:"editingType" binding:"required"`
}

// StartSession handles POST /collaboration/session/start.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	sess, err := h.collab.StartHybridSession(c.Request.Context(), req.CanvasID, req.ConversationID, req.NodeID, req.EditingType, req.UserID, toUserRef(req.userPayload))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(true), sess)
}

type endSessionRequest struct {
	CanvasID string `json:"canvasId" binding:"required"`
}

// EndSession handles DELETE /collaboration/session/:sessionId.
func (h *Handler) EndSession(c *gin.Context) {
	var req endSessionRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	if err := h.collab.EndHybridSession(c.Request.Context(), req.CanvasID, c.Param("sessionId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"sessionId": c.Param("sessionId")})
}

type sessionLockRequest struct {
	userPayload
	ConversationID      string `json:"conversationId"`
	NodeID              string `json:"nodeId"`
	LockDurationSeconds int    `json:"lockDurationSeconds"`
}

// LockSession handles POST /collaboration/session/:sessionId/lock.
func (h *Handler) LockSession(c *gin.Context) {
	var req sessionLockRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	sess, err := h.collab.LockSession(c.Request.Context(), c.Param("sessionId"), req.ConversationID, req.NodeID, toUserRef(req.userPayload), req.LockDurationSeconds)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), sess)
}

type sessionUnlockRequest struct {
	ConversationID string `json:"conversationId"`
	NodeID         string `json:"nodeId"`
}

// UnlockSession handles DELETE /collaboration/session/:sessionId/lock.
func (h *Handler) UnlockSession(c *gin.Context) {
	var req sessionUnlockRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	if err := h.collab.UnlockSession(c.Request.Context(), c.Param("sessionId"), req.ConversationID, req.NodeID); err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"sessionId": c.Param("sessionId")})
}
