package httpapi

import (
	"github.com/gin-gonic/gin"
)

type lockNodeRequest struct {
	userPayload
	CanvasID            string `json:"canvasId" binding:"required"`
	ConversationID      string `json:"conversationId" binding:"required"`
	NodeID              string `json:"nodeId" binding:"required"`
	SessionID           string `json:"sessionId"`
	LockDurationSeconds int    `json:"lockDurationSeconds" validate:"omitempty,gte=1,lte=3600"`
}

// LockNode handles POST /collaboration/node/lock.
func (h *Handler) LockNode(c *gin.Context) {
	var req lockNodeRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}
	if badRequestOnValidateErr(c, req) {
		return
	}

	lock, err := h.collab.LockNode(c.Request.Context(), req.CanvasID, req.ConversationID, req.NodeID, req.UserID, toUserRef(req.userPayload), req.SessionID, req.LockDurationSeconds)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(true), lock)
}

type unlockNodeRequest struct {
	CanvasID       string `json:"canvasId" binding:"required"`
	ConversationID string `json:"conversationId" binding:"required"`
	NodeID         string `json:"nodeId" binding:"required"`
	UserID         string `json:"userId" binding:"required"`
}

// UnlockNode handles POST /collaboration/node/unlock.
func (h *Handler) UnlockNode(c *gin.Context) {
	var req unlockNodeRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	released, err := h.collab.UnlockNode(c.Request.Context(), req.CanvasID, req.ConversationID, req.NodeID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"released": released})
}

type extendLockRequest struct {
	UserID              string `json:"userId" binding:"required"`
	LockDurationSeconds int    `json:"lockDurationSeconds"`
}

// ExtendNodeLock handles POST /collaboration/node/:canvasId/:conversationId/:nodeId/extend-lock.
func (h *Handler) ExtendNodeLock(c *gin.Context) {
	var req extendLockRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	lock, err := h.collab.ExtendNodeLock(c.Request.Context(), c.Param("canvasId"), c.Param("conversationId"), c.Param("nodeId"), req.UserID, req.LockDurationSeconds)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), lock)
}

// GetLockStatus handles GET /collaboration/node/:canvasId/:conversationId/:nodeId/lock.
func (h *Handler) GetLockStatus(c *gin.Context) {
	lock, err := h.collab.GetLockStatus(c.Request.Context(), c.Param("canvasId"), c.Param("conversationId"), c.Param("nodeId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), lock)
}

// GetRealtimeLockStatus handles GET /collaboration/node/:canvasId/:conversationId/:nodeId/lock/realtime.
func (h *Handler) GetRealtimeLockStatus(c *gin.Context) {
	status, err := h.collab.GetRealtimeLockStatus(c.Request.Context(), c.Param("canvasId"), c.Param("conversationId"), c.Param("nodeId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), status)
}
