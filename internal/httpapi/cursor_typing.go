package httpapi

import (
	"github.com/gin-gonic/gin"
)

type updateCursorRequest struct {
	userPayload
	CanvasID string  `json:"canvasId" binding:"required"`
	X        float64 `json:"x" validate:"gte=0"`
	Y        float64 `json:"y" validate:"gte=0"`
}

// UpdateCursor handles POST /collaboration/cursor/update.
func (h *Handler) UpdateCursor(c *gin.Context) {
	var req updateCursorRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}
	if badRequestOnValidateErr(c, req) {
		return
	}

	pos, err := h.collab.UpdateCursorPosition(c.Request.Context(), req.CanvasID, req.UserID, toUserRef(req.userPayload), req.X, req.Y)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), pos)
}

type updateTypingRequest struct {
	userPayload
	CanvasID string `json:"canvasId" binding:"required"`
	NodeID   string `json:"nodeId" binding:"required"`
	IsTyping bool   `json:"isTyping"`
}

// UpdateTyping handles POST /collaboration/typing/update.
func (h *Handler) UpdateTyping(c *gin.Context) {
	var req updateTypingRequest
	if badRequestOnBindErr(c, c.ShouldBindJSON(&req)) {
		return
	}

	if err := h.collab.UpdateTypingIndicator(c.Request.Context(), req.CanvasID, req.NodeID, req.UserID, toUserRef(req.userPayload), req.IsTyping); err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"canvasId": req.CanvasID, "nodeId": req.NodeID, "isTyping": req.IsTyping})
}
