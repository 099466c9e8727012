package gateway

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/cathalhughes/canvas-collab/internal/errors"
	"github.com/cathalhughes/canvas-collab/internal/logger"
)

// inbound is the envelope every client-to-server socket message arrives
// in: {"event": "<name>", "data": {...}}.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outbound is the envelope every server-to-client message is sent in,
// whether it originated from a local publish, a remote ESS bridge
// delivery, or a direct dispatch response.
type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func mustEnvelope(event string, data interface{}) []byte {
	payload, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		payload, _ = json.Marshal(outbound{Event: event, Data: nil})
	}
	return payload
}

func (c *Client) reply(event string, data interface{}) {
	select {
	case c.send <- mustEnvelope(event, data):
	default:
	}
}

func (c *Client) replyError(event string, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		appErr = apperrors.InternalServer(err.Error())
	}
	c.reply(event+"_error", appErr.ToResponse())
}

// dispatch routes one decoded inbound socket message to the matching
// collaboration service call, grounded on internal/websocket/hub.go's
// message-type switch in its read pump.
func (h *Hub) dispatch(c *Client, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply("error", map[string]string{"message": "malformed message"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Event {
	case "join_canvas":
		h.handleJoinCanvas(ctx, c, msg.Data)
	case "leave_canvas":
		h.handleLeaveCanvas(ctx, c)
	case "focus_conversation":
		h.handleFocusConversation(ctx, c, msg.Data)
	case "lock_node":
		h.handleLockNode(ctx, c, msg.Data)
	case "unlock_node":
		h.handleUnlockNode(ctx, c, msg.Data)
	case "update_cursor":
		h.handleUpdateCursor(ctx, c, msg.Data)
	case "start_typing":
		h.handleTyping(ctx, c, msg.Data, true)
	case "stop_typing":
		h.handleTyping(ctx, c, msg.Data, false)
	case "heartbeat":
		h.handleHeartbeat(ctx, c)
	case "get_canvas_presence":
		h.handleGetCanvasPresence(ctx, c)
	default:
		logger.Gateway().Warn().Str("event", msg.Event).Msg("unknown inbound event")
		c.reply("error", map[string]string{"message": "unknown event: " + msg.Event})
	}
}

type joinCanvasPayload struct {
	CanvasID string `json:"canvasId"`
}

func (h *Hub) handleJoinCanvas(ctx context.Context, c *Client, data json.RawMessage) {
	var p joinCanvasPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CanvasID == "" {
		c.replyError("join_canvas", apperrors.InvalidInput("canvasId is required"))
		return
	}

	presence, err := h.collab.JoinCanvas(ctx, p.CanvasID, c.userID, c.user)
	if err != nil {
		c.replyError("join_canvas", err)
		return
	}

	h.joinRoom(p.CanvasID, c)

	snapshot, err := h.collab.GetCanvasPresence(ctx, p.CanvasID)
	if err != nil {
		c.replyError("join_canvas", err)
		return
	}

	c.reply("join_canvas_success", map[string]interface{}{
		"presence": presence,
		"canvas":   snapshot,
	})
}

func (h *Hub) handleLeaveCanvas(ctx context.Context, c *Client) {
	canvasID := c.CanvasID()
	if canvasID == "" {
		c.replyError("leave_canvas", apperrors.InvalidInput("not currently joined to a canvas"))
		return
	}
	if err := h.collab.LeaveCanvas(ctx, canvasID, c.userID); err != nil {
		c.replyError("leave_canvas", err)
		return
	}
	h.leaveRoom(canvasID, c)
	c.reply("leave_canvas_success", map[string]string{"canvasId": canvasID})
}

type focusPayload struct {
	ConversationID string `json:"conversationId"`
}

func (h *Hub) handleFocusConversation(ctx context.Context, c *Client, data json.RawMessage) {
	var p focusPayload
	canvasID := c.CanvasID()
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" || canvasID == "" {
		c.replyError("focus_conversation", apperrors.InvalidInput("conversationId is required and client must have joined a canvas"))
		return
	}
	focus, err := h.collab.FocusConversation(ctx, canvasID, p.ConversationID, c.userID, c.user)
	if err != nil {
		c.replyError("focus_conversation", err)
		return
	}
	c.reply("focus_conversation_success", focus)
}

type lockPayload struct {
	ConversationID       string `json:"conversationId"`
	NodeID               string `json:"nodeId"`
	LockDurationSeconds  int    `json:"lockDurationSeconds"`
}

func (h *Hub) handleLockNode(ctx context.Context, c *Client, data json.RawMessage) {
	var p lockPayload
	canvasID := c.CanvasID()
	if err := json.Unmarshal(data, &p); err != nil || p.NodeID == "" || canvasID == "" {
		c.replyError("lock_node", apperrors.InvalidInput("nodeId is required and client must have joined a canvas"))
		return
	}
	lock, err := h.collab.LockNode(ctx, canvasID, p.ConversationID, p.NodeID, c.userID, c.user, c.sessionID, p.LockDurationSeconds)
	if err != nil {
		c.replyError("lock_node", err)
		return
	}
	c.reply("lock_node_success", lock)
}

type unlockPayload struct {
	ConversationID string `json:"conversationId"`
	NodeID         string `json:"nodeId"`
}

func (h *Hub) handleUnlockNode(ctx context.Context, c *Client, data json.RawMessage) {
	var p unlockPayload
	canvasID := c.CanvasID()
	if err := json.Unmarshal(data, &p); err != nil || p.NodeID == "" || canvasID == "" {
		c.replyError("unlock_node", apperrors.InvalidInput("nodeId is required and client must have joined a canvas"))
		return
	}
	ok, err := h.collab.UnlockNode(ctx, canvasID, p.ConversationID, p.NodeID, c.userID)
	if err != nil {
		c.replyError("unlock_node", err)
		return
	}
	c.reply("unlock_node_success", map[string]bool{"unlocked": ok})
}

type cursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *Hub) handleUpdateCursor(ctx context.Context, c *Client, data json.RawMessage) {
	var p cursorPayload
	canvasID := c.CanvasID()
	if err := json.Unmarshal(data, &p); err != nil || canvasID == "" {
		c.replyError("update_cursor", apperrors.InvalidInput("client must have joined a canvas"))
		return
	}
	cursor, err := h.collab.UpdateCursorPosition(ctx, canvasID, c.userID, c.user, p.X, p.Y)
	if err != nil {
		// throttled updates are expected traffic, not failures worth logging
		c.replyError("update_cursor", err)
		return
	}
	c.reply("update_cursor_success", cursor)
}

type typingPayload struct {
	NodeID string `json:"nodeId"`
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, data json.RawMessage, isTyping bool) {
	var p typingPayload
	canvasID := c.CanvasID()
	if err := json.Unmarshal(data, &p); err != nil || p.NodeID == "" || canvasID == "" {
		c.replyError("typing", apperrors.InvalidInput("nodeId is required and client must have joined a canvas"))
		return
	}
	event := "start_typing"
	if !isTyping {
		event = "stop_typing"
	}
	if err := h.collab.UpdateTypingIndicator(ctx, canvasID, p.NodeID, c.userID, c.user, isTyping); err != nil {
		c.replyError(event, err)
		return
	}
	c.reply(event+"_success", map[string]string{"nodeId": p.NodeID})
}

func (h *Hub) handleHeartbeat(ctx context.Context, c *Client) {
	canvasID := c.CanvasID()
	if canvasID == "" {
		return
	}
	if _, err := h.collab.JoinCanvas(ctx, canvasID, c.userID, c.user); err != nil {
		c.replyError("heartbeat", err)
		return
	}
	c.reply("heartbeat_success", map[string]string{"canvasId": canvasID})
}

func (h *Hub) handleGetCanvasPresence(ctx context.Context, c *Client) {
	canvasID := c.CanvasID()
	if canvasID == "" {
		c.replyError("get_canvas_presence", apperrors.InvalidInput("client must have joined a canvas"))
		return
	}
	snapshot, err := h.collab.GetCanvasPresence(ctx, canvasID)
	if err != nil {
		c.replyError("get_canvas_presence", err)
		return
	}
	c.reply("get_canvas_presence_success", snapshot)
}
