package models

import "time"

// EventType is the closed set of ESS pub/sub event names (§6.2).
type EventType string

const (
	EventUserJoined          EventType = "USER_JOINED"
	EventUserLeft            EventType = "USER_LEFT"
	EventConversationFocused EventType = "CONVERSATION_FOCUSED"
	EventNodeLocked          EventType = "NODE_LOCKED"
	EventNodeUnlocked        EventType = "NODE_UNLOCKED"
	EventCursorUpdated       EventType = "CURSOR_UPDATED"
	EventTypingStarted       EventType = "TYPING_STARTED"
	EventTypingStopped       EventType = "TYPING_STOPPED"
	EventLockExpired         EventType = "LOCK_EXPIRED"
)

// CanvasEvent is the JSON envelope published on `canvas:{canvasId}:events`
// (§6.2): {type, data, timestamp}.
type CanvasEvent struct {
	CanvasID  string      `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
