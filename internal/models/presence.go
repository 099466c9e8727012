package models

import "time"

// UserPresence is a user's live membership in a canvas (§3).
type UserPresence struct {
	CanvasID       string    `json:"canvasId"`
	UserID         string    `json:"userId"`
	User           UserRef   `json:"user"`
	JoinedAt       time.Time `json:"joinedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	IsActive       bool      `json:"isActive"`
}

// ConversationFocus is the conversation a user is currently viewing (§3, I4).
type ConversationFocus struct {
	CanvasID       string    `json:"canvasId"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	User           UserRef   `json:"user"`
	FocusedAt      time.Time `json:"focusedAt"`
}

// CursorPosition is a user's last reported pointer location (§3).
type CursorPosition struct {
	CanvasID  string    `json:"canvasId"`
	UserID    string    `json:"userId"`
	User      UserRef   `json:"user"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TypingIndicator tracks a user actively editing a node (§3).
type TypingIndicator struct {
	CanvasID  string    `json:"canvasId"`
	NodeID    string    `json:"nodeId"`
	UserID    string    `json:"userId"`
	User      UserRef   `json:"user"`
	StartedAt time.Time `json:"startedAt"`
}

// NodeLock is the single-writer exclusive lock on a node (§3, I1/I2).
type NodeLock struct {
	CanvasID       string    `json:"canvasId"`
	ConversationID string    `json:"conversationId"`
	NodeID         string    `json:"nodeId"`
	UserID         string    `json:"userId"`
	User           UserRef   `json:"user"`
	LockedAt       time.Time `json:"lockedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	SessionID      string    `json:"sessionId,omitempty"`
}

// Expired reports whether the lock is no longer live (I2: absent
// regardless of storage state once expiresAt has passed).
func (l NodeLock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// CanvasPresence is the aggregated snapshot returned by getCanvasPresence
// (§4.2.9): every user, focus, lock, cursor and typing indicator currently
// live on a canvas.
type CanvasPresence struct {
	CanvasID          string                          `json:"canvasId"`
	Users             []UserPresence                  `json:"users"`
	ConversationFocus map[string][]ConversationFocus  `json:"conversationFocus"`
	NodeLocks         map[string]NodeLock             `json:"nodeLocks"`
	Cursors           map[string]CursorPosition       `json:"cursors"`
	TypingIndicators  map[string][]TypingIndicator    `json:"typingIndicators"`
	LastUpdated       time.Time                       `json:"lastUpdated"`
}
