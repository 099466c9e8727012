package models

import "time"

// EditingType enumerates the granularity an EditingSession targets (§3).
type EditingType string

const (
	EditingTypeCanvas       EditingType = "canvas"
	EditingTypeConversation EditingType = "conversation"
	EditingTypeNode         EditingType = "node"
)

// EditingSession is the DSS-authoritative record of a user's editing
// session against the hybrid layer (§3, §4.2.10).
type EditingSession struct {
	SessionID      string      `json:"sessionId" db:"session_id"`
	UserID         string      `json:"userId" db:"user_id"`
	User           UserRef     `json:"user" db:"-"`
	CanvasID       string      `json:"canvasId" db:"canvas_id"`
	ConversationID *string     `json:"conversationId,omitempty" db:"conversation_id"`
	NodeID         *string     `json:"nodeId,omitempty" db:"node_id"`
	EditingType    EditingType `json:"editingType" db:"editing_type"`
	EditingTarget  string      `json:"editingTarget" db:"editing_target"`
	StartedAt      time.Time   `json:"startedAt" db:"started_at"`
	LastActivityAt time.Time   `json:"lastActivityAt" db:"last_activity_at"`
	IsActive       bool        `json:"isActive" db:"is_active"`
	HasLock        bool        `json:"hasLock" db:"has_lock"`
	LockExpiry     *time.Time  `json:"lockExpiry,omitempty" db:"lock_expiry"`
	Version        int64       `json:"-" db:"version"`
	DeletedAt      *time.Time  `json:"-" db:"deleted_at"`
}

// LockExpired reports whether a hybrid-lock-bearing session's lock has
// expired (I6: hasLock=true implies lockExpiry > lastActivityAt while
// live; expired locks are reaped separately).
func (s EditingSession) LockExpired(now time.Time) bool {
	return s.HasLock && s.LockExpiry != nil && !s.LockExpiry.After(now)
}

// HybridState is the merged view returned by getHybridState (§6.5): the
// live ESS presence snapshot alongside every DSS-authoritative editing
// session currently active on the canvas.
type HybridState struct {
	CanvasID        string           `json:"canvasId"`
	Presence        *CanvasPresence  `json:"presence"`
	ActiveSessions  []EditingSession `json:"activeSessions"`
}

// RealtimeLockStatus is the response shape for getRealtimeLockStatus
// (spec §8 boundary behavior, supplemented as an explicit operation in
// SPEC_FULL.md): which store answered, and what it said.
type RealtimeLockStatus struct {
	HasLock bool      `json:"hasLock"`
	Lock    *NodeLock `json:"lock,omitempty"`
	Source  string    `json:"source"` // "redis" or "dss"
}
