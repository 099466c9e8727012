package models

import "time"

// ActivityType is the closed enum of domain events the Activity Service
// records (SPEC_FULL §6.4).
type ActivityType string

const (
	ActivityConversationCreated ActivityType = "conversation_created"
	ActivityConversationDeleted ActivityType = "conversation_deleted"
	ActivityConversationMoved   ActivityType = "conversation_moved"
	ActivityConversationRenamed ActivityType = "conversation_renamed"
	ActivityNodeCreated         ActivityType = "node_created"
	ActivityNodeEdited          ActivityType = "node_edited"
	ActivityNodeDeleted         ActivityType = "node_deleted"
	ActivityBranchCreated       ActivityType = "branch_created"
	ActivityFileUploaded        ActivityType = "file_uploaded"
	ActivityUserJoinedCanvas    ActivityType = "user_joined_canvas"
	ActivityUserLeftCanvas      ActivityType = "user_left_canvas"
	ActivityNodeLocked          ActivityType = "node_locked"
	ActivityNodeUnlocked        ActivityType = "node_unlocked"
	ActivityBulkDelete          ActivityType = "bulk_delete"
	ActivityBulkMove            ActivityType = "bulk_move"
	ActivityCanvasReorganized   ActivityType = "canvas_reorganized"
	ActivityConflictDetected    ActivityType = "conflict_detected"
	ActivityErrorOccurred       ActivityType = "error_occurred"
)

// Priority is the severity bucket driving how an activity is surfaced.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityOf maps an activity type to its priority per §4.4.
func PriorityOf(t ActivityType) Priority {
	switch t {
	case ActivityErrorOccurred, ActivityConflictDetected:
		return PriorityCritical
	case ActivityBranchCreated, ActivityUserJoinedCanvas, ActivityUserLeftCanvas, ActivityConversationCreated:
		return PriorityHigh
	case ActivityNodeCreated, ActivityNodeDeleted, ActivityConversationDeleted,
		ActivityConversationRenamed, ActivityFileUploaded, ActivityBulkDelete,
		ActivityBulkMove, ActivityCanvasReorganized:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Batchable is the batchable-set from §4.4: these types are coalesced by
// the batching window instead of broadcast immediately.
var Batchable = map[ActivityType]bool{
	ActivityNodeEdited:        true,
	ActivityConversationMoved: true,
	ActivityNodeLocked:        true,
	ActivityNodeUnlocked:      true,
}

// HighPriorityNotify is the toast-notification set from §4.4.
var HighPriorityNotify = map[ActivityType]bool{
	ActivityBranchCreated:       true,
	ActivityConflictDetected:    true,
	ActivityErrorOccurred:       true,
	ActivityUserJoinedCanvas:    true,
	ActivityUserLeftCanvas:      true,
	ActivityConversationCreated: true,
}

// Activity is a durable, immutable domain event record (§3).
type Activity struct {
	ID             string                 `json:"id" db:"id"`
	CanvasID       string                 `json:"canvasId" db:"canvas_id"`
	ConversationID *string                `json:"conversationId,omitempty" db:"conversation_id"`
	NodeID         *string                `json:"nodeId,omitempty" db:"node_id"`
	UserID         string                 `json:"userId" db:"user_id"`
	UserName       string                 `json:"userName" db:"user_name"`
	Type           ActivityType           `json:"type" db:"type"`
	Description    string                 `json:"description" db:"description"`
	Priority       Priority               `json:"priority" db:"priority"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Timestamp      time.Time              `json:"timestamp" db:"timestamp"`
	BatchID        *string                `json:"batchId,omitempty" db:"batch_id"`
}

// ActivityFilter is the query shape for getActivities (§4.4).
type ActivityFilter struct {
	CanvasID       string
	ConversationID string
	UserID         string
	Types          []ActivityType
	StartDate      *time.Time
	EndDate        *time.Time
	Limit          int
	Offset         int
}

// ActivityTypeBreakdown is one row of getActivitySummary's per-type report.
type ActivityTypeBreakdown struct {
	Type          ActivityType `json:"type"`
	Count         int          `json:"count"`
	DistinctUsers int          `json:"distinctUsers"`
	LatestActivity time.Time   `json:"latestActivity"`
}

// UserActivityCount is one row of getActivitySummary's top-10 users.
type UserActivityCount struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Count    int    `json:"count"`
}

// ActivitySummary is the response of getActivitySummary(canvasId, hours) (§4.4).
type ActivitySummary struct {
	CanvasID     string                  `json:"canvasId"`
	WindowHours  int                     `json:"windowHours"`
	Total        int                     `json:"total"`
	ByType       []ActivityTypeBreakdown `json:"byType"`
	TopUsers     []UserActivityCount     `json:"topUsers"`
}
