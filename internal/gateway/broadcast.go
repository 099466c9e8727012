package gateway

// Direct broadcast helpers for domain events that originate outside the
// collaboration core (tree/node mutations from the canvas API, activity
// feed entries) but still need to reach every client in a room. These
// bypass eventbus.Bus entirely since they are not ephemeral-state events
// and have no ESS echo to filter.

// broadcastCanvasChange wraps a tree/node mutation in the single
// canvas_change envelope (§6.3): {"type": "<subtype>", "data": ...}.
func (h *Hub) broadcastCanvasChange(canvasID, changeType string, data interface{}) {
	h.broadcastToRoom(canvasID, mustEnvelope("canvas_change", map[string]interface{}{
		"type": changeType,
		"data": data,
	}))
}

func (h *Hub) BroadcastTreeCreated(canvasID string, tree interface{}) {
	h.broadcastCanvasChange(canvasID, "tree_created", tree)
}

func (h *Hub) BroadcastTreeUpdated(canvasID string, tree interface{}) {
	h.broadcastCanvasChange(canvasID, "tree_updated", tree)
}

func (h *Hub) BroadcastTreeDeleted(canvasID, treeID string) {
	h.broadcastCanvasChange(canvasID, "tree_deleted", map[string]string{"treeId": treeID})
}

func (h *Hub) BroadcastNodeCreated(canvasID string, node interface{}) {
	h.broadcastCanvasChange(canvasID, "node_created", node)
}

func (h *Hub) BroadcastNodeUpdated(canvasID string, node interface{}) {
	h.broadcastCanvasChange(canvasID, "node_updated", node)
}

func (h *Hub) BroadcastNodeDeleted(canvasID, nodeID string) {
	h.broadcastCanvasChange(canvasID, "node_deleted", map[string]string{"nodeId": nodeID})
}

// BroadcastActivity emits the single-activity feed event (§6.3
// activity_update) the Activity Service sends for every immediate and
// batch-flushed record.
func (h *Hub) BroadcastActivity(canvasID string, activity interface{}) {
	h.broadcastToRoom(canvasID, mustEnvelope("activity_update", activity))
}

// BroadcastBulkActivity emits a multi-activity feed event (§6.3
// bulk_activity_update), the EBG's direct-path helper for canvas-API
// callers that record several activities in one operation.
func (h *Hub) BroadcastBulkActivity(canvasID string, activities interface{}) {
	h.broadcastToRoom(canvasID, mustEnvelope("bulk_activity_update", activities))
}

// BroadcastActivityNotification emits the high-priority toast (§4.4, §6.3
// activity_notification) alongside the Activity Service's NATS fan-out,
// for the {BRANCH_CREATED, CONFLICT_DETECTED, ERROR_OCCURRED,
// USER_JOINED_CANVAS, USER_LEFT_CANVAS, CONVERSATION_CREATED} set.
func (h *Hub) BroadcastActivityNotification(canvasID string, activity interface{}) {
	h.broadcastToRoom(canvasID, mustEnvelope("activity_notification", activity))
}

// BroadcastToUser delivers an event to one user's connection(s) regardless
// of which room they're in, used for per-user notifications that aren't
// canvas-scoped.
func (h *Hub) BroadcastToUser(userID, event string, data interface{}) {
	h.broadcastToUser(userID, mustEnvelope(event, data))
}
