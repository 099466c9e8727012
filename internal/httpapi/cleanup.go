package httpapi

import (
	"github.com/gin-gonic/gin"
)

// CleanupStalePresence handles POST /collaboration/cleanup/presence/:canvasId.
func (h *Handler) CleanupStalePresence(c *gin.Context) {
	evicted, err := h.collab.CleanupStalePresence(c.Request.Context(), c.Param("canvasId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"evicted": evicted})
}

// CleanupStaleLocks handles POST /collaboration/cleanup/locks/:canvasId.
func (h *Handler) CleanupStaleLocks(c *gin.Context) {
	cleared, err := h.collab.ClearStaleLocksForCanvas(c.Request.Context(), c.Param("canvasId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"cleared": cleared})
}

// CleanupStaleSessions handles POST /collaboration/cleanup/sessions, running
// both DSS sweeps (expired locks, then stale sessions) the scheduler also
// runs periodically, exposed here for manual/operator-triggered cleanup.
func (h *Handler) CleanupStaleSessions(c *gin.Context) {
	lockCount, err := h.collab.ReleaseExpiredDSSLocks()
	if err != nil {
		fail(c, err)
		return
	}
	sessionCount, err := h.collab.DeactivateStaleDSSSessions(h.sessionTimeout)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"locksReleased": lockCount, "sessionsDeactivated": sessionCount})
}
