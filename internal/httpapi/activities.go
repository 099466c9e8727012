package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

func parseActivityQuery(c *gin.Context) models.ActivityFilter {
	filter := models.ActivityFilter{
		Limit:  50,
		Offset: 0,
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}
	if types := c.QueryArray("type"); len(types) > 0 {
		for _, t := range types {
			filter.Types = append(filter.Types, models.ActivityType(t))
		}
	}
	return filter
}

// GetActivitiesByCanvas handles GET /collaboration/activities/canvas/:id.
func (h *Handler) GetActivitiesByCanvas(c *gin.Context) {
	filter := parseActivityQuery(c)
	filter.CanvasID = c.Param("id")
	activities, err := h.activity.GetActivities(filter)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), activities)
}

// GetActivitiesByConversation handles GET /collaboration/activities/conversation/:id.
func (h *Handler) GetActivitiesByConversation(c *gin.Context) {
	filter := parseActivityQuery(c)
	filter.ConversationID = c.Param("id")
	activities, err := h.activity.GetActivities(filter)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), activities)
}

// GetActivitiesByUser handles GET /collaboration/activities/user/:id.
func (h *Handler) GetActivitiesByUser(c *gin.Context) {
	filter := parseActivityQuery(c)
	filter.UserID = c.Param("id")
	activities, err := h.activity.GetActivities(filter)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), activities)
}

// GetActivitySummaryByCanvas handles GET /collaboration/activities/canvas/:id/summary.
func (h *Handler) GetActivitySummaryByCanvas(c *gin.Context) {
	hours := 24
	if v, err := strconv.Atoi(c.Query("hours")); err == nil && v > 0 {
		hours = v
	}
	summary, err := h.activity.GetActivitySummary(c.Param("id"), hours)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), summary)
}

// CleanupActivities handles POST /collaboration/activities/cleanup.
func (h *Handler) CleanupActivities(c *gin.Context) {
	deleted, err := h.activity.CleanupOldActivities()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statusOf(false), gin.H{"deleted": deleted})
}
