package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /collaboration/health, reporting liveness of both
// backing stores rather than just process liveness.
func (h *Handler) Health(c *gin.Context) {
	essUp, dssUp := h.collab.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if !essUp || !dssUp {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, envelope{
		Success: essUp && dssUp,
		Data: gin.H{
			"ess": essUp,
			"dss": dssUp,
		},
	})
}
