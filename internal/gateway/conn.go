package gateway

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin validates the origin of a WebSocket upgrade request against
// the comma-separated CORS_ALLOWED_ORIGINS env var, falling back to
// localhost-only for local development.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	var allowed []string
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			allowed = append(allowed, strings.TrimSpace(o))
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:3000", "http://localhost:8000"}
	}

	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}

// connectRequest is the caller-supplied identity carried on the upgrade
// request as query parameters, mirroring REST's userPayload convention —
// authentication is out of scope (SPEC_FULL §1 Non-goals).
type connectRequest struct {
	UserID    string
	UserName  string
	UserEmail string
	SessionID string
}

func parseConnectRequest(r *http.Request) connectRequest {
	q := r.URL.Query()
	return connectRequest{
		UserID:    q.Get("userId"),
		UserName:  q.Get("userName"),
		UserEmail: q.Get("userEmail"),
		SessionID: q.Get("sessionId"),
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and hands it
// off to the hub, the entry point mounted at the gateway's socket path.
func (h *Hub) ServeWS(c *gin.Context) {
	req := parseConnectRequest(c.Request)
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"message": "userId query parameter is required"}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	user := models.UserRef{ID: req.UserID, Name: req.UserName, Email: req.UserEmail}
	client := h.NewClient(conn, req.UserID, user, req.SessionID)
	h.Serve(client)
}
