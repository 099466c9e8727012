// Package gateway implements the Event Bus Gateway: the WebSocket layer
// that accepts connections, maintains a canvas-room registry, and bridges
// ephemeral-state events to and from connected sockets (SPEC_FULL §4.3).
//
// Generalized from internal/websocket/hub.go's Hub/Client shape: the same
// register/unregister channel loop and "collect slow clients under a read
// lock, evict under a write lock" broadcast idiom, with orgID-scoped
// broadcast widened to canvasId-scoped room broadcast.
package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cathalhughes/canvas-collab/internal/collab"
	"github.com/cathalhughes/canvas-collab/internal/config"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// Client represents one authenticated WebSocket connection and its
// collaboration state machine position: CONNECTED until it joins a
// canvas, JOINED(canvasId) afterward.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID    string
	user      models.UserRef
	sessionID string

	mu       sync.RWMutex
	canvasID string // "" while CONNECTED, set on JOINED

	limiter *rate.Limiter
}

func (c *Client) CanvasID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canvasID
}

func (c *Client) setCanvasID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canvasID = id
}

// Hub owns the canvas-room registry and bridges the in-process event bus
// (local publishes) to room broadcasts.
type Hub struct {
	rooms map[string]map[*Client]bool
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client

	collab *collab.Service
	bus    *eventbus.Bus
	cfg    *config.Config
}

// NewHub builds a gateway Hub over a Collaboration Service and the shared
// in-process event bus.
func NewHub(collabSvc *collab.Service, bus *eventbus.Bus, cfg *config.Config) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		collab:     collabSvc,
		bus:        bus,
		cfg:        cfg,
	}
}

// NewClient wraps a socket connection with its per-connection rate
// limiter (mirroring the documented "Max 100 events/sec per user" cap).
func (h *Hub) NewClient(conn *websocket.Conn, userID string, user models.UserRef, sessionID string) *Client {
	return &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		userID:    userID,
		user:      user,
		sessionID: sessionID,
		limiter:   rate.NewLimiter(rate.Limit(h.cfg.GatewayRateLimitPerSecond), h.cfg.GatewayRateLimitBurst),
	}
}

// Run drives the registration loop and the local event-bus bridge. It
// blocks until done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	_, events, cancel := h.bus.Subscribe(256)
	defer cancel()

	for {
		select {
		case client := <-h.register:
			logger.Gateway().Debug().Str("userId", client.userID).Msg("client connected")

		case client := <-h.unregister:
			h.leaveAllRooms(client)
			close(client.send)

		case evt := <-events:
			h.broadcastToRoom(evt.CanvasID, mustEnvelope(string(evt.Type), evt.Data))

		case <-done:
			return
		}
	}
}

func (h *Hub) joinRoom(canvasID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[canvasID] == nil {
		h.rooms[canvasID] = make(map[*Client]bool)
	}
	h.rooms[canvasID][client] = true
	client.setCanvasID(canvasID)
}

func (h *Hub) leaveRoom(canvasID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[canvasID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, canvasID)
		}
	}
	client.setCanvasID("")
}

func (h *Hub) leaveAllRooms(client *Client) {
	canvasID := client.CanvasID()
	if canvasID == "" {
		return
	}
	h.leaveRoom(canvasID, client)
}

// RoomSize reports how many clients are currently joined to a canvas.
func (h *Hub) RoomSize(canvasID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[canvasID])
}

// broadcastToRoom sends a raw payload to every client in a room, evicting
// slow clients the same way the teacher's Hub.Broadcast does: collect
// under a read lock, then close/remove under a write lock so the
// broadcaster never blocks holding an exclusive lock.
func (h *Hub) broadcastToRoom(canvasID string, payload []byte) {
	h.mu.RLock()
	room := h.rooms[canvasID]
	var slow []*Client
	for client := range room {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		if r, ok := h.rooms[canvasID]; ok {
			if _, present := r[client]; present {
				delete(r, client)
				close(client.send)
			}
		}
	}
	h.mu.Unlock()
}

// broadcastToUser sends a payload to one specific client anywhere in the
// hub, used by the direct broadcast helpers (§4.3).
func (h *Hub) broadcastToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, room := range h.rooms {
		for client := range room {
			if client.userID == userID {
				select {
				case client.send <- payload:
				default:
				}
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if !c.limiter.Allow() {
			c.send <- mustEnvelope("rate_limit_error", map[string]string{"message": "too many events"})
			continue
		}
		c.hub.dispatch(c, message)
	}
}

// Serve registers the client and starts its pumps. Blocks until the
// connection closes.
func (h *Hub) Serve(client *Client) {
	h.register <- client
	go client.writePump()
	client.readPump()
}
