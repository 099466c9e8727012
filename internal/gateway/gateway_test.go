package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/cathalhughes/canvas-collab/internal/collab"
	"github.com/cathalhughes/canvas-collab/internal/config"
	"github.com/cathalhughes/canvas-collab/internal/dss"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

func testCfg() *config.Config {
	return &config.Config{
		PresenceTTLSeconds:        300,
		CursorTTLSeconds:          60,
		TypingTTLSeconds:          10,
		HeartbeatTTLSeconds:       30,
		CursorThrottleSeconds:     1,
		LockTimeoutSeconds:        30,
		GatewayRateLimitPerSecond: 100,
		GatewayRateLimitBurst:     20,
	}
}

func setupHub(t *testing.T) (*Hub, *miniredis.Miniredis, sqlmock.Sqlmock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	essClient, err := ess.New(ess.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { essClient.Close() })

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := dss.NewForTesting(db)
	bus := eventbus.New()
	cfg := testCfg()
	svc := collab.New(essClient, store, bus, cfg)

	return NewHub(svc, bus, cfg), mr, mock
}

func newTestClient(h *Hub, userID string) *Client {
	return &Client{
		hub:     h,
		send:    make(chan []byte, 16),
		userID:  userID,
		user:    models.UserRef{ID: userID, Name: userID},
		limiter: rate.NewLimiter(rate.Limit(h.cfg.GatewayRateLimitPerSecond), h.cfg.GatewayRateLimitBurst),
	}
}

func TestJoinRoomAndLeaveRoom(t *testing.T) {
	h, _, _ := setupHub(t)
	c := newTestClient(h, "u1")

	h.joinRoom("c1", c)
	assert.Equal(t, 1, h.RoomSize("c1"))
	assert.Equal(t, "c1", c.CanvasID())

	h.leaveRoom("c1", c)
	assert.Equal(t, 0, h.RoomSize("c1"))
	assert.Equal(t, "", c.CanvasID())
}

func TestBroadcastToRoomDeliversToAllMembers(t *testing.T) {
	h, _, _ := setupHub(t)
	c1 := newTestClient(h, "u1")
	c2 := newTestClient(h, "u2")
	h.joinRoom("c1", c1)
	h.joinRoom("c1", c2)

	h.broadcastToRoom("c1", mustEnvelope("node_created", map[string]string{"id": "n1"}))

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			var env outbound
			require.NoError(t, json.Unmarshal(msg, &env))
			assert.Equal(t, "node_created", env.Event)
		case <-time.After(time.Second):
			t.Fatal("expected broadcast delivery")
		}
	}
}

func TestBroadcastToRoomEvictsSlowClient(t *testing.T) {
	h, _, _ := setupHub(t)
	c := &Client{hub: h, send: make(chan []byte, 1), userID: "u1"}
	h.joinRoom("c1", c)

	// fill the buffer so the next broadcast finds it full
	c.send <- []byte("x")
	h.broadcastToRoom("c1", []byte("y"))

	assert.Equal(t, 0, h.RoomSize("c1"), "slow client must be evicted from the room")
}

func TestDispatchJoinCanvasSuccess(t *testing.T) {
	h, _, _ := setupHub(t)
	c := newTestClient(h, "u1")

	raw, _ := json.Marshal(inbound{Event: "join_canvas", Data: json.RawMessage(`{"canvasId":"c1"}`)})
	h.dispatch(c, raw)

	select {
	case msg := <-c.send:
		var env outbound
		require.NoError(t, json.Unmarshal(msg, &env))
		assert.Equal(t, "join_canvas_success", env.Event)
	case <-time.After(time.Second):
		t.Fatal("expected join_canvas_success")
	}
	assert.Equal(t, "c1", c.CanvasID())
	assert.Equal(t, 1, h.RoomSize("c1"))
}

func TestDispatchLockNodeConflictRepliesWithError(t *testing.T) {
	h, _, _ := setupHub(t)
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")
	h.joinRoom("c1", alice)
	h.joinRoom("c1", bob)

	lockMsg, _ := json.Marshal(inbound{Event: "lock_node", Data: json.RawMessage(`{"nodeId":"n1","lockDurationSeconds":30}`)})
	h.dispatch(alice, lockMsg)
	<-alice.send // lock_node_success

	h.dispatch(bob, lockMsg)
	select {
	case msg := <-bob.send:
		var env outbound
		require.NoError(t, json.Unmarshal(msg, &env))
		assert.Equal(t, "lock_node_error", env.Event)
	case <-time.After(time.Second):
		t.Fatal("expected lock_node_error")
	}
}

func TestDispatchUnknownEventRepliesWithError(t *testing.T) {
	h, _, _ := setupHub(t)
	c := newTestClient(h, "u1")

	raw, _ := json.Marshal(inbound{Event: "not_a_real_event"})
	h.dispatch(c, raw)

	select {
	case msg := <-c.send:
		var env outbound
		require.NoError(t, json.Unmarshal(msg, &env))
		assert.Equal(t, "error", env.Event)
	case <-time.After(time.Second):
		t.Fatal("expected an error reply")
	}
}

func TestESSBridgeFiltersSelfOriginatedEvents(t *testing.T) {
	h, mr, _ := setupHub(t)
	essClient, err := ess.New(ess.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer essClient.Close()

	bridge := NewESSBridge(essClient, h)

	c := newTestClient(h, "u1")
	h.joinRoom("c1", c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Listen(ctx)
	time.Sleep(50 * time.Millisecond) // let PSUBSCRIBE register with miniredis

	require.NoError(t, bridge.Replicate(models.CanvasEvent{
		CanvasID: "c1",
		Type:     models.EventUserJoined,
		Data:     map[string]string{"userId": "u1"},
	}))

	select {
	case <-c.send:
		t.Fatal("self-originated event must not be re-delivered through the ESS bridge")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestESSBridgeRelaysForeignEvents(t *testing.T) {
	h, mr, _ := setupHub(t)
	essClient, err := ess.New(ess.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer essClient.Close()

	bridge := NewESSBridge(essClient, h)

	c := newTestClient(h, "u1")
	h.joinRoom("c1", c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Listen(ctx)
	time.Sleep(50 * time.Millisecond)

	foreign := envelope{
		OriginID: "some-other-instance",
		CanvasID: "c1",
		Event:    models.CanvasEvent{CanvasID: "c1", Type: models.EventNodeLocked, Data: map[string]string{"nodeId": "n1"}},
	}
	payload, err := json.Marshal(foreign)
	require.NoError(t, err)
	require.NoError(t, essClient.Publish(context.Background(), ess.EventsChannel("c1"), payload))

	select {
	case msg := <-c.send:
		var env outbound
		require.NoError(t, json.Unmarshal(msg, &env))
		assert.Equal(t, string(models.EventNodeLocked), env.Event)
	case <-time.After(time.Second):
		t.Fatal("expected foreign event to be relayed to local room")
	}
}
