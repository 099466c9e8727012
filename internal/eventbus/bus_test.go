package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

func TestSubscribeReceivesPublishedEvent(t *testing.T) {
	bus := New()
	_, ch, cancel := bus.Subscribe(4)
	defer cancel()

	bus.Publish(models.CanvasEvent{CanvasID: "c1", Type: models.EventUserJoined})

	select {
	case evt := <-ch:
		assert.Equal(t, models.EventUserJoined, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := New()
	_, ch, cancel := bus.Subscribe(4)
	cancel()

	bus.Publish(models.CanvasEvent{Type: models.EventUserLeft})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := New()
	_, _, cancel := bus.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(models.CanvasEvent{Type: models.EventCursorUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}

type recordingReplicator struct {
	events chan models.CanvasEvent
}

func (r *recordingReplicator) Replicate(evt models.CanvasEvent) error {
	r.events <- evt
	return nil
}

func TestReplicatorReceivesPublishedEvent(t *testing.T) {
	bus := New()
	rep := &recordingReplicator{events: make(chan models.CanvasEvent, 1)}
	bus.AddReplicator(rep)

	bus.Publish(models.CanvasEvent{Type: models.EventNodeLocked})

	require := require.New(t)
	select {
	case evt := <-rep.events:
		require.Equal(models.EventNodeLocked, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("replicator did not receive event")
	}
}
