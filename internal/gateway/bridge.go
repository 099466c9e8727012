package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// envelope wraps a published event with the publishing instance's id so a
// process can recognize and drop its own ESS pub/sub echo. Redis PSUBSCRIBE
// delivers a message back to the instance that published it, and without
// this the in-process eventbus fanout and the ESS bridge fanout would
// double-broadcast the same event to that instance's own clients.
//
// canvasId is carried explicitly because models.CanvasEvent.CanvasID is
// tagged json:"-" and never appears in the wire payload otherwise.
type envelope struct {
	OriginID string             `json:"originId"`
	CanvasID string             `json:"canvasId"`
	Event    models.CanvasEvent `json:"event"`
}

// ESSBridge replicates locally-published events to every other gateway
// instance sharing the ESS, and relays events published by other instances
// back into this instance's Hub.
type ESSBridge struct {
	ess      *ess.Client
	hub      *Hub
	originID string
}

// NewESSBridge assigns a fresh random instance id and wires the bridge as
// the hub's bus replicator.
func NewESSBridge(essClient *ess.Client, hub *Hub) *ESSBridge {
	return &ESSBridge{ess: essClient, hub: hub, originID: uuid.NewString()}
}

// Replicate implements eventbus.Replicator, publishing a locally produced
// event to the channel every gateway instance watching this canvas
// subscribes to.
func (b *ESSBridge) Replicate(evt models.CanvasEvent) error {
	env := envelope{OriginID: b.originID, CanvasID: evt.CanvasID, Event: evt}
	payload, err := json.Marshal(env)
	if err != nil {
		logger.Gateway().Warn().Err(err).Str("canvasId", evt.CanvasID).Msg("failed to marshal event envelope for ess publish")
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.ess.Publish(context.Background(), ess.EventsChannel(evt.CanvasID), payload); err != nil {
		logger.Gateway().Warn().Err(err).Str("canvasId", evt.CanvasID).Msg("ess event publish failed")
		return err
	}
	return nil
}

var _ eventbus.Replicator = (*ESSBridge)(nil)

// Listen subscribes to canvas:*:events exactly once and routes every
// non-self-originated message into the local Hub's room broadcast. It
// blocks until ctx is done or the subscription errors out.
func (b *ESSBridge) Listen(ctx context.Context) {
	sub := b.ess.PatternSubscribe(ctx, ess.EventsPattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Gateway().Warn().Err(err).Msg("discarding malformed event envelope")
				continue
			}
			if env.OriginID == b.originID {
				continue // our own publish, already fanned out via eventbus.Bus
			}
			b.hub.broadcastToRoom(env.CanvasID, mustEnvelope(string(env.Event.Type), env.Event.Data))
		}
	}
}
