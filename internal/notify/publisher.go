// Package notify publishes high-priority activity events onto NATS for
// consumers outside this process (analytics, audit pipelines, other
// services watching a canvas). Grounded on internal/events/subscriber.go's
// connection options; this repo only ever needs the publish half.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// Config configures the NATS connection. Enabled is false when no NATS
// endpoint is configured; Publisher becomes a no-op in that case rather
// than refusing to start the process over an optional dependency.
type Config struct {
	URL     string
	Enabled bool
}

// Publisher fans out durable Activity records onto NATS subjects scoped
// per canvas.
type Publisher struct {
	conn    *nats.Conn
	enabled bool
}

// NewPublisher connects to NATS when cfg.Enabled is set. A connection
// failure is logged and degrades to a disabled publisher rather than
// failing boot — activity notification is best-effort, not a hard
// dependency of the collaboration core.
func NewPublisher(cfg Config) (*Publisher, error) {
	if !cfg.Enabled {
		logger.Activity().Info().Msg("NATS activity notification disabled")
		return &Publisher{enabled: false}, nil
	}

	opts := []nats.Option{
		nats.Name("canvas-collab-activity"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Activity().Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Activity().Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		logger.Activity().Warn().Err(err).Str("url", cfg.URL).Msg("nats connect failed, activity notification disabled")
		return &Publisher{enabled: false}, nil
	}

	logger.Activity().Info().Str("url", conn.ConnectedUrl()).Msg("connected to nats")
	return &Publisher{conn: conn, enabled: true}, nil
}

// subject is canvas.{canvasId}.activity.high_priority — one subject per
// canvas so a consumer can subscribe narrowly.
func subject(canvasID string) string {
	return fmt.Sprintf("canvas.%s.activity.high_priority", canvasID)
}

// PublishActivity fans a single high-priority activity out to NATS.
// Errors are logged and swallowed: a notification failure must never
// roll back the activity record that was already persisted.
func (p *Publisher) PublishActivity(a *models.Activity) {
	if !p.enabled {
		return
	}
	payload, err := json.Marshal(a)
	if err != nil {
		logger.Activity().Warn().Err(err).Msg("failed to marshal activity for nats publish")
		return
	}
	if err := p.conn.Publish(subject(a.CanvasID), payload); err != nil {
		logger.Activity().Warn().Err(err).Msg("nats publish failed")
	}
}

// Close closes the underlying NATS connection, if any.
func (p *Publisher) Close() error {
	if !p.enabled || p.conn == nil {
		return nil
	}
	p.conn.Close()
	return nil
}
