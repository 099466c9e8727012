// Package collab implements the Collaboration Service: the ephemeral
// presence/lock/cursor/typing operations backed by the ESS, the hybrid
// session layer backed by the DSS, and the staleness-reaping sweeps that
// keep both in sync. It is the hardest-engineering core this repository
// exists to implement.
package collab

import (
	"context"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/cathalhughes/canvas-collab/internal/config"
	"github.com/cathalhughes/canvas-collab/internal/dss"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
)

// Service is the Collaboration Service. All public methods are safe for
// concurrent use: state lives in the ESS/DSS, not in process memory, so
// multiple Service instances across multiple server processes can share
// one ESS/DSS pair (§5: "multiple server instances may share one ESS").
type Service struct {
	ess   *ess.Client
	store *dss.Store
	bus   *eventbus.Bus

	sanitizer *bluemonday.Policy

	presenceTTL    time.Duration
	focusTTL       time.Duration
	cursorTTL      time.Duration
	typingTTL      time.Duration
	heartbeatTTL   time.Duration
	cursorThrottle time.Duration
	lockDefault    time.Duration
}

// New builds a Collaboration Service over the given stores and event bus,
// with durations sourced from configuration (SPEC_FULL §6.6).
func New(essClient *ess.Client, store *dss.Store, bus *eventbus.Bus, cfg *config.Config) *Service {
	return &Service{
		ess:            essClient,
		store:          store,
		bus:            bus,
		sanitizer:      bluemonday.StrictPolicy(),
		presenceTTL:    time.Duration(cfg.PresenceTTLSeconds) * time.Second,
		focusTTL:       time.Duration(cfg.PresenceTTLSeconds) * time.Second,
		cursorTTL:      time.Duration(cfg.CursorTTLSeconds) * time.Second,
		typingTTL:      time.Duration(cfg.TypingTTLSeconds) * time.Second,
		heartbeatTTL:   time.Duration(cfg.HeartbeatTTLSeconds) * time.Second,
		cursorThrottle: time.Duration(cfg.CursorThrottleSeconds) * time.Second,
		lockDefault:    time.Duration(cfg.LockTimeoutSeconds) * time.Second,
	}
}

func (s *Service) sanitize(in string) string {
	return s.sanitizer.Sanitize(in)
}

// HealthCheck pings the ESS and DSS, the dependency liveness behind the
// `GET /collaboration/health` endpoint (§6.5).
func (s *Service) HealthCheck(ctx context.Context) (essUp, dssUp bool) {
	essUp = s.ess.Ping(ctx) == nil
	dssUp = s.store.Ping() == nil
	return essUp, dssUp
}
