// Package scheduler wires the three periodic jobs SPEC_FULL §5 calls for
// (1-minute DSS lock release, 5-minute session/ESS-staleness cleanup,
// N-day activity retention) onto a robfig/cron/v3 scheduler, the same
// library the teacher's plugin runtime uses for time-based plugin jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cathalhughes/canvas-collab/internal/activity"
	"github.com/cathalhughes/canvas-collab/internal/collab"
	"github.com/cathalhughes/canvas-collab/internal/logger"
)

// Scheduler owns the cron instance and the services its jobs call into.
type Scheduler struct {
	cron           *cron.Cron
	collab         *collab.Service
	activity       *activity.Service
	sessionTimeout time.Duration
}

// New builds a Scheduler without starting it.
func New(collabSvc *collab.Service, activitySvc *activity.Service, sessionTimeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		collab:         collabSvc,
		activity:       activitySvc,
		sessionTimeout: sessionTimeout,
	}
}

// Start registers all three jobs and starts the cron scheduler in its own
// goroutine. Returns an error only if a cron expression fails to parse,
// which would indicate a programming error here, not a runtime condition.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.releaseExpiredLocks); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 5m", s.sweepStaleSessionsAndPresence); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@midnight", s.cleanupOldActivities); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop drains in-flight jobs and waits for the cron scheduler to finish,
// bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		logger.Collab().Warn().Msg("scheduler stop deadline exceeded, jobs may still be running")
	}
}

func (s *Scheduler) releaseExpiredLocks() {
	n, err := s.collab.ReleaseExpiredDSSLocks()
	if err != nil {
		logger.Collab().Error().Err(err).Msg("release expired dss locks job failed")
		return
	}
	if n > 0 {
		logger.Collab().Info().Int64("released", n).Msg("released expired dss locks")
	}
}

// sweepStaleSessionsAndPresence runs the DSS-wide stale session sweep plus
// a per-canvas ESS presence/lock staleness sweep, since the ESS has no
// "do this for every canvas" primitive of its own — ActiveCanvasIDs
// discovers which canvases currently have any live presence.
func (s *Scheduler) sweepStaleSessionsAndPresence() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.collab.DeactivateStaleDSSSessions(s.sessionTimeout)
	if err != nil {
		logger.Collab().Error().Err(err).Msg("deactivate stale dss sessions job failed")
	} else if n > 0 {
		logger.Collab().Info().Int64("deactivated", n).Msg("deactivated stale dss sessions")
	}

	canvasIDs, err := s.collab.ActiveCanvasIDs(ctx)
	if err != nil {
		logger.Collab().Error().Err(err).Msg("list active canvases for sweep failed")
		return
	}
	for _, canvasID := range canvasIDs {
		if evicted, err := s.collab.CleanupStalePresence(ctx, canvasID); err != nil {
			logger.Collab().Warn().Err(err).Str("canvasId", canvasID).Msg("stale presence sweep failed")
		} else if evicted > 0 {
			logger.Collab().Info().Str("canvasId", canvasID).Int("evicted", evicted).Msg("evicted stale presence")
		}
		if cleared, err := s.collab.ClearStaleLocksForCanvas(ctx, canvasID); err != nil {
			logger.Collab().Warn().Err(err).Str("canvasId", canvasID).Msg("stale lock sweep failed")
		} else if cleared > 0 {
			logger.Collab().Info().Str("canvasId", canvasID).Int("cleared", cleared).Msg("cleared stale locks")
		}
	}
}

func (s *Scheduler) cleanupOldActivities() {
	n, err := s.activity.CleanupOldActivities()
	if err != nil {
		logger.Collab().Error().Err(err).Msg("activity retention cleanup job failed")
		return
	}
	if n > 0 {
		logger.Collab().Info().Int64("deleted", n).Msg("cleaned up old activities")
	}
}
