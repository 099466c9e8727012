package collab

import (
	"context"
	"time"

	"github.com/cathalhughes/canvas-collab/internal/errors"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// CleanupStalePresence evicts users whose heartbeat is older than
// 2xHEARTBEAT_TTL (§4.2.11). The redundancy against the heartbeat key's
// own TTL is intentional (§8): the presence set can lag a single expired
// key by one sweep interval.
func (s *Service) CleanupStalePresence(ctx context.Context, canvasID string) (int, error) {
	userIDs, err := s.ess.SetMembers(ctx, ess.PresenceSetKey(canvasID))
	if err != nil {
		return 0, errors.ESSConnectionError(err)
	}

	staleAfter := 2 * s.heartbeatTTL
	now := time.Now()
	evicted := 0

	for _, userID := range userIDs {
		ts, found, err := s.ess.GetString(ctx, ess.HeartbeatKey(canvasID, userID))
		if err != nil {
			logger.Collab().Warn().Err(err).Str("userId", userID).Msg("heartbeat read failed during stale sweep")
			continue
		}
		if !found {
			if err := s.LeaveCanvas(ctx, canvasID, userID); err != nil {
				logger.Collab().Warn().Err(err).Str("userId", userID).Msg("leaveCanvas failed during stale sweep")
				continue
			}
			evicted++
			continue
		}
		age, ok := heartbeatAge(ts, now)
		if !ok || age <= staleAfter {
			continue
		}
		if err := s.LeaveCanvas(ctx, canvasID, userID); err != nil {
			logger.Collab().Warn().Err(err).Str("userId", userID).Msg("leaveCanvas failed during stale sweep")
			continue
		}
		evicted++
	}
	return evicted, nil
}

// ClearStaleLocksForCanvas drops any node lock whose expiresAt has passed
// and publishes LOCK_EXPIRED for each (§4.2.11). Under normal operation
// the Redis TTL removes these keys on its own; this sweep exists for
// clock-skew and "TTL didn't fire yet" edge cases.
func (s *Service) ClearStaleLocksForCanvas(ctx context.Context, canvasID string) (int, error) {
	keys, err := s.ess.KeysMatching(ctx, ess.LockPattern(canvasID))
	if err != nil {
		return 0, errors.ESSConnectionError(err)
	}

	now := time.Now()
	cleared := 0
	for _, key := range keys {
		var lock models.NodeLock
		found, err := s.ess.GetJSON(ctx, key, &lock)
		if err != nil || !found {
			continue
		}
		if !lock.Expired(now) {
			continue
		}
		if err := s.ess.Delete(ctx, key); err != nil {
			logger.Collab().Warn().Err(err).Str("key", key).Msg("failed to delete expired lock")
			continue
		}
		s.publish(canvasID, models.EventLockExpired, lock)
		cleared++
	}
	return cleared, nil
}

// ReleaseExpiredDSSLocks runs the 1-minute scheduled job: clear any DSS
// EditingSession lock whose expiry has passed (§5 periodic jobs).
func (s *Service) ReleaseExpiredDSSLocks() (int64, error) {
	n, err := s.store.Sessions().ReleaseExpiredLocks(time.Now())
	if err != nil {
		return 0, errors.DatabaseError(err)
	}
	return n, nil
}

// DeactivateStaleDSSSessions runs the 5-minute scheduled job: deactivate
// any DSS session that hasn't seen activity within sessionTimeout (§5).
func (s *Service) DeactivateStaleDSSSessions(sessionTimeout time.Duration) (int64, error) {
	n, err := s.store.Sessions().DeactivateStale(time.Now().Add(-sessionTimeout))
	if err != nil {
		return 0, errors.DatabaseError(err)
	}
	return n, nil
}

// ActiveCanvasIDs lists every canvas with a live ESS presence set, the
// discovery step the 5-minute sweep uses before running
// CleanupStalePresence/ClearStaleLocksForCanvas per canvas (neither ESS
// operation has a "do this for every canvas" primitive of its own).
func (s *Service) ActiveCanvasIDs(ctx context.Context) ([]string, error) {
	keys, err := s.ess.KeysMatching(ctx, ess.ActiveCanvasesPattern)
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if canvasID, ok := ess.CanvasIDFromPresenceSetKey(key); ok {
			ids = append(ids, canvasID)
		}
	}
	return ids, nil
}
