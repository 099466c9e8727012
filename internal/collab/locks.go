package collab

import (
	"context"
	"time"

	"github.com/cathalhughes/canvas-collab/internal/errors"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// LockNode is the central algorithm (§4.2.4). Three cases: same owner
// extends, other owner fails with LOCK_ALREADY_HELD (current lock
// attached as detail), absent acquires via create-if-absent — the single
// race-free primitive, per the spec's own tie-break note.
func (s *Service) LockNode(ctx context.Context, canvasID, conversationID, nodeID, userID string, user models.UserRef, sessionID string, lockDurationSeconds int) (*models.NodeLock, error) {
	if lockDurationSeconds <= 0 {
		lockDurationSeconds = int(s.lockDefault / time.Second)
	}
	ttl := time.Duration(lockDurationSeconds) * time.Second
	key := ess.LockKey(canvasID, conversationID, nodeID)

	var existing models.NodeLock
	found, err := s.ess.GetJSON(ctx, key, &existing)
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}

	if found {
		if existing.UserID == userID {
			existing.ExpiresAt = time.Now().Add(ttl)
			if _, err := s.ess.SetJSON(ctx, key, existing, ttl, ess.SetStringOpts{}); err != nil {
				return nil, errors.ESSConnectionError(err)
			}
			return &existing, nil
		}
		return nil, errors.LockAlreadyHeld(existing)
	}

	newLock := models.NodeLock{
		CanvasID:       canvasID,
		ConversationID: conversationID,
		NodeID:         nodeID,
		UserID:         userID,
		User:           user,
		LockedAt:       time.Now(),
		ExpiresAt:      time.Now().Add(ttl),
		SessionID:      sessionID,
	}
	ok, err := s.ess.SetJSON(ctx, key, newLock, ttl, ess.SetStringOpts{CreateOnlyIfAbsent: true})
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	if !ok {
		// lost the race; re-read and report who actually holds it
		var racer models.NodeLock
		if found, err := s.ess.GetJSON(ctx, key, &racer); err == nil && found {
			return nil, errors.LockAlreadyHeld(racer)
		}
		return nil, errors.LockAlreadyHeld(nil)
	}

	s.publish(canvasID, models.EventNodeLocked, newLock)
	return &newLock, nil
}

// UnlockNode releases a lock the caller owns (§4.2.5).
func (s *Service) UnlockNode(ctx context.Context, canvasID, conversationID, nodeID, userID string) (bool, error) {
	key := ess.LockKey(canvasID, conversationID, nodeID)

	var existing models.NodeLock
	found, err := s.ess.GetJSON(ctx, key, &existing)
	if err != nil {
		return false, errors.ESSConnectionError(err)
	}
	if !found {
		return false, nil
	}
	if existing.UserID != userID {
		return false, errors.LockNotOwned(existing.UserID)
	}

	if err := s.ess.Delete(ctx, key); err != nil {
		return false, errors.ESSConnectionError(err)
	}
	s.publish(canvasID, models.EventNodeUnlocked, existing)
	return true, nil
}

// ExtendNodeLock is the same-owner extension path of LockNode, exposed
// standalone for the `extendNodeLock` operation (§4.2.6). Returns nil if
// no lock exists rather than acquiring one.
func (s *Service) ExtendNodeLock(ctx context.Context, canvasID, conversationID, nodeID, userID string, lockDurationSeconds int) (*models.NodeLock, error) {
	if lockDurationSeconds <= 0 {
		lockDurationSeconds = int(s.lockDefault / time.Second)
	}
	ttl := time.Duration(lockDurationSeconds) * time.Second
	key := ess.LockKey(canvasID, conversationID, nodeID)

	var existing models.NodeLock
	found, err := s.ess.GetJSON(ctx, key, &existing)
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	if !found {
		return nil, nil
	}
	if existing.UserID != userID {
		return nil, errors.LockNotOwned(existing.UserID)
	}

	existing.ExpiresAt = time.Now().Add(ttl)
	if _, err := s.ess.SetJSON(ctx, key, existing, ttl, ess.SetStringOpts{}); err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	return &existing, nil
}

// GetLockStatus is the plain ESS-only lock lookup behind `GET
// /collaboration/node/:canvasId/:conversationId/:nodeId/lock` — no DSS
// fallback, unlike GetRealtimeLockStatus below.
func (s *Service) GetLockStatus(ctx context.Context, canvasID, conversationID, nodeID string) (*models.NodeLock, error) {
	key := ess.LockKey(canvasID, conversationID, nodeID)
	var lock models.NodeLock
	found, err := s.ess.GetJSON(ctx, key, &lock)
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	if !found {
		return nil, nil
	}
	return &lock, nil
}

// GetRealtimeLockStatus answers "who holds this lock right now", preferring
// the ESS and falling back to the DSS hybrid-session record when the ESS is
// unreachable (supplemented operation, SPEC_FULL §8 boundary behavior).
func (s *Service) GetRealtimeLockStatus(ctx context.Context, canvasID, conversationID, nodeID string) (*models.RealtimeLockStatus, error) {
	key := ess.LockKey(canvasID, conversationID, nodeID)
	var lock models.NodeLock
	found, err := s.ess.GetJSON(ctx, key, &lock)
	if err == nil {
		if !found {
			return &models.RealtimeLockStatus{HasLock: false, Source: "redis"}, nil
		}
		return &models.RealtimeLockStatus{HasLock: true, Lock: &lock, Source: "redis"}, nil
	}

	target := editingTarget(canvasID, conversationID, nodeID)
	sess, dbErr := s.store.Sessions().GetActiveByTarget(target)
	if dbErr != nil {
		return nil, errors.ESSConnectionError(err)
	}
	if sess == nil || !sess.HasLock || sess.LockExpired(time.Now()) {
		return &models.RealtimeLockStatus{HasLock: false, Source: "dss"}, nil
	}
	return &models.RealtimeLockStatus{
		HasLock: true,
		Lock: &models.NodeLock{
			CanvasID:       canvasID,
			ConversationID: conversationID,
			NodeID:         nodeID,
			UserID:         sess.UserID,
			User:           sess.User,
			ExpiresAt:      *sess.LockExpiry,
			SessionID:      sess.SessionID,
		},
		Source: "dss",
	}, nil
}
