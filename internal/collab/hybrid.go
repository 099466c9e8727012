package collab

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cathalhughes/canvas-collab/internal/errors"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

func editingTarget(canvasID, conversationID, nodeID string) string {
	if nodeID != "" {
		return fmt.Sprintf("%s:%s:%s", canvasID, conversationID, nodeID)
	}
	if conversationID != "" {
		return fmt.Sprintf("%s:%s", canvasID, conversationID)
	}
	return canvasID
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mirrorSession writes a best-effort ESS copy of a DSS session row, the
// ESS half of the write-through pair. Failures here are logged and
// swallowed — the DSS row remains authoritative per §4.2.10.
func (s *Service) mirrorSession(ctx context.Context, sess *models.EditingSession) {
	if _, err := s.ess.SetJSON(ctx, ess.SessionMirrorKey(sess.CanvasID, sess.SessionID), sess, 24*time.Hour, ess.SetStringOpts{}); err != nil {
		logger.Collab().Warn().Err(err).Str("sessionId", sess.SessionID).Msg("ess session mirror write failed, dss record remains authoritative")
	}
}

// StartHybridSession creates a DSS-authoritative EditingSession and
// mirrors it to the ESS (§4.2.10).
func (s *Service) StartHybridSession(ctx context.Context, canvasID string, conversationID, nodeID *string, editingType models.EditingType, userID string, user models.UserRef) (*models.EditingSession, error) {
	now := time.Now()
	sess := &models.EditingSession{
		SessionID:      uuid.NewString(),
		UserID:         userID,
		User:           user,
		CanvasID:       canvasID,
		ConversationID: conversationID,
		NodeID:         nodeID,
		EditingType:    editingType,
		EditingTarget:  editingTarget(canvasID, strOrEmpty(conversationID), strOrEmpty(nodeID)),
		StartedAt:      now,
		LastActivityAt: now,
		IsActive:       true,
		Version:        1,
	}

	if err := s.store.Sessions().Create(sess); err != nil {
		return nil, errors.DatabaseError(err)
	}
	s.mirrorSession(ctx, sess)
	return sess, nil
}

// EndHybridSession deactivates the DSS session and drops the ESS mirror.
func (s *Service) EndHybridSession(ctx context.Context, canvasID, sessionID string) error {
	if err := s.store.Sessions().Deactivate(sessionID); err != nil {
		return errors.DatabaseError(err)
	}
	if err := s.ess.Delete(ctx, ess.SessionMirrorKey(canvasID, sessionID)); err != nil {
		logger.Collab().Warn().Err(err).Str("sessionId", sessionID).Msg("ess session mirror cleanup failed")
	}
	return nil
}

// AcquireHybridLock performs the DSS conflict check first (an active
// session on the same editingTarget already holding an unexpired lock,
// excluding self), acquires the DSS lock, then attempts the ESS lock.
//
// If the ESS acquisition fails after the DSS lock succeeded, this
// compensates by releasing the DSS lock rather than leaving the two
// stores disagreeing about who holds it — a deliberate strengthening of
// the write-through contract recorded under DESIGN.md's Open Question
// decisions.
func (s *Service) AcquireHybridLock(ctx context.Context, sess *models.EditingSession, conversationID, nodeID string, user models.UserRef, lockDurationSeconds int) (*models.EditingSession, error) {
	conflict, err := s.store.Sessions().GetActiveByTarget(sess.EditingTarget)
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	if conflict != nil && conflict.SessionID != sess.SessionID && conflict.HasLock && !conflict.LockExpired(time.Now()) {
		return nil, errors.LockAlreadyHeld(conflict)
	}

	expiry := time.Now().Add(s.lockDefault)
	if lockDurationSeconds > 0 {
		expiry = time.Now().Add(time.Duration(lockDurationSeconds) * time.Second)
	}
	if err := s.store.Sessions().AcquireLock(sess.SessionID, sess.Version, expiry); err != nil {
		return nil, errors.DatabaseError(err)
	}
	sess.HasLock = true
	sess.LockExpiry = &expiry
	sess.Version++

	if sess.NodeID != nil && *sess.NodeID != "" {
		if _, err := s.LockNode(ctx, sess.CanvasID, conversationID, nodeID, sess.UserID, user, sess.SessionID, lockDurationSeconds); err != nil {
			if relErr := s.store.Sessions().ReleaseLock(sess.SessionID); relErr != nil {
				logger.Collab().Error().Err(relErr).Str("sessionId", sess.SessionID).Msg("failed to compensate dss lock after ess acquisition failure")
			} else {
				sess.HasLock = false
				sess.LockExpiry = nil
			}
			return sess, fmt.Errorf("ess lock acquisition failed, dss lock compensated: %w", err)
		}
	}

	s.mirrorSession(ctx, sess)
	return sess, nil
}

// ReleaseHybridLock mirrors AcquireHybridLock in reverse: ESS first, then
// DSS, so a crash between the two leaves the DSS record (authoritative)
// still showing the lock rather than silently losing it.
func (s *Service) ReleaseHybridLock(ctx context.Context, sess *models.EditingSession, conversationID, nodeID string) error {
	if sess.NodeID != nil && *sess.NodeID != "" {
		if _, err := s.UnlockNode(ctx, sess.CanvasID, conversationID, nodeID, sess.UserID); err != nil {
			logger.Collab().Warn().Err(err).Str("sessionId", sess.SessionID).Msg("ess unlock failed during hybrid release")
		}
	}
	if err := s.store.Sessions().ReleaseLock(sess.SessionID); err != nil {
		return errors.DatabaseError(err)
	}
	s.mirrorSession(ctx, sess)
	return nil
}

// LockSession loads an editing session by id and acquires its hybrid
// lock, the REST-surface entry point for POST
// /collaboration/session/:sessionId/lock.
func (s *Service) LockSession(ctx context.Context, sessionID, conversationID, nodeID string, user models.UserRef, lockDurationSeconds int) (*models.EditingSession, error) {
	sess, err := s.store.Sessions().Get(sessionID)
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	if sess == nil {
		return nil, errors.NotFound("editing session")
	}
	return s.AcquireHybridLock(ctx, sess, conversationID, nodeID, user, lockDurationSeconds)
}

// UnlockSession loads an editing session by id and releases its hybrid
// lock, the REST-surface entry point for DELETE
// /collaboration/session/:sessionId/lock.
func (s *Service) UnlockSession(ctx context.Context, sessionID, conversationID, nodeID string) error {
	sess, err := s.store.Sessions().Get(sessionID)
	if err != nil {
		return errors.DatabaseError(err)
	}
	if sess == nil {
		return errors.NotFound("editing session")
	}
	return s.ReleaseHybridLock(ctx, sess, conversationID, nodeID)
}

// GetHybridState merges the live ESS presence snapshot with every
// DSS-authoritative editing session active on the canvas (§6.5).
func (s *Service) GetHybridState(ctx context.Context, canvasID string) (*models.HybridState, error) {
	presence, err := s.GetCanvasPresence(ctx, canvasID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.Sessions().GetActiveByCanvas(canvasID)
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	active := make([]models.EditingSession, 0, len(sessions))
	for _, sess := range sessions {
		active = append(active, *sess)
	}

	return &models.HybridState{
		CanvasID:       canvasID,
		Presence:       presence,
		ActiveSessions: active,
	}, nil
}
