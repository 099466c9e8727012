package collab

import (
	"context"
	"strconv"
	"time"

	"github.com/cathalhughes/canvas-collab/internal/errors"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// UpdateCursorPosition throttles to at most one write per user per
// cursorThrottle window, publishing CURSOR_UPDATED asynchronously so the
// caller is never blocked on the publish (§4.2.7).
func (s *Service) UpdateCursorPosition(ctx context.Context, canvasID, userID string, user models.UserRef, x, y float64) (*models.CursorPosition, error) {
	throttleKey := ess.CursorThrottleKey(userID)
	ok, err := s.ess.SetString(ctx, throttleKey, "1", s.cursorThrottle, ess.SetStringOpts{CreateOnlyIfAbsent: true})
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	if !ok {
		// throttled: not an error-level condition per §4.3's "must not be
		// logged at error level"
		return nil, errors.Throttled()
	}

	cursor := models.CursorPosition{
		CanvasID:  canvasID,
		UserID:    userID,
		User:      user,
		X:         x,
		Y:         y,
		UpdatedAt: time.Now(),
	}

	pipe := s.ess.Pipeline().
		HashSet(ctx, ess.CursorKey(canvasID, userID), encodeCursor(cursor), s.cursorTTL).
		SetAdd(ctx, ess.CursorSetKey(canvasID), userID)
	if err := pipe.Exec(ctx); err != nil {
		return nil, errors.ESSConnectionError(err)
	}

	go s.publish(canvasID, models.EventCursorUpdated, cursor)
	return &cursor, nil
}

// UpdateTypingIndicator sets or clears a node's typing marker (§4.2.8).
// The TTL requires clients to renew; silence implies "stopped" without an
// explicit stop_typing call.
func (s *Service) UpdateTypingIndicator(ctx context.Context, canvasID, nodeID, userID string, user models.UserRef, isTyping bool) error {
	key := ess.TypingKey(canvasID, nodeID, userID)
	setKey := ess.TypingSetKey(canvasID, nodeID)

	if !isTyping {
		if err := s.ess.Delete(ctx, key); err != nil {
			return errors.ESSConnectionError(err)
		}
		if err := s.ess.SetRemove(ctx, setKey, userID); err != nil {
			return errors.ESSConnectionError(err)
		}
		s.publish(canvasID, models.EventTypingStopped, models.TypingIndicator{CanvasID: canvasID, NodeID: nodeID, UserID: userID, User: user})
		return nil
	}

	indicator := models.TypingIndicator{CanvasID: canvasID, NodeID: nodeID, UserID: userID, User: user, StartedAt: time.Now()}
	if _, err := s.ess.SetJSON(ctx, key, indicator, s.typingTTL, ess.SetStringOpts{}); err != nil {
		return errors.ESSConnectionError(err)
	}
	if err := s.ess.SetAdd(ctx, setKey, userID); err != nil {
		return errors.ESSConnectionError(err)
	}
	s.publish(canvasID, models.EventTypingStarted, indicator)
	return nil
}

func heartbeatAge(tsMillis string, now time.Time) (time.Duration, bool) {
	ms, err := strconv.ParseInt(tsMillis, 10, 64)
	if err != nil {
		logger.Collab().Warn().Str("value", tsMillis).Msg("malformed heartbeat timestamp")
		return 0, false
	}
	return now.Sub(time.UnixMilli(ms)), true
}
