package collab

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cathalhughes/canvas-collab/internal/errors"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// JoinCanvas writes UserPresence + set membership + heartbeat and
// publishes USER_JOINED (§4.2.1). Re-joining is idempotent: it simply
// refreshes every TTL.
func (s *Service) JoinCanvas(ctx context.Context, canvasID, userID string, user models.UserRef) (*models.UserPresence, error) {
	user.Name = s.sanitize(user.Name)
	now := time.Now()
	presence := models.UserPresence{
		CanvasID:       canvasID,
		UserID:         userID,
		User:           user,
		JoinedAt:       now,
		LastActivityAt: now,
		IsActive:       true,
	}

	if err := s.ess.HashSet(ctx, ess.PresenceKey(canvasID, userID), encodePresence(presence), s.presenceTTL); err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	if err := s.ess.SetAdd(ctx, ess.PresenceSetKey(canvasID), userID); err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	if _, err := s.ess.SetString(ctx, ess.HeartbeatKey(canvasID, userID), strconv.FormatInt(now.UnixMilli(), 10), s.heartbeatTTL, ess.SetStringOpts{}); err != nil {
		return nil, errors.ESSConnectionError(err)
	}

	s.publish(canvasID, models.EventUserJoined, presence)
	return &presence, nil
}

// LeaveCanvas reads the presence record (for the outbound event payload)
// then, in one pipeline, deletes the user's presence, heartbeat, cursor,
// focus and typing keys and drops the user from the presence and cursor
// sets (§4.2.2). Focus and typing set memberships are not removed.
// Missing records are not an error.
func (s *Service) LeaveCanvas(ctx context.Context, canvasID, userID string) error {
	fields, found, err := s.ess.HashGetAll(ctx, ess.PresenceKey(canvasID, userID))
	if err != nil {
		return errors.ESSConnectionError(err)
	}

	var presence models.UserPresence
	if found {
		presence, err = decodePresence(canvasID, fields)
		if err != nil {
			logger.Collab().Warn().Err(err).Str("canvasId", canvasID).Str("userId", userID).Msg("malformed presence record on leave")
		}
	} else {
		presence = models.UserPresence{CanvasID: canvasID, UserID: userID}
	}

	focusKeys, err := s.ess.KeysMatching(ctx, ess.FocusPatternForUser(canvasID, userID))
	if err != nil {
		return errors.ESSConnectionError(err)
	}
	typingKeys, err := s.ess.KeysMatching(ctx, ess.TypingPatternForUser(canvasID, userID))
	if err != nil {
		return errors.ESSConnectionError(err)
	}

	pipe := s.ess.Pipeline().
		Delete(ctx, ess.PresenceKey(canvasID, userID)).
		SetRemove(ctx, ess.PresenceSetKey(canvasID), userID).
		Delete(ctx, ess.HeartbeatKey(canvasID, userID)).
		Delete(ctx, ess.CursorKey(canvasID, userID)).
		SetRemove(ctx, ess.CursorSetKey(canvasID), userID)
	if len(focusKeys) > 0 {
		pipe = pipe.Delete(ctx, focusKeys...)
	}
	if len(typingKeys) > 0 {
		pipe = pipe.Delete(ctx, typingKeys...)
	}
	if err := pipe.Exec(ctx); err != nil {
		return errors.ESSConnectionError(err)
	}

	s.publish(canvasID, models.EventUserLeft, presence)
	return nil
}

// FocusConversation implements I4: clears every existing focus key for the
// user on the canvas, then writes the new one (§4.2.3).
func (s *Service) FocusConversation(ctx context.Context, canvasID, conversationID, userID string, user models.UserRef) (*models.ConversationFocus, error) {
	priorKeys, err := s.ess.KeysMatching(ctx, ess.FocusPatternForUser(canvasID, userID))
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}

	focus := models.ConversationFocus{
		CanvasID:       canvasID,
		ConversationID: conversationID,
		UserID:         userID,
		User:           user,
		FocusedAt:      time.Now(),
	}

	pipe := s.ess.Pipeline()
	if len(priorKeys) > 0 {
		pipe = pipe.Delete(ctx, priorKeys...)
	}
	pipe = pipe.HashSet(ctx, ess.FocusKey(canvasID, conversationID, userID), encodeFocus(focus), s.focusTTL).
		SetAdd(ctx, ess.FocusSetKey(canvasID, conversationID), userID)
	if err := pipe.Exec(ctx); err != nil {
		return nil, errors.ESSConnectionError(err)
	}

	s.publish(canvasID, models.EventConversationFocused, focus)
	return &focus, nil
}

// GetCanvasPresence aggregates every live presence/focus/lock/cursor/typing
// record for a canvas into one snapshot (§4.2.9). Malformed entries are
// logged and skipped rather than failing the whole read.
func (s *Service) GetCanvasPresence(ctx context.Context, canvasID string) (*models.CanvasPresence, error) {
	snapshot := &models.CanvasPresence{
		CanvasID:          canvasID,
		ConversationFocus: make(map[string][]models.ConversationFocus),
		NodeLocks:         make(map[string]models.NodeLock),
		Cursors:           make(map[string]models.CursorPosition),
		TypingIndicators:  make(map[string][]models.TypingIndicator),
		LastUpdated:       time.Now(),
	}

	userIDs, err := s.ess.SetMembers(ctx, ess.PresenceSetKey(canvasID))
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	for _, userID := range userIDs {
		fields, found, err := s.ess.HashGetAll(ctx, ess.PresenceKey(canvasID, userID))
		if err != nil || !found {
			continue
		}
		p, err := decodePresence(canvasID, fields)
		if err != nil {
			logger.Collab().Warn().Err(err).Str("userId", userID).Msg("skipping malformed presence entry")
			continue
		}
		snapshot.Users = append(snapshot.Users, p)
	}

	cursorUserIDs, err := s.ess.SetMembers(ctx, ess.CursorSetKey(canvasID))
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	for _, userID := range cursorUserIDs {
		fields, found, err := s.ess.HashGetAll(ctx, ess.CursorKey(canvasID, userID))
		if err != nil || !found {
			continue
		}
		c, err := decodeCursor(canvasID, fields)
		if err != nil {
			logger.Collab().Warn().Err(err).Str("userId", userID).Msg("skipping malformed cursor entry")
			continue
		}
		snapshot.Cursors[userID] = c
	}

	focusKeys, err := s.ess.KeysMatching(ctx, fmt.Sprintf("canvas:%s:conversation:*:focus:*", canvasID))
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	for _, key := range focusKeys {
		fields, found, err := s.ess.HashGetAll(ctx, key)
		if err != nil || !found {
			continue
		}
		f, err := decodeFocus(canvasID, fields["conversationId"], fields)
		if err != nil {
			logger.Collab().Warn().Err(err).Str("key", key).Msg("skipping malformed focus entry")
			continue
		}
		snapshot.ConversationFocus[f.ConversationID] = append(snapshot.ConversationFocus[f.ConversationID], f)
	}

	lockKeys, err := s.ess.KeysMatching(ctx, ess.LockPattern(canvasID))
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	for _, key := range lockKeys {
		var lock models.NodeLock
		found, err := s.ess.GetJSON(ctx, key, &lock)
		if err != nil || !found {
			continue
		}
		snapshot.NodeLocks[lock.NodeID] = lock
	}

	typingKeys, err := s.ess.KeysMatching(ctx, fmt.Sprintf("canvas:%s:node:*:typing:*", canvasID))
	if err != nil {
		return nil, errors.ESSConnectionError(err)
	}
	for _, key := range typingKeys {
		var t models.TypingIndicator
		found, err := s.ess.GetJSON(ctx, key, &t)
		if err != nil || !found {
			continue
		}
		snapshot.TypingIndicators[t.NodeID] = append(snapshot.TypingIndicators[t.NodeID], t)
	}

	return snapshot, nil
}

func (s *Service) publish(canvasID string, eventType models.EventType, data interface{}) {
	evt := models.CanvasEvent{CanvasID: canvasID, Type: eventType, Data: data, Timestamp: time.Now()}
	s.bus.Publish(evt)
}
