package collab

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

// The ESS key scheme (SPEC_FULL §6.1) calls UserPresence, ConversationFocus
// and CursorPosition "hash"-typed and NodeLock/TypingIndicator
// "string(JSON)"-typed. Hashes are encoded field-by-field below so the
// wire layout matches a real Redis hash rather than a single blob field.

func encodePresence(p models.UserPresence) map[string]string {
	return map[string]string{
		"userId":         p.UserID,
		"userName":       p.User.Name,
		"userEmail":      p.User.Email,
		"joinedAt":       p.JoinedAt.Format(time.RFC3339Nano),
		"lastActivityAt": p.LastActivityAt.Format(time.RFC3339Nano),
		"isActive":       strconv.FormatBool(p.IsActive),
	}
}

func decodePresence(canvasID string, fields map[string]string) (models.UserPresence, error) {
	joinedAt, err := time.Parse(time.RFC3339Nano, fields["joinedAt"])
	if err != nil {
		return models.UserPresence{}, fmt.Errorf("decode presence joinedAt: %w", err)
	}
	lastActivity, err := time.Parse(time.RFC3339Nano, fields["lastActivityAt"])
	if err != nil {
		return models.UserPresence{}, fmt.Errorf("decode presence lastActivityAt: %w", err)
	}
	return models.UserPresence{
		CanvasID:       canvasID,
		UserID:         fields["userId"],
		User:           models.UserRef{ID: fields["userId"], Name: fields["userName"], Email: fields["userEmail"]},
		JoinedAt:       joinedAt,
		LastActivityAt: lastActivity,
		IsActive:       fields["isActive"] == "true",
	}, nil
}

func encodeFocus(f models.ConversationFocus) map[string]string {
	return map[string]string{
		"userId":         f.UserID,
		"userName":       f.User.Name,
		"conversationId": f.ConversationID,
		"focusedAt":      f.FocusedAt.Format(time.RFC3339Nano),
	}
}

func decodeFocus(canvasID, conversationID string, fields map[string]string) (models.ConversationFocus, error) {
	focusedAt, err := time.Parse(time.RFC3339Nano, fields["focusedAt"])
	if err != nil {
		return models.ConversationFocus{}, fmt.Errorf("decode focus focusedAt: %w", err)
	}
	return models.ConversationFocus{
		CanvasID:       canvasID,
		ConversationID: conversationID,
		UserID:         fields["userId"],
		User:           models.UserRef{ID: fields["userId"], Name: fields["userName"]},
		FocusedAt:      focusedAt,
	}, nil
}

func encodeCursor(c models.CursorPosition) map[string]string {
	return map[string]string{
		"userId":    c.UserID,
		"userName":  c.User.Name,
		"x":         strconv.FormatFloat(c.X, 'f', -1, 64),
		"y":         strconv.FormatFloat(c.Y, 'f', -1, 64),
		"updatedAt": c.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func decodeCursor(canvasID string, fields map[string]string) (models.CursorPosition, error) {
	x, err := strconv.ParseFloat(fields["x"], 64)
	if err != nil {
		return models.CursorPosition{}, fmt.Errorf("decode cursor x: %w", err)
	}
	y, err := strconv.ParseFloat(fields["y"], 64)
	if err != nil {
		return models.CursorPosition{}, fmt.Errorf("decode cursor y: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updatedAt"])
	if err != nil {
		return models.CursorPosition{}, fmt.Errorf("decode cursor updatedAt: %w", err)
	}
	return models.CursorPosition{
		CanvasID:  canvasID,
		UserID:    fields["userId"],
		User:      models.UserRef{ID: fields["userId"], Name: fields["userName"]},
		X:         x,
		Y:         y,
		UpdatedAt: updatedAt,
	}, nil
}
