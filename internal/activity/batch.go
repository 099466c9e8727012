package activity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
)

// batchVerb names the generated description's verb per activity type
// ("{userName} made N edits", "{userName} made N moves", …); anything not
// listed falls back to "edits".
var batchVerb = map[models.ActivityType]string{
	models.ActivityNodeEdited:        "edits",
	models.ActivityConversationMoved: "moves",
	models.ActivityNodeLocked:        "locks",
	models.ActivityNodeUnlocked:      "unlocks",
}

// consolidate folds a batch of same-key activities into the single Activity
// record §4.4 requires: one row with batchId set, metadata.batchCount and
// metadata.activities populated, and a generated "{userName} made N edits"
// description.
func consolidate(batch []*models.Activity) *models.Activity {
	first := batch[0]
	batchID := uuid.NewString()

	verb, ok := batchVerb[first.Type]
	if !ok {
		verb = "edits"
	}

	return &models.Activity{
		ID:             uuid.NewString(),
		CanvasID:       first.CanvasID,
		ConversationID: first.ConversationID,
		NodeID:         first.NodeID,
		UserID:         first.UserID,
		UserName:       first.UserName,
		Type:           first.Type,
		Description:    fmt.Sprintf("%s made %d %s", first.UserName, len(batch), verb),
		Priority:       models.PriorityOf(first.Type),
		Metadata: map[string]interface{}{
			"batchCount": len(batch),
			"activities": batch,
		},
		Timestamp: time.Now().UTC(),
		BatchID:   &batchID,
	}
}

// pendingBatch accumulates same-key activities until the flush window
// elapses or batchMax is reached, per §4.4's coalescing rule for
// high-frequency types (node edits, conversation moves, lock churn).
type pendingBatch struct {
	activities []*models.Activity
	timer      *time.Timer
}

func batchKey(a *models.Activity) string {
	return fmt.Sprintf("%s|%s|%s", a.CanvasID, a.UserID, a.Type)
}

func (s *Service) enqueue(a *models.Activity) {
	key := batchKey(a)

	s.mu.Lock()
	b, ok := s.batches[key]
	if !ok {
		b = &pendingBatch{}
		s.batches[key] = b
	}
	b.activities = append(b.activities, a)
	full := len(b.activities) >= s.batchMax
	if b.timer == nil {
		b.timer = time.AfterFunc(s.batchWindow, func() { s.flush(key) })
	}
	s.mu.Unlock()

	if full {
		s.flush(key)
	}
}

// flush drains one batch key's accumulated activities, folds them into a
// single consolidated Activity and persists/broadcasts only that. Safe to
// call concurrently from both the timer callback and a batchMax-triggered
// enqueue; the second caller through the door finds an empty batch and
// no-ops.
func (s *Service) flush(key string) {
	s.mu.Lock()
	b, ok := s.batches[key]
	if !ok || len(b.activities) == 0 {
		s.mu.Unlock()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	batch := b.activities
	delete(s.batches, key)
	s.mu.Unlock()

	consolidated := consolidate(batch)
	if err := s.store.Activities().Insert(consolidated); err != nil {
		logger.Activity().Error().Err(err).Str("key", key).Int("count", len(batch)).Msg("failed to persist consolidated activity batch")
		return
	}
	s.broadcastOne(consolidated)
}

// FlushAll forces every pending batch out immediately, used on graceful
// shutdown so no accumulated activity is lost to process exit.
func (s *Service) FlushAll() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.batches))
	for k := range s.batches {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, k := range keys {
		s.flush(k)
	}
}
