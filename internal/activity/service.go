// Package activity implements the Activity Service (SPEC_FULL §4.4): a
// durable feed of domain events (conversation/node mutations, presence
// joins/leaves, lock changes) with a coalescing batch window for
// high-frequency types and a high-priority toast-notification fan-out.
//
// Supersedes the teacher's internal/activity/tracker.go, which tracked
// Kubernetes Session idle/hibernation state — an unrelated domain with no
// owner in this spec. Its timer-driven background sweep survives only as
// the per-batch flush timer in batch.go.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cathalhughes/canvas-collab/internal/dss"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
	"github.com/cathalhughes/canvas-collab/internal/logger"
	"github.com/cathalhughes/canvas-collab/internal/models"
	"github.com/cathalhughes/canvas-collab/internal/notify"
)

// Broadcaster is the subset of the gateway Hub's API the Activity Service
// needs. Defined here (rather than imported from internal/gateway) so
// neither package imports the other; internal/gateway's *Hub satisfies
// this interface structurally.
type Broadcaster interface {
	BroadcastActivity(canvasID string, activity interface{})
	BroadcastActivityNotification(canvasID string, activity interface{})
}

// Service batches, persists and broadcasts activity records.
type Service struct {
	store       *dss.Store
	bus         *eventbus.Bus
	notifier    *notify.Publisher
	broadcaster Broadcaster

	batchWindow time.Duration
	batchMax    int
	retention   time.Duration

	mu      sync.Mutex
	batches map[string]*pendingBatch
}

// New wires an Activity Service. broadcaster may be set later via
// SetBroadcaster once the gateway Hub exists, breaking the natural
// construction-order cycle (gateway needs collab, activity doesn't need
// gateway to exist yet at construction time).
func New(store *dss.Store, bus *eventbus.Bus, notifier *notify.Publisher, batchWindowMS, batchMax, retentionDays int) *Service {
	return &Service{
		store:       store,
		bus:         bus,
		notifier:    notifier,
		batchWindow: time.Duration(batchWindowMS) * time.Millisecond,
		batchMax:    batchMax,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
		batches:     make(map[string]*pendingBatch),
	}
}

// SetBroadcaster wires the gateway Hub once it has been constructed.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

// RecordInput is the caller-supplied shape of a new activity, before the
// service assigns an id, priority and timestamp.
type RecordInput struct {
	CanvasID       string
	ConversationID *string
	NodeID         *string
	UserID         string
	UserName       string
	Type           models.ActivityType
	Description    string
	Metadata       map[string]interface{}
}

// Record persists (or enqueues for batched persistence) one activity and
// fans it out per §4.4's three concurrent paths: immediate broadcast for
// non-batchable types, a coalescing window for batchable types, and a
// NATS toast notification for the high-priority set regardless of
// batching.
func (s *Service) Record(ctx context.Context, in RecordInput) (*models.Activity, error) {
	a := &models.Activity{
		ID:             uuid.NewString(),
		CanvasID:       in.CanvasID,
		ConversationID: in.ConversationID,
		NodeID:         in.NodeID,
		UserID:         in.UserID,
		UserName:       in.UserName,
		Type:           in.Type,
		Description:    in.Description,
		Priority:       models.PriorityOf(in.Type),
		Metadata:       in.Metadata,
		Timestamp:      time.Now().UTC(),
	}

	if models.HighPriorityNotify[a.Type] {
		s.notifier.PublishActivity(a)
		s.broadcastNotification(a)
	}

	if models.Batchable[a.Type] {
		s.enqueue(a)
		return a, nil
	}

	if err := s.store.Activities().Insert(a); err != nil {
		return nil, err
	}
	s.broadcastOne(a)
	return a, nil
}

func (s *Service) broadcastOne(a *models.Activity) {
	s.mu.Lock()
	b := s.broadcaster
	s.mu.Unlock()
	if b != nil {
		b.BroadcastActivity(a.CanvasID, a)
	}
}

func (s *Service) broadcastNotification(a *models.Activity) {
	s.mu.Lock()
	b := s.broadcaster
	s.mu.Unlock()
	if b != nil {
		b.BroadcastActivityNotification(a.CanvasID, a)
	}
}

// GetActivities delegates to the durable store's filtered query.
func (s *Service) GetActivities(filter models.ActivityFilter) ([]*models.Activity, error) {
	return s.store.Activities().Query(filter)
}

// GetActivitySummary delegates to the durable store's aggregation query.
func (s *Service) GetActivitySummary(canvasID string, hours int) (*models.ActivitySummary, error) {
	return s.store.Activities().Summary(canvasID, hours)
}

// CleanupOldActivities deletes rows past the configured retention window.
func (s *Service) CleanupOldActivities() (int64, error) {
	n, err := s.store.Activities().CleanupOld(int(s.retention / (24 * time.Hour)))
	if err != nil {
		logger.Activity().Error().Err(err).Msg("activity retention cleanup failed")
		return 0, err
	}
	if n > 0 {
		logger.Activity().Info().Int64("deleted", n).Msg("pruned old activities")
	}
	return n, nil
}
