package activity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathalhughes/canvas-collab/internal/dss"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
	"github.com/cathalhughes/canvas-collab/internal/models"
	"github.com/cathalhughes/canvas-collab/internal/notify"
)

type recordingBroadcaster struct {
	single       chan interface{}
	notification chan interface{}
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{single: make(chan interface{}, 8), notification: make(chan interface{}, 8)}
}

func (r *recordingBroadcaster) BroadcastActivity(_ string, activity interface{}) {
	r.single <- activity
}

func (r *recordingBroadcaster) BroadcastActivityNotification(_ string, activity interface{}) {
	r.notification <- activity
}

func setupActivityService(t *testing.T, batchWindowMS, batchMax int) (*Service, sqlmock.Sqlmock, *recordingBroadcaster) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := dss.NewForTesting(db)
	bus := eventbus.New()
	notifier, err := notify.NewPublisher(notify.Config{Enabled: false})
	require.NoError(t, err)

	svc := New(store, bus, notifier, batchWindowMS, batchMax, 30)
	rb := newRecordingBroadcaster()
	svc.SetBroadcaster(rb)
	return svc, mock, rb
}

func TestRecordNonBatchableInsertsAndBroadcastsImmediately(t *testing.T) {
	svc, mock, rb := setupActivityService(t, 2000, 10)
	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(1, 1))

	a, err := svc.Record(context.Background(), RecordInput{
		CanvasID: "c1", UserID: "u1", UserName: "Alice",
		Type: models.ActivityNodeCreated, Description: "created a node",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, a.Priority)
	assert.NoError(t, mock.ExpectationsWereMet())

	select {
	case got := <-rb.single:
		assert.Same(t, a, got)
	case <-time.After(time.Second):
		t.Fatal("expected immediate broadcast")
	}
}

func TestRecordBatchableFlushesOnMax(t *testing.T) {
	svc, mock, rb := setupActivityService(t, 60000, 2)
	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(1, 1))

	in := RecordInput{CanvasID: "c1", UserID: "u1", UserName: "Alice", Type: models.ActivityNodeEdited, Description: "edit"}
	_, err := svc.Record(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), in)
	require.NoError(t, err)

	select {
	case got := <-rb.single:
		consolidated, ok := got.(*models.Activity)
		require.True(t, ok)
		require.NotNil(t, consolidated.BatchID)
		assert.Equal(t, 2, consolidated.Metadata["batchCount"])
		assert.Equal(t, "Alice made 2 edits", consolidated.Description)
		batch, ok := consolidated.Metadata["activities"].([]*models.Activity)
		require.True(t, ok)
		assert.Len(t, batch, 2)
	case <-time.After(time.Second):
		t.Fatal("expected batch flush on reaching batchMax")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordBatchableFlushesOnTimer(t *testing.T) {
	svc, mock, rb := setupActivityService(t, 50, 100)
	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := svc.Record(context.Background(), RecordInput{
		CanvasID: "c1", UserID: "u1", UserName: "Alice", Type: models.ActivityConversationMoved,
	})
	require.NoError(t, err)

	select {
	case got := <-rb.single:
		consolidated := got.(*models.Activity)
		require.NotNil(t, consolidated.BatchID)
		assert.Equal(t, 1, consolidated.Metadata["batchCount"])
		assert.Equal(t, "Alice made 1 moves", consolidated.Description)
	case <-time.After(2 * time.Second):
		t.Fatal("expected batch flush on timer expiry")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHighPriorityTypeNotifiesEvenWhenNotBatchable(t *testing.T) {
	svc, mock, _ := setupActivityService(t, 2000, 10)
	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(1, 1))

	a, err := svc.Record(context.Background(), RecordInput{
		CanvasID: "c1", UserID: "u1", UserName: "Alice",
		Type: models.ActivityBranchCreated, Description: "branched",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, a.Priority)
	assert.True(t, models.HighPriorityNotify[a.Type])
}

func TestGetActivitySummaryDelegatesToStore(t *testing.T) {
	svc, mock, _ := setupActivityService(t, 2000, 10)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("SELECT type").WillReturnRows(sqlmock.NewRows([]string{"type", "count", "distinct_users", "latest"}))
	mock.ExpectQuery("SELECT user_id").WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_name", "count"}))

	summary, err := svc.GetActivitySummary("c1", 24)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
}
