package dss

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

func TestSessionCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewForTesting(db).Sessions()
	sess := &models.EditingSession{
		SessionID:     "sess1",
		UserID:        "u1",
		User:          models.UserRef{Name: "Alice"},
		CanvasID:      "c1",
		EditingType:   models.EditingTypeNode,
		EditingTarget: "c1:v1:n1",
		StartedAt:     time.Now(),
		LastActivityAt: time.Now(),
		IsActive:      true,
		Version:       1,
	}

	mock.ExpectExec("INSERT INTO editing_sessions").
		WithArgs(sess.SessionID, sess.UserID, sess.User.Name, nil, sess.CanvasID,
			sess.ConversationID, sess.NodeID, sess.EditingType, sess.EditingTarget,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sess.IsActive, sess.HasLock, sess.LockExpiry, sess.Version).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGetActiveByTargetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewForTesting(db).Sessions()
	mock.ExpectQuery("SELECT (.+) FROM editing_sessions WHERE editing_target").
		WithArgs("c1:v1:n1").
		WillReturnError(sql.ErrNoRows)

	sess, err := repo.GetActiveByTarget("c1:v1:n1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionGetActiveByCanvas(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewForTesting(db).Sessions()
	rows := sqlmock.NewRows([]string{"session_id", "user_id", "user_name", "user_email", "canvas_id",
		"conversation_id", "node_id", "editing_type", "editing_target", "started_at", "last_activity_at",
		"is_active", "has_lock", "lock_expiry", "version"}).
		AddRow("sess1", "u1", "Alice", nil, "c1", nil, nil, "canvas", "c1",
			time.Now(), time.Now(), true, false, nil, int64(1))

	mock.ExpectQuery("SELECT (.+) FROM editing_sessions WHERE canvas_id").
		WithArgs("c1").
		WillReturnRows(rows)

	sessions, err := repo.GetActiveByCanvas("c1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess1", sessions[0].SessionID)
}

func TestSessionAcquireLockVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewForTesting(db).Sessions()
	mock.ExpectExec("UPDATE editing_sessions SET has_lock").
		WithArgs(sqlmock.AnyArg(), "sess1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.AcquireLock("sess1", 1, time.Now().Add(30*time.Second))
	assert.Error(t, err)
}

func TestSessionReleaseExpiredLocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewForTesting(db).Sessions()
	mock.ExpectExec("UPDATE editing_sessions SET has_lock = false").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ReleaseExpiredLocks(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
