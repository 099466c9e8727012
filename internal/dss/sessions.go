package dss

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

// SessionRepo persists EditingSession rows, the DSS-side half of the
// hybrid write-through pair described in §4.2.10.
type SessionRepo struct {
	store *Store
}

func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{store: s}
}

const sessionColumns = `session_id, user_id, user_name, user_email, canvas_id, conversation_id,
	node_id, editing_type, editing_target, started_at, last_activity_at,
	is_active, has_lock, lock_expiry, version`

func scanSession(row *sql.Row) (*models.EditingSession, error) {
	var sess models.EditingSession
	var userEmail sql.NullString
	if err := row.Scan(
		&sess.SessionID, &sess.UserID, &sess.User.Name, &userEmail, &sess.CanvasID,
		&sess.ConversationID, &sess.NodeID, &sess.EditingType, &sess.EditingTarget,
		&sess.StartedAt, &sess.LastActivityAt, &sess.IsActive, &sess.HasLock,
		&sess.LockExpiry, &sess.Version,
	); err != nil {
		return nil, err
	}
	sess.User.ID = sess.UserID
	if userEmail.Valid {
		sess.User.Email = userEmail.String
	}
	return &sess, nil
}

// Create inserts a new editing session row.
func (r *SessionRepo) Create(sess *models.EditingSession) error {
	_, err := r.store.db.Exec(
		`INSERT INTO editing_sessions (`+sessionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		sess.SessionID, sess.UserID, sess.User.Name, nullableString(sess.User.Email), sess.CanvasID,
		sess.ConversationID, sess.NodeID, sess.EditingType, sess.EditingTarget,
		sess.StartedAt, sess.LastActivityAt, sess.IsActive, sess.HasLock, sess.LockExpiry, sess.Version,
	)
	if err != nil {
		return fmt.Errorf("create editing session: %w", err)
	}
	return nil
}

// Get fetches an editing session by id, excluding soft-deleted rows.
func (r *SessionRepo) Get(sessionID string) (*models.EditingSession, error) {
	row := r.store.db.QueryRow(
		`SELECT `+sessionColumns+` FROM editing_sessions WHERE session_id = $1 AND deleted_at IS NULL`,
		sessionID,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get editing session: %w", err)
	}
	return sess, nil
}

// GetActiveByTarget fetches the active session holding editingTarget, if any.
func (r *SessionRepo) GetActiveByTarget(editingTarget string) (*models.EditingSession, error) {
	row := r.store.db.QueryRow(
		`SELECT `+sessionColumns+` FROM editing_sessions
		 WHERE editing_target = $1 AND is_active = true AND deleted_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`,
		editingTarget,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session by target: %w", err)
	}
	return sess, nil
}

// GetActiveByCanvas lists every active editing session scoped to a
// canvas, used by getHybridState to merge DSS-authoritative session state
// alongside the ESS presence snapshot.
func (r *SessionRepo) GetActiveByCanvas(canvasID string) ([]*models.EditingSession, error) {
	rows, err := r.store.db.Query(
		`SELECT `+sessionColumns+` FROM editing_sessions
		 WHERE canvas_id = $1 AND is_active = true AND deleted_at IS NULL
		 ORDER BY started_at DESC`,
		canvasID,
	)
	if err != nil {
		return nil, fmt.Errorf("get active sessions by canvas: %w", err)
	}
	defer rows.Close()

	var out []*models.EditingSession
	for rows.Next() {
		var sess models.EditingSession
		var userEmail sql.NullString
		if err := rows.Scan(
			&sess.SessionID, &sess.UserID, &sess.User.Name, &userEmail, &sess.CanvasID,
			&sess.ConversationID, &sess.NodeID, &sess.EditingType, &sess.EditingTarget,
			&sess.StartedAt, &sess.LastActivityAt, &sess.IsActive, &sess.HasLock,
			&sess.LockExpiry, &sess.Version,
		); err != nil {
			return nil, fmt.Errorf("scan active session: %w", err)
		}
		sess.User.ID = sess.UserID
		if userEmail.Valid {
			sess.User.Email = userEmail.String
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// TouchActivity bumps last_activity_at and increments version optimistically.
func (r *SessionRepo) TouchActivity(sessionID string, expectedVersion int64, now time.Time) error {
	res, err := r.store.db.Exec(
		`UPDATE editing_sessions SET last_activity_at = $1, version = version + 1
		 WHERE session_id = $2 AND version = $3 AND deleted_at IS NULL`,
		now, sessionID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("touch session activity: %w", err)
	}
	return checkRowsAffected(res, "touch session activity")
}

// AcquireLock marks a session as lock-holding with the given expiry,
// compensating the caller (via the returned error) if the optimistic
// version check fails so the CS can retry or surface a conflict.
func (r *SessionRepo) AcquireLock(sessionID string, expectedVersion int64, expiry time.Time) error {
	res, err := r.store.db.Exec(
		`UPDATE editing_sessions SET has_lock = true, lock_expiry = $1, version = version + 1
		 WHERE session_id = $2 AND version = $3 AND deleted_at IS NULL`,
		expiry, sessionID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	return checkRowsAffected(res, "acquire session lock")
}

// ReleaseLock clears the lock fields on a session, used both for normal
// unlock and for compensating an ESS failure after a DSS-side acquire.
func (r *SessionRepo) ReleaseLock(sessionID string) error {
	_, err := r.store.db.Exec(
		`UPDATE editing_sessions SET has_lock = false, lock_expiry = NULL, version = version + 1
		 WHERE session_id = $1 AND deleted_at IS NULL`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("release session lock: %w", err)
	}
	return nil
}

// Deactivate marks a session inactive (endHybridSession), soft-delete-free
// since inactive sessions remain for audit/history purposes.
func (r *SessionRepo) Deactivate(sessionID string) error {
	_, err := r.store.db.Exec(
		`UPDATE editing_sessions SET is_active = false, has_lock = false, lock_expiry = NULL, version = version + 1
		 WHERE session_id = $1 AND deleted_at IS NULL`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// DeactivateStale marks every session whose last_activity_at is older than
// cutoff as inactive, releasing any lock it held. Used by the 5-minute
// cleanup job (§9 scheduled jobs).
func (r *SessionRepo) DeactivateStale(cutoff time.Time) (int64, error) {
	res, err := r.store.db.Exec(
		`UPDATE editing_sessions SET is_active = false, has_lock = false, lock_expiry = NULL, version = version + 1
		 WHERE is_active = true AND last_activity_at < $1 AND deleted_at IS NULL`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale sessions: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseExpiredLocks clears lock fields on every session whose lock_expiry
// has passed. Used by the 1-minute lock-release job.
func (r *SessionRepo) ReleaseExpiredLocks(now time.Time) (int64, error) {
	res, err := r.store.db.Exec(
		`UPDATE editing_sessions SET has_lock = false, lock_expiry = NULL, version = version + 1
		 WHERE has_lock = true AND lock_expiry IS NOT NULL AND lock_expiry < $1 AND deleted_at IS NULL`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("release expired locks: %w", err)
	}
	return res.RowsAffected()
}

// SoftDelete marks a session deleted without removing the row, preserving
// it for activity/audit queries that join against session history.
func (r *SessionRepo) SoftDelete(sessionID string, now time.Time) error {
	_, err := r.store.db.Exec(
		`UPDATE editing_sessions SET deleted_at = $1 WHERE session_id = $2`,
		now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("soft delete session: %w", err)
	}
	return nil
}

func checkRowsAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: no matching row (version conflict or not found)", op)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
