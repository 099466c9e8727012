package dss

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cathalhughes/canvas-collab/internal/models"
)

// ActivityRepo persists Activity rows, the durable half of the Activity
// Service's write path (§4.4): every activity lands here regardless of
// priority. Batchable activities are stored as one consolidated row per
// flushed batch (batch_id set, the individual activities kept in its
// metadata), not as one row each.
type ActivityRepo struct {
	store *Store
}

func (s *Store) Activities() *ActivityRepo {
	return &ActivityRepo{store: s}
}

// Insert persists one activity record.
func (r *ActivityRepo) Insert(a *models.Activity) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}
	_, err = r.store.db.Exec(
		`INSERT INTO activities (id, canvas_id, conversation_id, node_id, user_id, user_name,
			type, description, priority, metadata, batch_id, timestamp)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.CanvasID, a.ConversationID, a.NodeID, a.UserID, a.UserName,
		a.Type, a.Description, a.Priority, metadata, a.BatchID, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Query returns activities matching filter, newest first.
func (r *ActivityRepo) Query(filter models.ActivityFilter) ([]*models.Activity, error) {
	clauses := []string{"canvas_id = $1"}
	args := []interface{}{filter.CanvasID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ConversationID != "" {
		clauses = append(clauses, "conversation_id = "+arg(filter.ConversationID))
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = "+arg(filter.UserID))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = arg(t)
		}
		clauses = append(clauses, "type IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "timestamp >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "timestamp <= "+arg(*filter.EndDate))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := fmt.Sprintf(
		`SELECT id, canvas_id, conversation_id, node_id, user_id, user_name, type,
			description, priority, metadata, batch_id, timestamp
		 FROM activities WHERE %s ORDER BY timestamp DESC LIMIT %s OFFSET %s`,
		strings.Join(clauses, " AND "), arg(limit), arg(filter.Offset),
	)

	rows, err := r.store.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []*models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanActivity(rows *sql.Rows) (*models.Activity, error) {
	var a models.Activity
	var metadata []byte
	if err := rows.Scan(
		&a.ID, &a.CanvasID, &a.ConversationID, &a.NodeID, &a.UserID, &a.UserName,
		&a.Type, &a.Description, &a.Priority, &metadata, &a.BatchID, &a.Timestamp,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal activity metadata: %w", err)
		}
	}
	return &a, nil
}

// Summary builds the getActivitySummary(canvasId, hours) aggregation (§4.4):
// total count, per-type breakdown, and top 10 most active users.
func (r *ActivityRepo) Summary(canvasID string, hours int) (*models.ActivitySummary, error) {
	since := timeNowMinusHours(hours)

	var total int
	if err := r.store.db.QueryRow(
		`SELECT COUNT(*) FROM activities WHERE canvas_id = $1 AND timestamp >= $2`,
		canvasID, since,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}

	byTypeRows, err := r.store.db.Query(
		`SELECT type, COUNT(*), COUNT(DISTINCT user_id), MAX(timestamp)
		 FROM activities WHERE canvas_id = $1 AND timestamp >= $2
		 GROUP BY type ORDER BY COUNT(*) DESC`,
		canvasID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate activities by type: %w", err)
	}
	defer byTypeRows.Close()

	var byType []models.ActivityTypeBreakdown
	for byTypeRows.Next() {
		var b models.ActivityTypeBreakdown
		if err := byTypeRows.Scan(&b.Type, &b.Count, &b.DistinctUsers, &b.LatestActivity); err != nil {
			return nil, fmt.Errorf("scan activity breakdown: %w", err)
		}
		byType = append(byType, b)
	}

	topUserRows, err := r.store.db.Query(
		`SELECT user_id, user_name, COUNT(*) as cnt
		 FROM activities WHERE canvas_id = $1 AND timestamp >= $2
		 GROUP BY user_id, user_name ORDER BY cnt DESC LIMIT 10`,
		canvasID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate top users: %w", err)
	}
	defer topUserRows.Close()

	var topUsers []models.UserActivityCount
	for topUserRows.Next() {
		var u models.UserActivityCount
		if err := topUserRows.Scan(&u.UserID, &u.UserName, &u.Count); err != nil {
			return nil, fmt.Errorf("scan top user: %w", err)
		}
		topUsers = append(topUsers, u)
	}

	return &models.ActivitySummary{
		CanvasID:    canvasID,
		WindowHours: hours,
		Total:       total,
		ByType:      byType,
		TopUsers:    topUsers,
	}, nil
}

// CleanupOld deletes activities older than retentionDays, the target of the
// daily retention job (§9).
func (r *ActivityRepo) CleanupOld(retentionDays int) (int64, error) {
	cutoff := timeNowMinusHours(retentionDays * 24)
	res, err := r.store.db.Exec(`DELETE FROM activities WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old activities: %w", err)
	}
	return res.RowsAffected()
}

func timeNowMinusHours(hours int) time.Time {
	return time.Now().Add(-time.Duration(hours) * time.Hour)
}
