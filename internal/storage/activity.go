package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tasuki-ai/tasuki/internal/model"
)

// InsertActivity bulk-inserts activity entries using COPY. Entries are
// written in a single round trip; callers batch them in memory first.
func (db *DB) InsertActivity(ctx context.Context, entries []model.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.TaskID, e.UserID, string(e.Action), e.Field, e.OldValue, e.NewValue, e.OccurredAt,
		})
	}

	_, err := db.pool.CopyFrom(ctx,
		pgx.Identifier{"activity_log"},
		[]string{"task_id", "user_id", "action", "field", "old_value", "new_value", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("storage: insert activity: %w", err)
	}
	return nil
}

// ListActivityByTask returns a task's activity trail, newest first.
func (db *DB) ListActivityByTask(ctx context.Context, taskID int64, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, task_id, user_id, action, field, old_value, new_value, occurred_at
		 FROM activity_log
		 WHERE task_id = $1
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $2`, taskID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list activity: %w", err)
	}
	defer rows.Close()

	var out []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &e.Action, &e.Field, &e.OldValue, &e.NewValue, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("storage: scan activity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
