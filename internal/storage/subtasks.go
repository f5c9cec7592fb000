package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const subtaskColumns = `id, task_id, user_id, title, completed, display_order, created_at, updated_at`

// CreateSubtask inserts a subtask under a task and returns it.
func (db *DB) CreateSubtask(ctx context.Context, s model.Subtask) (model.Subtask, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO subtasks (task_id, user_id, title, display_order)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+subtaskColumns,
		s.TaskID, s.UserID, s.Title, s.DisplayOrder,
	).Scan(subtaskFields(&s)...)
	if err != nil {
		return model.Subtask{}, fmt.Errorf("storage: create subtask: %w", err)
	}
	return s, nil
}

// ListSubtasks returns a task's subtasks in display order.
func (db *DB) ListSubtasks(ctx context.Context, taskID int64) ([]model.Subtask, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks
		 WHERE task_id = $1
		 ORDER BY display_order ASC, id ASC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list subtasks: %w", err)
	}
	defer rows.Close()

	var out []model.Subtask
	for rows.Next() {
		var s model.Subtask
		if err := rows.Scan(subtaskFields(&s)...); err != nil {
			return nil, fmt.Errorf("storage: scan subtask: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSubtask sets a subtask's title and/or completion flag, scoped to its
// owner. Nil fields are left unchanged.
func (db *DB) UpdateSubtask(ctx context.Context, userID, id int64, title *string, completed *bool) (model.Subtask, error) {
	var s model.Subtask
	err := db.pool.QueryRow(ctx,
		`UPDATE subtasks
		 SET title = COALESCE($1, title),
		     completed = COALESCE($2, completed),
		     updated_at = now()
		 WHERE id = $3 AND user_id = $4
		 RETURNING `+subtaskColumns,
		title, completed, id, userID,
	).Scan(subtaskFields(&s)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Subtask{}, ErrNotFound
		}
		return model.Subtask{}, fmt.Errorf("storage: update subtask: %w", err)
	}
	return s, nil
}

// DeleteSubtask removes a subtask, scoped to its owner.
func (db *DB) DeleteSubtask(ctx context.Context, userID, id int64) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM subtasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("storage: delete subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func subtaskFields(s *model.Subtask) []any {
	return []any{
		&s.ID, &s.TaskID, &s.UserID, &s.Title, &s.Completed,
		&s.DisplayOrder, &s.CreatedAt, &s.UpdatedAt,
	}
}
