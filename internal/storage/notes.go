package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const noteColumns = `id, task_id, user_id, content, created_at, updated_at`

// CreateNote attaches a note to a task and returns it.
func (db *DB) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO notes (task_id, user_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING `+noteColumns,
		n.TaskID, n.UserID, n.Content,
	).Scan(noteFields(&n)...)
	if err != nil {
		return model.Note{}, fmt.Errorf("storage: create note: %w", err)
	}
	return n, nil
}

// ListNotes returns a task's notes, newest first.
func (db *DB) ListNotes(ctx context.Context, taskID int64) ([]model.Note, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE task_id = $1
		 ORDER BY created_at DESC, id DESC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list notes: %w", err)
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(noteFields(&n)...); err != nil {
			return nil, fmt.Errorf("storage: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateNote replaces a note's content, scoped to its owner.
func (db *DB) UpdateNote(ctx context.Context, userID, id int64, content string) (model.Note, error) {
	var n model.Note
	err := db.pool.QueryRow(ctx,
		`UPDATE notes SET content = $1, updated_at = now()
		 WHERE id = $2 AND user_id = $3
		 RETURNING `+noteColumns,
		content, id, userID,
	).Scan(noteFields(&n)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Note{}, ErrNotFound
		}
		return model.Note{}, fmt.Errorf("storage: update note: %w", err)
	}
	return n, nil
}

// DeleteNote removes a note, scoped to its owner.
func (db *DB) DeleteNote(ctx context.Context, userID, id int64) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("storage: delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func noteFields(n *model.Note) []any {
	return []any{&n.ID, &n.TaskID, &n.UserID, &n.Content, &n.CreatedAt, &n.UpdatedAt}
}
