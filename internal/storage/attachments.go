package storage

import (
	"context"
	"fmt"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const attachmentColumns = `id, task_id, user_id, filename, file_url, file_size, mime_type, created_at`

// CreateAttachment records file metadata against a task.
func (db *DB) CreateAttachment(ctx context.Context, a model.Attachment) (model.Attachment, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO attachments (task_id, user_id, filename, file_url, file_size, mime_type)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+attachmentColumns,
		a.TaskID, a.UserID, a.Filename, a.FileURL, a.FileSize, a.MimeType,
	).Scan(attachmentFields(&a)...)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("storage: create attachment: %w", err)
	}
	return a, nil
}

// ListAttachments returns a task's attachments, newest first.
func (db *DB) ListAttachments(ctx context.Context, taskID int64) ([]model.Attachment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+attachmentColumns+` FROM attachments
		 WHERE task_id = $1
		 ORDER BY created_at DESC, id DESC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list attachments: %w", err)
	}
	defer rows.Close()

	var out []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(attachmentFields(&a)...); err != nil {
			return nil, fmt.Errorf("storage: scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAttachment removes an attachment record, scoped to its owner.
func (db *DB) DeleteAttachment(ctx context.Context, userID, id int64) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM attachments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("storage: delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func attachmentFields(a *model.Attachment) []any {
	return []any{&a.ID, &a.TaskID, &a.UserID, &a.Filename, &a.FileURL, &a.FileSize, &a.MimeType, &a.CreatedAt}
}
