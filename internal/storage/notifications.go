package storage

import (
	"context"
	"fmt"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const notificationColumns = `id, user_id, task_id, type, title, message, is_read, created_at`

// CreateNotification inserts a notification row and returns it.
func (db *DB) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, task_id, type, title, message)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+notificationColumns,
		n.UserID, n.TaskID, string(n.Type), n.Title, n.Message,
	).Scan(notificationFields(&n)...)
	if err != nil {
		return model.Notification{}, fmt.Errorf("storage: create notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
// unreadOnly narrows to unread rows.
func (db *DB) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]model.Notification, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := `WHERE user_id = $1`
	if unreadOnly {
		where += ` AND is_read = false`
	}

	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications `+where, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count notifications: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications `+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(notificationFields(&n)...); err != nil {
			return nil, 0, fmt.Errorf("storage: scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// UnreadNotificationCount returns the number of unread notifications.
func (db *DB) UnreadNotificationCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND is_read = false`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: unread notification count: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
// Returns ErrNotFound if the row does not exist or belongs to someone else.
func (db *DB) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks all of a user's notifications read and
// returns how many rows changed.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteNotification removes one of the user's notifications.
func (db *DB) DeleteNotification(ctx context.Context, userID, notificationID int64) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReadNotifications removes all read notifications for a user and
// returns how many rows were deleted.
func (db *DB) DeleteReadNotifications(ctx context.Context, userID int64) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND is_read = true`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: delete read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func notificationFields(n *model.Notification) []any {
	return []any{
		&n.ID, &n.UserID, &n.TaskID, &n.Type, &n.Title, &n.Message,
		&n.IsRead, &n.CreatedAt,
	}
}
