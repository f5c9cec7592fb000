package model

import "time"

// NotificationType tags what produced a notification row.
type NotificationType string

const (
	NotificationTaskCreated   NotificationType = "task_created"
	NotificationTaskCompleted NotificationType = "task_completed"
	NotificationTaskDeleted   NotificationType = "task_deleted"
	NotificationTaskUpdated   NotificationType = "task_updated"
	NotificationReminder      NotificationType = "reminder"
	NotificationOverdue       NotificationType = "overdue"
)

// Notification is a user-visible in-app notification. Rows referencing a
// deleted task keep the task id for display; there is no foreign key back to
// tasks so a task_deleted notification can outlive its task.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	TaskID    int64            `json:"task_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
