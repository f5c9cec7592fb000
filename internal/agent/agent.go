// Package agent implements the conversational task agent: a tool registry,
// a title-based task resolver, a tool executor, and the model-driven loop
// that orchestrates them for one exchange.
package agent

import (
	"context"

	"github.com/tasuki-ai/tasuki/internal/model"
)

// Session carries the authenticated identity for one exchange. Tool handlers
// only ever act as this user; the model cannot widen it.
type Session struct {
	UserID int64
}

// TaskStore is the slice of the storage layer the agent's tools need.
type TaskStore interface {
	CreateTask(ctx context.Context, req model.TaskCreate) (model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	ListTasks(ctx context.Context, userID int64, f model.TaskFilter) ([]model.Task, int, error)
	PatchTask(ctx context.Context, id int64, p model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) (bool, error)
}

// SideEffectStore records the notification and activity side effects of a
// successful mutating tool call and announces new notifications for live
// delivery. It is the same surface the HTTP handlers write through, so a
// mutation looks identical downstream whichever path performed it.
type SideEffectStore interface {
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	Notify(ctx context.Context, channel, payload string) error
	InsertActivity(ctx context.Context, entries []model.ActivityEntry) error
}
