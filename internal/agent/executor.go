package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// Executor validates tool arguments and runs the bound handlers. Every
// outcome, including handler panics, is converted into a result envelope;
// a single failed tool must never abort the exchange.
type Executor struct {
	registry *Registry
	resolver *Resolver
	tasks    TaskStore
	effects  SideEffectStore
	logger   *slog.Logger
}

// NewExecutor wires an executor over the given stores.
func NewExecutor(registry *Registry, tasks TaskStore, effects SideEffectStore, logger *slog.Logger) *Executor {
	return &Executor{
		registry: registry,
		resolver: NewResolver(tasks),
		tasks:    tasks,
		effects:  effects,
		logger:   logger,
	}
}

// Execute runs one tool invocation and returns its envelope. The session's
// user id is the only identity the handler acts as; any user_id field in the
// raw arguments is ignored.
func (ex *Executor) Execute(ctx context.Context, s Session, name string, raw json.RawMessage) (result model.ToolResult) {
	spec, ok := ex.registry.specs[name]
	if !ok {
		return failure(fmt.Sprintf("Unknown tool: %s", name), "unknown_tool")
	}

	defer func() {
		if r := recover(); r != nil {
			ex.logger.Error("tool handler panicked", "tool", name, "panic", r)
			result = failure(fmt.Sprintf("Failed to execute %s: internal error", name), "tool_execution_failed")
		}
	}()

	return spec.handler(ctx, ex, s, raw)
}

// notify records the notification side effect of a successful mutation and
// announces it on the notification channel, so subscribers see agent-driven
// mutations exactly like handler-driven ones. Both writes are
// non-authoritative; a failure is logged and the tool result stays successful.
func (ex *Executor) notify(ctx context.Context, userID, taskID int64, typ model.NotificationType, title, message string) {
	created, err := ex.effects.CreateNotification(ctx, model.Notification{
		UserID:  userID,
		TaskID:  taskID,
		Type:    typ,
		Title:   title,
		Message: message,
	})
	if err != nil {
		ex.logger.Warn("failed to record notification", "type", typ, "task_id", taskID, "error", err)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"id":      created.ID,
		"user_id": created.UserID,
		"task_id": created.TaskID,
		"type":    created.Type,
	})
	if err != nil {
		return
	}
	if err := ex.effects.Notify(ctx, storage.ChannelNotifications, string(payload)); err != nil {
		ex.logger.Warn("failed to announce notification", "notification_id", created.ID, "error", err)
	}
}

// recordActivity appends activity log entries for a mutation. Best-effort;
// a failure is logged and the tool result stays successful.
func (ex *Executor) recordActivity(ctx context.Context, entries ...model.ActivityEntry) {
	if len(entries) == 0 {
		return
	}
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].OccurredAt.IsZero() {
			entries[i].OccurredAt = now
		}
	}
	if err := ex.effects.InsertActivity(ctx, entries); err != nil {
		ex.logger.Warn("failed to record activity",
			"task_id", entries[0].TaskID, "action", entries[0].Action, "error", err)
	}
}

func failure(message, errText string) model.ToolResult {
	return model.ToolResult{
		Success: false,
		Message: message,
		Extra:   map[string]any{"error": errText},
	}
}

func success(message string, extra map[string]any) model.ToolResult {
	return model.ToolResult{Success: true, Message: message, Extra: extra}
}
