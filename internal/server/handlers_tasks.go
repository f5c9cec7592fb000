package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// HandleCreateTask handles POST /v1/tasks.
func (h *Handlers) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	var req model.TaskCreate
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	req.UserID = userID
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	task, err := h.db.CreateTask(r.Context(), req)
	if err != nil {
		h.writeInternalError(w, r, "failed to create task", err)
		return
	}

	h.recordActivity(r, model.ActivityEntry{
		TaskID: task.ID,
		UserID: userID,
		Action: model.ActivityCreated,
	})
	h.notifyTask(r, task, model.NotificationTaskCreated, "Task created",
		fmt.Sprintf("Created task: %q", task.Title))

	writeJSON(w, r, http.StatusCreated, task)
}

// HandleListTasks handles GET /v1/tasks.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())
	q := r.URL.Query()

	filter := model.TaskFilter{
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		SortDesc: q.Get("order") == "desc",
		Limit:    queryLimit(r, 50),
		Offset:   queryOffset(r),
	}

	switch q.Get("status") {
	case "", "all":
	case "pending":
		pending := false
		filter.Completed = &pending
	case "completed":
		completed := true
		filter.Completed = &completed
	default:
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "status must be all, pending, or completed")
		return
	}

	if p := q.Get("priority"); p != "" {
		priority := model.Priority(p)
		if !model.ValidPriority(priority) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "priority must be one of low, medium, high")
			return
		}
		filter.Priority = &priority
	}
	if tag := q.Get("tag"); tag != "" {
		filter.Tag = &tag
	}

	var err error
	if filter.DueBefore, err = queryTime(r, "due_before"); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if filter.DueAfter, err = queryTime(r, "due_after"); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	tasks, total, err := h.db.ListTasks(r.Context(), userID, filter)
	if err != nil {
		h.writeInternalError(w, r, "failed to list tasks", err)
		return
	}

	writeList(w, r, tasks, total, filter.Limit, filter.Offset)
}

// HandleGetTask handles GET /v1/tasks/{task_id}.
func (h *Handlers) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, task)
}

// HandlePatchTask handles PATCH /v1/tasks/{task_id}.
func (h *Handlers) HandlePatchTask(w http.ResponseWriter, r *http.Request) {
	before, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	var patch model.TaskPatch
	if err := decodeJSON(w, r, &patch, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if patch.IsEmpty() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "no fields to update")
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	task, err := h.db.PatchTask(r.Context(), before.ID, patch)
	if err != nil {
		h.writeInternalError(w, r, "failed to update task", err)
		return
	}

	h.recordPatchActivity(r, before, task, patch)
	if patch.Completed != nil && *patch.Completed && !before.Completed {
		h.notifyTask(r, task, model.NotificationTaskCompleted, "Task completed",
			fmt.Sprintf("Completed: %q", task.Title))
	} else {
		h.notifyTask(r, task, model.NotificationTaskUpdated, "Task updated",
			fmt.Sprintf("Updated: %q", task.Title))
	}

	writeJSON(w, r, http.StatusOK, task)
}

// HandleToggleTask handles POST /v1/tasks/{task_id}/toggle.
func (h *Handlers) HandleToggleTask(w http.ResponseWriter, r *http.Request) {
	before, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	completed := !before.Completed
	task, err := h.db.PatchTask(r.Context(), before.ID, model.TaskPatch{Completed: &completed})
	if err != nil {
		h.writeInternalError(w, r, "failed to toggle task", err)
		return
	}

	if completed {
		h.recordActivity(r, model.ActivityEntry{
			TaskID: task.ID,
			UserID: task.UserID,
			Action: model.ActivityCompleted,
		})
		h.notifyTask(r, task, model.NotificationTaskCompleted, "Task completed",
			fmt.Sprintf("Completed: %q", task.Title))
	} else {
		field := "completed"
		oldV, newV := "true", "false"
		h.recordActivity(r, model.ActivityEntry{
			TaskID:   task.ID,
			UserID:   task.UserID,
			Action:   model.ActivityUpdated,
			Field:    &field,
			OldValue: &oldV,
			NewValue: &newV,
		})
	}

	writeJSON(w, r, http.StatusOK, task)
}

// HandleDeleteTask handles DELETE /v1/tasks/{task_id}.
func (h *Handlers) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	deleted, err := h.db.DeleteTask(r.Context(), task.ID)
	if err != nil {
		h.writeInternalError(w, r, "failed to delete task", err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "task not found")
		return
	}

	// The task row is gone; the notification carries the title it had.
	h.recordActivity(r, model.ActivityEntry{
		TaskID: task.ID,
		UserID: task.UserID,
		Action: model.ActivityDeleted,
	})
	h.notifyTask(r, task, model.NotificationTaskDeleted, "Task deleted",
		fmt.Sprintf("Deleted: %q", task.Title))

	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

// HandleTaskActivity handles GET /v1/tasks/{task_id}/activity.
func (h *Handlers) HandleTaskActivity(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	entries, err := h.db.ListActivityByTask(r.Context(), task.ID, queryLimit(r, 100))
	if err != nil {
		h.writeInternalError(w, r, "failed to list activity", err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// ownTask loads the task named by the task_id path parameter and verifies the
// requester owns it. A task owned by someone else reads as not found.
func (h *Handlers) ownTask(w http.ResponseWriter, r *http.Request) (model.Task, bool) {
	userID := ctxutil.UserIDFromContext(r.Context())

	taskID, err := pathID(r, "task_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return model.Task{}, false
	}

	task, err := h.db.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "task not found")
			return model.Task{}, false
		}
		h.writeInternalError(w, r, "failed to load task", err)
		return model.Task{}, false
	}
	if task.UserID != userID {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "task not found")
		return model.Task{}, false
	}
	return task, true
}

// recordActivity appends one activity log entry. Best-effort; a failure is
// logged and the request still succeeds.
func (h *Handlers) recordActivity(r *http.Request, entry model.ActivityEntry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if err := h.db.InsertActivity(r.Context(), []model.ActivityEntry{entry}); err != nil {
		h.logger.Warn("failed to record activity",
			"task_id", entry.TaskID, "action", entry.Action, "error", err)
	}
}

// recordPatchActivity writes one activity entry per changed field.
func (h *Handlers) recordPatchActivity(r *http.Request, before, after model.Task, patch model.TaskPatch) {
	entries := model.PatchActivityEntries(before, after, patch, time.Now().UTC())
	if len(entries) == 0 {
		return
	}
	if err := h.db.InsertActivity(r.Context(), entries); err != nil {
		h.logger.Warn("failed to record activity", "task_id", after.ID, "error", err)
	}
}

// notifyTask writes a notification row and announces it on the LISTEN/NOTIFY
// channel. Both are best-effort; the mutation has already succeeded.
func (h *Handlers) notifyTask(r *http.Request, task model.Task, typ model.NotificationType, title, message string) {
	created, err := h.db.CreateNotification(r.Context(), model.Notification{
		UserID:  task.UserID,
		TaskID:  task.ID,
		Type:    typ,
		Title:   title,
		Message: message,
	})
	if err != nil {
		h.logger.Warn("failed to create notification",
			"task_id", task.ID, "type", typ, "error", err)
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
	if err := h.db.Notify(r.Context(), storage.ChannelNotifications, string(payload)); err != nil {
		h.logger.Warn("failed to announce notification", "notification_id", created.ID, "error", err)
	}
}
