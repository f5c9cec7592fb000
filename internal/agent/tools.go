package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
)

func (ex *Executor) addTask(ctx context.Context, s Session, raw json.RawMessage) model.ToolResult {
	var args addTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(fmt.Sprintf("Invalid arguments for add_task: %v", err), "validation_failed")
	}

	req := model.TaskCreate{
		UserID:      s.UserID,
		Title:       args.Title,
		Description: args.Description,
		Priority:    model.Priority(args.Priority),
	}
	if err := req.Validate(); err != nil {
		return failure(fmt.Sprintf("Invalid arguments for add_task: %v", err), "validation_failed")
	}

	task, err := ex.tasks.CreateTask(ctx, req)
	if err != nil {
		return failure(fmt.Sprintf("Failed to create task: %v", err), "tool_execution_failed")
	}

	ex.recordActivity(ctx, model.ActivityEntry{
		TaskID: task.ID,
		UserID: s.UserID,
		Action: model.ActivityCreated,
	})
	ex.notify(ctx, s.UserID, task.ID, model.NotificationTaskCreated,
		"Task Created", fmt.Sprintf("Created task: %q", task.Title))

	return success(fmt.Sprintf("Task '%s' created successfully with ID %d", task.Title, task.ID), map[string]any{
		"task_id":  task.ID,
		"title":    task.Title,
		"priority": task.Priority,
	})
}

func (ex *Executor) listTasks(ctx context.Context, s Session, raw json.RawMessage) model.ToolResult {
	var args listTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(fmt.Sprintf("Invalid arguments for list_tasks: %v", err), "validation_failed")
	}
	if args.Status == "" {
		args.Status = "all"
	}

	filter := model.TaskFilter{Limit: args.Limit}
	switch args.Status {
	case "all":
	case "pending":
		pending := false
		filter.Completed = &pending
	case "completed":
		completed := true
		filter.Completed = &completed
	default:
		return failure("status must be one of all, pending, completed", "validation_failed")
	}
	if args.Priority != "" {
		p := model.Priority(args.Priority)
		if !model.ValidPriority(p) {
			return failure("priority must be one of low, medium, high", "validation_failed")
		}
		filter.Priority = &p
	}

	tasks, total, err := ex.tasks.ListTasks(ctx, s.UserID, filter)
	if err != nil {
		return failure(fmt.Sprintf("Failed to list tasks: %v", err), "tool_execution_failed")
	}

	summaries := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, map[string]any{
			"id":        t.ID,
			"title":     t.Title,
			"priority":  t.Priority,
			"completed": t.Completed,
		})
	}

	return success(fmt.Sprintf("Found %d %s task(s)", len(tasks), args.Status), map[string]any{
		"tasks": summaries,
		"total": total,
		"count": len(tasks),
	})
}

func (ex *Executor) completeTask(ctx context.Context, s Session, raw json.RawMessage) model.ToolResult {
	var args completeTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(fmt.Sprintf("Invalid arguments for complete_task: %v", err), "validation_failed")
	}

	// Title search is scoped to pending tasks: completing by name must not
	// re-match a task that is already done.
	task, res := ex.resolveOrFail(ctx, s, args.TaskID, args.TaskTitle, true)
	if res != nil {
		return *res
	}

	completed := true
	updated, err := ex.tasks.PatchTask(ctx, task.ID, model.TaskPatch{Completed: &completed})
	if err != nil {
		return failure(fmt.Sprintf("Failed to complete task: %v", err), "tool_execution_failed")
	}

	ex.recordActivity(ctx, model.ActivityEntry{
		TaskID: updated.ID,
		UserID: s.UserID,
		Action: model.ActivityCompleted,
	})
	ex.notify(ctx, s.UserID, updated.ID, model.NotificationTaskCompleted,
		"Task Completed", fmt.Sprintf("Completed: %q", updated.Title))

	return success(fmt.Sprintf("Task '%s' marked as complete", updated.Title), map[string]any{
		"task_id":   updated.ID,
		"title":     updated.Title,
		"completed": updated.Completed,
	})
}

func (ex *Executor) deleteTask(ctx context.Context, s Session, raw json.RawMessage) model.ToolResult {
	var args deleteTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(fmt.Sprintf("Invalid arguments for delete_task: %v", err), "validation_failed")
	}

	task, res := ex.resolveOrFail(ctx, s, args.TaskID, args.TaskTitle, false)
	if res != nil {
		return *res
	}

	// Capture the title now; the row is gone once the delete lands.
	title := task.Title

	deleted, err := ex.tasks.DeleteTask(ctx, task.ID)
	if err != nil {
		return failure(fmt.Sprintf("Failed to delete task: %v", err), "tool_execution_failed")
	}
	if !deleted {
		return failure("Task not found", "not_found")
	}

	ex.recordActivity(ctx, model.ActivityEntry{
		TaskID: task.ID,
		UserID: s.UserID,
		Action: model.ActivityDeleted,
	})
	ex.notify(ctx, s.UserID, task.ID, model.NotificationTaskDeleted,
		"Task Deleted", fmt.Sprintf("Deleted: %q", title))

	return success(fmt.Sprintf("Task '%s' deleted successfully", title), map[string]any{
		"task_id": task.ID,
	})
}

func (ex *Executor) updateTask(ctx context.Context, s Session, raw json.RawMessage) model.ToolResult {
	var args updateTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(fmt.Sprintf("Invalid arguments for update_task: %v", err), "validation_failed")
	}

	task, res := ex.resolveOrFail(ctx, s, args.TaskID, args.TaskTitle, false)
	if res != nil {
		return *res
	}

	patch := model.TaskPatch{
		Title:       args.Title,
		Description: args.Description,
	}
	if args.Priority != nil {
		p := model.Priority(*args.Priority)
		patch.Priority = &p
	}
	if patch.IsEmpty() {
		return failure("No fields to update", "validation_failed")
	}
	if err := patch.Validate(); err != nil {
		return failure(fmt.Sprintf("Invalid arguments for update_task: %v", err), "validation_failed")
	}

	updated, err := ex.tasks.PatchTask(ctx, task.ID, patch)
	if err != nil {
		return failure(fmt.Sprintf("Failed to update task: %v", err), "tool_execution_failed")
	}

	ex.recordActivity(ctx, model.PatchActivityEntries(task, updated, patch, time.Now().UTC())...)
	ex.notify(ctx, s.UserID, updated.ID, model.NotificationTaskUpdated,
		"Task Updated", fmt.Sprintf("Updated: %q", updated.Title))

	return success(fmt.Sprintf("Task '%s' updated successfully", updated.Title), map[string]any{
		"task_id":  updated.ID,
		"title":    updated.Title,
		"priority": updated.Priority,
	})
}

// resolveOrFail resolves a task reference and maps non-resolved outcomes to
// their failure envelopes. Returns the task and nil on success.
func (ex *Executor) resolveOrFail(ctx context.Context, s Session, taskID *int64, title string, pendingOnly bool) (model.Task, *model.ToolResult) {
	resolution, err := ex.resolver.Resolve(ctx, s.UserID, taskID, title, pendingOnly)
	if err != nil {
		res := failure(fmt.Sprintf("Failed to look up task: %v", err), "tool_execution_failed")
		return model.Task{}, &res
	}

	switch resolution.Kind {
	case ResolutionResolved:
		return resolution.Task, nil
	case ResolutionAmbiguous:
		res := failure(ambiguousMessage(title, resolution.Candidates), "ambiguous")
		res.Extra["candidates"] = resolution.Candidates
		return model.Task{}, &res
	case ResolutionMissingIdentifier:
		res := failure("Please provide either task_id or task_title", "missing_identifier")
		return model.Task{}, &res
	default:
		msg := "Task not found"
		if title != "" {
			if pendingOnly {
				msg = fmt.Sprintf("No pending task found with title matching '%s'", title)
			} else {
				msg = fmt.Sprintf("No task found with title matching '%s'", title)
			}
		}
		res := failure(msg, "not_found")
		return model.Task{}, &res
	}
}
