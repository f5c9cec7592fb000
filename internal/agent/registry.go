package agent

import (
	"context"
	"encoding/json"

	"github.com/tasuki-ai/tasuki/internal/llm"
	"github.com/tasuki-ai/tasuki/internal/model"
)

// Tool names. The set is fixed at compile time; there is no dynamic
// registration path.
const (
	ToolAddTask      = "add_task"
	ToolListTasks    = "list_tasks"
	ToolCompleteTask = "complete_task"
	ToolDeleteTask   = "delete_task"
	ToolUpdateTask   = "update_task"
)

// addTaskArgs are the model-supplied arguments for add_task. The acting user
// comes from the session, never from the model.
type addTaskArgs struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
}

type listTasksArgs struct {
	Status   string `json:"status,omitempty"` // all | pending | completed
	Priority string `json:"priority,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type completeTaskArgs struct {
	TaskID    *int64 `json:"task_id,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`
}

type deleteTaskArgs struct {
	TaskID    *int64 `json:"task_id,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`
}

type updateTaskArgs struct {
	TaskID      *int64  `json:"task_id,omitempty"`
	TaskTitle   string  `json:"task_title,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

type toolSpec struct {
	name        string
	description string
	parameters  map[string]any
	handler     func(ctx context.Context, ex *Executor, s Session, raw json.RawMessage) model.ToolResult
}

// Registry is the immutable set of tools advertised to the model.
type Registry struct {
	specs map[string]toolSpec
	order []string
}

// NewRegistry builds the fixed tool registry.
func NewRegistry() *Registry {
	priorityProp := map[string]any{
		"type":        "string",
		"enum":        []string{"low", "medium", "high"},
		"description": "Priority level",
	}
	taskIDProp := map[string]any{
		"type":        "integer",
		"description": "Numeric task ID, only when the user explicitly gives one",
	}
	taskTitleProp := map[string]any{
		"type":        "string",
		"description": "Task title as the user said it; preferred over task_id",
	}

	specs := []toolSpec{
		{
			name:        ToolAddTask,
			description: "Add a new task to the user's todo list",
			parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "Task title"},
					"description": map[string]any{"type": "string", "description": "Task description"},
					"priority":    priorityProp,
				},
				"required": []string{"title"},
			},
			handler: func(ctx context.Context, ex *Executor, s Session, raw json.RawMessage) model.ToolResult {
				return ex.addTask(ctx, s, raw)
			},
		},
		{
			name:        ToolListTasks,
			description: "List the user's tasks, optionally filtered by status or priority",
			parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{
						"type":        "string",
						"enum":        []string{"all", "pending", "completed"},
						"description": "Completion filter, defaults to all",
					},
					"priority": priorityProp,
					"limit":    map[string]any{"type": "integer", "description": "Maximum number of tasks to return"},
				},
			},
			handler: func(ctx context.Context, ex *Executor, s Session, raw json.RawMessage) model.ToolResult {
				return ex.listTasks(ctx, s, raw)
			},
		},
		{
			name:        ToolCompleteTask,
			description: "Mark a task as done; accepts task_id or task_title",
			parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id":    taskIDProp,
					"task_title": taskTitleProp,
				},
			},
			handler: func(ctx context.Context, ex *Executor, s Session, raw json.RawMessage) model.ToolResult {
				return ex.completeTask(ctx, s, raw)
			},
		},
		{
			name:        ToolDeleteTask,
			description: "Delete a task permanently; accepts task_id or task_title",
			parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id":    taskIDProp,
					"task_title": taskTitleProp,
				},
			},
			handler: func(ctx context.Context, ex *Executor, s Session, raw json.RawMessage) model.ToolResult {
				return ex.deleteTask(ctx, s, raw)
			},
		},
		{
			name:        ToolUpdateTask,
			description: "Update a task's title, description, or priority; accepts task_id or task_title to identify it",
			parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id":     taskIDProp,
					"task_title":  taskTitleProp,
					"title":       map[string]any{"type": "string", "description": "New title"},
					"description": map[string]any{"type": "string", "description": "New description"},
					"priority":    priorityProp,
				},
			},
			handler: func(ctx context.Context, ex *Executor, s Session, raw json.RawMessage) model.ToolResult {
				return ex.updateTask(ctx, s, raw)
			},
		},
	}

	r := &Registry{specs: make(map[string]toolSpec, len(specs))}
	for _, spec := range specs {
		r.specs[spec.name] = spec
		r.order = append(r.order, spec.name)
	}
	return r
}

// Catalog returns the tool definitions in registration order, for
// advertising to the model.
func (r *Registry) Catalog() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		out = append(out, llm.Tool{
			Name:        spec.name,
			Description: spec.description,
			Parameters:  spec.parameters,
		})
	}
	return out
}
