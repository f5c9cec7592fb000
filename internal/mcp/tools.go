package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/tasuki-ai/tasuki/internal/agent"
)

func (s *Server) registerTools() {
	// add_task — create a new task.
	s.mcpServer.AddTool(
		mcplib.NewTool(agent.ToolAddTask,
			mcplib.WithDescription("Create a new task for the authenticated user"),
			mcplib.WithString("title",
				mcplib.Description("Task title"),
				mcplib.Required(),
			),
			mcplib.WithString("description",
				mcplib.Description("Optional longer description"),
			),
			mcplib.WithString("priority",
				mcplib.Description("Priority level: low, medium, or high"),
				mcplib.Enum("low", "medium", "high"),
			),
		),
		s.handleAddTask,
	)

	// list_tasks — list the user's tasks with optional filters.
	s.mcpServer.AddTool(
		mcplib.NewTool(agent.ToolListTasks,
			mcplib.WithDescription("List the user's tasks, optionally filtered by status and priority"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("status",
				mcplib.Description("Filter by completion status"),
				mcplib.Enum("all", "pending", "completed"),
			),
			mcplib.WithString("priority",
				mcplib.Description("Filter by priority level"),
				mcplib.Enum("low", "medium", "high"),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of tasks to return"),
				mcplib.Min(1),
				mcplib.Max(100),
			),
		),
		s.handleListTasks,
	)

	// complete_task — mark a pending task as done.
	s.mcpServer.AddTool(
		mcplib.NewTool(agent.ToolCompleteTask,
			mcplib.WithDescription("Mark a task as complete, identified by id or by title"),
			mcplib.WithNumber("task_id",
				mcplib.Description("Numeric task id"),
			),
			mcplib.WithString("task_title",
				mcplib.Description("Task title to search for when the id is unknown"),
			),
		),
		s.handleCompleteTask,
	)

	// delete_task — remove a task.
	s.mcpServer.AddTool(
		mcplib.NewTool(agent.ToolDeleteTask,
			mcplib.WithDescription("Delete a task, identified by id or by title"),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithNumber("task_id",
				mcplib.Description("Numeric task id"),
			),
			mcplib.WithString("task_title",
				mcplib.Description("Task title to search for when the id is unknown"),
			),
		),
		s.handleDeleteTask,
	)

	// update_task — change title, description, or priority.
	s.mcpServer.AddTool(
		mcplib.NewTool(agent.ToolUpdateTask,
			mcplib.WithDescription("Update a task's title, description, or priority"),
			mcplib.WithNumber("task_id",
				mcplib.Description("Numeric task id"),
			),
			mcplib.WithString("task_title",
				mcplib.Description("Task title to search for when the id is unknown"),
			),
			mcplib.WithString("title",
				mcplib.Description("New title"),
			),
			mcplib.WithString("description",
				mcplib.Description("New description"),
			),
			mcplib.WithString("priority",
				mcplib.Description("New priority level"),
				mcplib.Enum("low", "medium", "high"),
			),
		),
		s.handleUpdateTask,
	)
}

func (s *Server) handleAddTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := map[string]any{
		"title": request.GetString("title", ""),
	}
	if v := request.GetString("description", ""); v != "" {
		args["description"] = v
	}
	if v := request.GetString("priority", ""); v != "" {
		args["priority"] = v
	}
	return s.call(ctx, agent.ToolAddTask, args)
}

func (s *Server) handleListTasks(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := map[string]any{}
	if v := request.GetString("status", ""); v != "" {
		args["status"] = v
	}
	if v := request.GetString("priority", ""); v != "" {
		args["priority"] = v
	}
	if v := request.GetInt("limit", 0); v > 0 {
		args["limit"] = v
	}
	return s.call(ctx, agent.ToolListTasks, args)
}

func (s *Server) handleCompleteTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.call(ctx, agent.ToolCompleteTask, identifierArgs(request))
}

func (s *Server) handleDeleteTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.call(ctx, agent.ToolDeleteTask, identifierArgs(request))
}

func (s *Server) handleUpdateTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := identifierArgs(request)
	if v := request.GetString("title", ""); v != "" {
		args["title"] = v
	}
	if v := request.GetString("description", ""); v != "" {
		args["description"] = v
	}
	if v := request.GetString("priority", ""); v != "" {
		args["priority"] = v
	}
	return s.call(ctx, agent.ToolUpdateTask, args)
}

// identifierArgs collects the task_id/task_title pair shared by the tools
// that act on an existing task.
func identifierArgs(request mcplib.CallToolRequest) map[string]any {
	args := map[string]any{}
	if v := request.GetInt("task_id", 0); v > 0 {
		args["task_id"] = v
	}
	if v := request.GetString("task_title", ""); v != "" {
		args["task_title"] = v
	}
	return args
}
