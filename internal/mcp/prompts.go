package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// plan-my-day — reviews open tasks and proposes an order of attack.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("plan-my-day",
			mcplib.WithPromptDescription("Review pending tasks and propose a plan for the day"),
		),
		s.handlePlanMyDayPrompt,
	)

	// break-down-task — splits a large task into concrete steps.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("break-down-task",
			mcplib.WithPromptDescription("Break a large task into smaller actionable tasks"),
			mcplib.WithArgument("task_title",
				mcplib.ArgumentDescription("Title of the task to break down"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleBreakDownTaskPrompt,
	)

	// agent-setup — system prompt snippet explaining the task tools.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("agent-setup",
			mcplib.WithPromptDescription("System prompt snippet explaining the Tasuki task management tools"),
		),
		s.handleAgentSetupPrompt,
	)
}

func (s *Server) handlePlanMyDayPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "Plan today's work from the pending task list",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `Help me plan my day. Follow these steps:

1. CALL list_tasks with status="pending" to see everything that is open.

2. REVIEW the results:
   - Anything with a due_note saying it is overdue or due within 24 hours
     goes first.
   - High priority tasks come before medium, medium before low.
   - Flag tasks that look stale (created long ago, never touched).

3. PROPOSE a short ordered plan. Keep it realistic; three to five items,
   not the whole backlog.

4. ASK me before completing, deleting, or rescheduling anything.`,
				},
			},
		},
	}, nil
}

func (s *Server) handleBreakDownTaskPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	taskTitle := request.Params.Arguments["task_title"]
	if taskTitle == "" {
		return nil, fmt.Errorf("task_title argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Break down %q into actionable steps", taskTitle),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`The task %q is too big to tackle in one sitting. Break it down:

1. CALL list_tasks to confirm the task exists and read its description.

2. PROPOSE three to six concrete subtask titles. Each should be something
   finishable in one sitting, phrased as an action ("Draft the outline",
   not "Outline").

3. After I approve, CALL add_task once per subtask. Give each a sensible
   priority; they do not all inherit the parent's.

4. Do not delete or complete the original task unless I ask.`, taskTitle),
				},
			},
		},
	}, nil
}

func (s *Server) handleAgentSetupPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "Tasuki task management workflow for AI agents",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You have access to Tasuki, a personal task manager. The tools operate on
the authenticated user's tasks only; you never supply a user id.

## Available Tools

- add_task: Create a task (title required; description and priority optional)
- list_tasks: List tasks, filterable by status (all/pending/completed) and priority
- complete_task: Mark a task done, by task_id or task_title
- delete_task: Remove a task, by task_id or task_title
- update_task: Change a task's title, description, or priority

## Identifying Tasks

When the user names a task, pass task_title and let the server match it
case-insensitively. Only pass task_id when the user gives an explicit number.
If a title matches several tasks, the result lists the candidates with their
ids; present the list and ask which one was meant.

## Ground Rules

- Call a tool before claiming you did something; never invent results.
- Confirm before deleting. Deletions are permanent.
- Keep responses short. The user wants tasks managed, not essays.`,
				},
			},
		},
	}, nil
}
