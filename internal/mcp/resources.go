package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/tasuki-ai/tasuki/internal/model"
)

func (s *Server) registerResources() {
	// tasuki://tasks/pending — the user's open tasks.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"tasuki://tasks/pending",
			"Pending Tasks",
			mcplib.WithResourceDescription("Open tasks for the authenticated user, most urgent first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTasksPending,
	)

	// tasuki://tasks/all — every task, newest first.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"tasuki://tasks/all",
			"All Tasks",
			mcplib.WithResourceDescription("All tasks for the authenticated user, newest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTasksAll,
	)

	// tasuki://notifications/unread — unread notification feed.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"tasuki://notifications/unread",
			"Unread Notifications",
			mcplib.WithResourceDescription("Unread notifications for the authenticated user"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleNotificationsUnread,
	)
}

func (s *Server) handleTasksPending(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	sess, ok := s.session(ctx)
	if !ok {
		return nil, fmt.Errorf("mcp: no user identity in request context")
	}

	pending := false
	tasks, total, err := s.reader.ListTasks(ctx, sess.UserID, model.TaskFilter{
		Completed: &pending,
		Sort:      "priority",
		SortDesc:  true,
		Limit:     50,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp: pending tasks: %w", err)
	}

	return taskResource(request.Params.URI, tasks, total)
}

func (s *Server) handleTasksAll(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	sess, ok := s.session(ctx)
	if !ok {
		return nil, fmt.Errorf("mcp: no user identity in request context")
	}

	tasks, total, err := s.reader.ListTasks(ctx, sess.UserID, model.TaskFilter{
		Sort:     "created_at",
		SortDesc: true,
		Limit:    100,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp: all tasks: %w", err)
	}

	return taskResource(request.Params.URI, tasks, total)
}

func (s *Server) handleNotificationsUnread(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	sess, ok := s.session(ctx)
	if !ok {
		return nil, fmt.Errorf("mcp: no user identity in request context")
	}

	notifications, total, err := s.reader.ListNotifications(ctx, sess.UserID, true, 50, 0)
	if err != nil {
		return nil, fmt.Errorf("mcp: unread notifications: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"notifications": notifications,
		"total":         total,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal notifications: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func taskResource(uri string, tasks []model.Task, total int) ([]mcplib.ResourceContents, error) {
	compacted := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		compacted = append(compacted, compactTask(t))
	}

	data, err := json.MarshalIndent(map[string]any{
		"tasks": compacted,
		"total": total,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal tasks: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
