package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/tasuki-ai/tasuki/internal/agent"
	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
	"github.com/tasuki-ai/tasuki/internal/testutil"
)

// memStore backs the executor and the resource reader with an in-memory map.
type memStore struct {
	nextID        int64
	tasks         map[int64]model.Task
	notifications []model.Notification
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, tasks: map[int64]model.Task{}}
}

func (m *memStore) CreateTask(_ context.Context, req model.TaskCreate) (model.Task, error) {
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	t := model.Task{
		ID:          m.nextID,
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
	m.nextID++
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memStore) GetTask(_ context.Context, id int64) (model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListTasks(_ context.Context, userID int64, f model.TaskFilter) ([]model.Task, int, error) {
	var out []model.Task
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *memStore) PatchTask(_ context.Context, id int64, p model.TaskPatch) (model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, storage.ErrNotFound
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	m.tasks[id] = t
	return t, nil
}

func (m *memStore) DeleteTask(_ context.Context, id int64) (bool, error) {
	if _, ok := m.tasks[id]; !ok {
		return false, nil
	}
	delete(m.tasks, id)
	return true, nil
}

func (m *memStore) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	n.ID = int64(len(m.notifications) + 1)
	m.notifications = append(m.notifications, n)
	return n, nil
}

func (m *memStore) Notify(context.Context, string, string) error { return nil }

func (m *memStore) InsertActivity(context.Context, []model.ActivityEntry) error { return nil }

func (m *memStore) ListNotifications(_ context.Context, userID int64, unreadOnly bool, _, _ int) ([]model.Notification, int, error) {
	var out []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	logger := testutil.TestLogger()
	executor := agent.NewExecutor(agent.NewRegistry(), store, store, logger)
	return New(executor, store, logger), store
}

func userCtx(userID int64) context.Context {
	return ctxutil.WithClaims(context.Background(), &auth.Claims{UserID: userID})
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// toolText extracts the first TextContent text from a CallToolResult.
func toolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func TestAddTaskTool(t *testing.T) {
	s, store := newTestServer(t)

	result, err := s.handleAddTask(userCtx(7), callRequest(agent.ToolAddTask, map[string]any{
		"title":    "Buy groceries",
		"priority": "high",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &envelope))
	assert.Equal(t, true, envelope["success"])
	assert.Contains(t, envelope["message"], "created successfully")

	require.Len(t, store.tasks, 1)
	created := store.tasks[1]
	assert.Equal(t, int64(7), created.UserID)
	assert.Equal(t, model.PriorityHigh, created.Priority)
}

func TestAddTaskToolRequiresIdentity(t *testing.T) {
	s, store := newTestServer(t)

	result, err := s.handleAddTask(context.Background(), callRequest(agent.ToolAddTask, map[string]any{
		"title": "Orphan task",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "unauthenticated")
	assert.Empty(t, store.tasks)
}

func TestCompleteTaskToolByTitle(t *testing.T) {
	s, store := newTestServer(t)
	ctx := userCtx(3)

	_, err := s.handleAddTask(ctx, callRequest(agent.ToolAddTask, map[string]any{"title": "Water plants"}))
	require.NoError(t, err)

	result, err := s.handleCompleteTask(ctx, callRequest(agent.ToolCompleteTask, map[string]any{
		"task_title": "water plants",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.True(t, store.tasks[1].Completed)
}

func TestDeleteTaskToolNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleDeleteTask(userCtx(3), callRequest(agent.ToolDeleteTask, map[string]any{
		"task_id": 42,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &envelope))
	assert.Equal(t, false, envelope["success"])
}

func TestPendingTasksResource(t *testing.T) {
	s, store := newTestServer(t)
	ctx := userCtx(5)

	_, err := s.handleAddTask(ctx, callRequest(agent.ToolAddTask, map[string]any{"title": "Open item"}))
	require.NoError(t, err)
	done := true
	store.tasks[2] = model.Task{ID: 2, UserID: 5, Title: "Done item", Completed: done}

	contents, err := s.handleTasksPending(ctx, mcplib.ReadResourceRequest{
		Params: mcplib.ReadResourceParams{URI: "tasuki://tasks/pending"},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text := contents[0].(mcplib.TextResourceContents)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.Text, "Open item")
	assert.NotContains(t, text.Text, "Done item")
}

func TestUnreadNotificationsResource(t *testing.T) {
	s, store := newTestServer(t)
	ctx := userCtx(5)

	_, err := s.handleAddTask(ctx, callRequest(agent.ToolAddTask, map[string]any{"title": "Ping"}))
	require.NoError(t, err)
	require.NotEmpty(t, store.notifications)

	contents, err := s.handleNotificationsUnread(ctx, mcplib.ReadResourceRequest{
		Params: mcplib.ReadResourceParams{URI: "tasuki://notifications/unread"},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0].(mcplib.TextResourceContents).Text, "task_created")
}

func TestBreakDownTaskPromptRequiresTitle(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleBreakDownTaskPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: "break-down-task"},
	})
	require.Error(t, err)
}
