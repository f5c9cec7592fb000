package agent_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/agent"
	"github.com/tasuki-ai/tasuki/internal/llm"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/testutil"
)

func newTestLoop(provider llm.Provider, tasks *fakeTaskStore, notifs *fakeNotificationStore, maxIterations int) *agent.Loop {
	registry := agent.NewRegistry()
	ex := agent.NewExecutor(registry, tasks, notifs, testutil.TestLogger())
	return agent.NewLoop(provider, ex, registry, testutil.TestLogger(), maxIterations)
}

func TestLoop_AddTaskExchange(t *testing.T) {
	// Model requests add_task, sees the result, then answers in text.
	store := newFakeTaskStore()
	provider := &scriptedProvider{script: []scriptStep{
		toolCallStep("add_task", "call_1", `{"title": "buy groceries"}`),
		textStep("Added buy groceries to your list!"),
	}}
	loop := newTestLoop(provider, store, &fakeNotificationStore{}, 0)

	res := loop.Run(context.Background(), agent.Session{UserID: 3}, nil, "add buy groceries")

	assert.False(t, res.Failed)
	assert.Equal(t, "Added buy groceries to your list!", res.AssistantMessage)
	assert.Equal(t, 2, res.Iterations)

	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "add_task", res.ToolCalls[0].Tool)
	assert.True(t, res.ToolCalls[0].Result.Success)
	assert.Equal(t, "buy groceries", res.ToolCalls[0].Arguments["title"])

	tasks, _, err := store.ListTasks(context.Background(), 3, model.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.PriorityMedium, tasks[0].Priority)
}

func TestLoop_DeleteByTitleExchange(t *testing.T) {
	store := newFakeTaskStore()
	task := store.seed(5, "Call my father", false)
	notifs := &fakeNotificationStore{}
	provider := &scriptedProvider{script: []scriptStep{
		toolCallStep("delete_task", "call_1", `{"task_title": "Call my father"}`),
		textStep("Deleted it."),
	}}
	loop := newTestLoop(provider, store, notifs, 0)

	res := loop.Run(context.Background(), agent.Session{UserID: 5}, nil, "delete Call my father")

	assert.False(t, res.Failed)
	require.Len(t, res.ToolCalls, 1)
	assert.True(t, res.ToolCalls[0].Result.Success)

	_, err := store.GetTask(context.Background(), task.ID)
	require.Error(t, err)

	require.Len(t, notifs.created, 1)
	assert.Equal(t, `Deleted: "Call my father"`, notifs.created[0].Message)
}

func TestLoop_IterationCap(t *testing.T) {
	// Model asks for another tool call every round; the loop gives up after
	// the cap with the fixed apology and the accumulated log.
	store := newFakeTaskStore()
	var script []scriptStep
	for i := 0; i < 10; i++ {
		script = append(script, toolCallStep("list_tasks", fmt.Sprintf("call_%d", i), `{}`))
	}
	provider := &scriptedProvider{script: script}
	loop := newTestLoop(provider, store, &fakeNotificationStore{}, 5)

	res := loop.Run(context.Background(), agent.Session{UserID: 1}, nil, "loop forever")

	assert.True(t, res.Failed)
	assert.Equal(t, 5, res.Iterations)
	assert.Len(t, res.ToolCalls, 5)
	assert.Equal(t,
		"I apologize, but I'm having trouble completing that request. Please try breaking it down into smaller steps.",
		res.AssistantMessage)
}

func TestLoop_ModelErrorTerminatesWithApology(t *testing.T) {
	// First round succeeds with a tool call, second model call fails; the
	// exchange ends immediately but keeps the partial log.
	store := newFakeTaskStore()
	provider := &scriptedProvider{script: []scriptStep{
		toolCallStep("add_task", "call_1", `{"title": "first"}`),
		{err: fmt.Errorf("connection reset")},
	}}
	loop := newTestLoop(provider, store, &fakeNotificationStore{}, 0)

	res := loop.Run(context.Background(), agent.Session{UserID: 1}, nil, "add first")

	assert.True(t, res.Failed)
	assert.Contains(t, res.AssistantMessage, "I encountered an error")
	assert.Contains(t, res.AssistantMessage, "Please try again.")
	require.Len(t, res.ToolCalls, 1)
	assert.True(t, res.ToolCalls[0].Result.Success)
}

func TestLoop_PlainTextNoTools(t *testing.T) {
	provider := &scriptedProvider{script: []scriptStep{textStep("Hello! How can I help?")}}
	loop := newTestLoop(provider, newFakeTaskStore(), &fakeNotificationStore{}, 0)

	res := loop.Run(context.Background(), agent.Session{UserID: 1}, nil, "hi")

	assert.False(t, res.Failed)
	assert.Equal(t, "Hello! How can I help?", res.AssistantMessage)
	assert.Empty(t, res.ToolCalls)
	assert.Equal(t, 1, res.Iterations)
}

func TestLoop_FailedToolSurfacesInLog(t *testing.T) {
	// A tool failure is a result the model reacts to, never a crash.
	store := newFakeTaskStore()
	provider := &scriptedProvider{script: []scriptStep{
		toolCallStep("delete_task", "call_1", `{"task_title": "no such task"}`),
		textStep("I couldn't find that task. Want me to list your tasks?"),
	}}
	loop := newTestLoop(provider, store, &fakeNotificationStore{}, 0)

	res := loop.Run(context.Background(), agent.Session{UserID: 1}, nil, "delete no such task")

	assert.False(t, res.Failed)
	require.Len(t, res.ToolCalls, 1)
	assert.False(t, res.ToolCalls[0].Result.Success)
	assert.Contains(t, res.AssistantMessage, "couldn't find")
}

func TestLoop_HistoryAndSystemPromptPrecedeUserMessage(t *testing.T) {
	provider := &scriptedProvider{script: []scriptStep{textStep("ok")}}
	loop := newTestLoop(provider, newFakeTaskStore(), &fakeNotificationStore{}, 0)

	history := []llm.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	loop.Run(context.Background(), agent.Session{UserID: 1}, history, "new message")

	msgs := provider.lastMsg
	require.GreaterOrEqual(t, len(msgs), 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "earlier question", msgs[1].Content)
	assert.Equal(t, "earlier answer", msgs[2].Content)
	assert.Equal(t, "new message", msgs[len(msgs)-1].Content)
}
