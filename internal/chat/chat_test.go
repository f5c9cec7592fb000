package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/agent"
	"github.com/tasuki-ai/tasuki/internal/chat"
	"github.com/tasuki-ai/tasuki/internal/llm"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
	"github.com/tasuki-ai/tasuki/internal/testutil"
)

// memConversationStore is an in-memory ConversationStore.
type memConversationStore struct {
	mu     sync.Mutex
	nextID int64
	turns  []model.Turn
}

func (m *memConversationStore) AppendTurn(_ context.Context, turn model.Turn) (model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	turn.ID = m.nextID
	turn.CreatedAt = time.Now()
	m.turns = append(m.turns, turn)
	return turn, nil
}

func (m *memConversationStore) RecentTurns(_ context.Context, conversationID int64, limit int) ([]model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Turn
	for _, t := range m.turns {
		if t.ConversationID == conversationID {
			all = append(all, t)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *memConversationStore) ConversationOwner(_ context.Context, conversationID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.turns {
		if t.ConversationID == conversationID {
			return t.UserID, nil
		}
	}
	return 0, storage.ErrNotFound
}

func (m *memConversationStore) ListConversations(_ context.Context, userID int64, _ int) ([]model.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	var out []model.ConversationSummary
	for _, t := range m.turns {
		if t.UserID == userID && !seen[t.ConversationID] {
			seen[t.ConversationID] = true
			out = append(out, model.ConversationSummary{ConversationID: t.ConversationID})
		}
	}
	return out, nil
}

// scriptedProvider plays back a fixed sequence of completions.
type scriptedProvider struct {
	mu     sync.Mutex
	script []llm.Completion
	errs   []error
	calls  int
	seen   [][]llm.Message
}

func (p *scriptedProvider) Complete(_ context.Context, messages []llm.Message, _ []llm.Tool) (llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, messages)
	if p.calls >= len(p.script) {
		return llm.Completion{}, fmt.Errorf("script exhausted")
	}
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return llm.Completion{}, p.errs[i]
	}
	return p.script[i], nil
}

// noopTasks satisfies agent.TaskStore for exchanges that never touch tasks.
type noopTasks struct{}

func (noopTasks) CreateTask(_ context.Context, req model.TaskCreate) (model.Task, error) {
	return model.Task{ID: 1, UserID: req.UserID, Title: req.Title, Priority: model.PriorityMedium}, nil
}
func (noopTasks) GetTask(context.Context, int64) (model.Task, error) {
	return model.Task{}, storage.ErrNotFound
}
func (noopTasks) ListTasks(context.Context, int64, model.TaskFilter) ([]model.Task, int, error) {
	return nil, 0, nil
}
func (noopTasks) PatchTask(context.Context, int64, model.TaskPatch) (model.Task, error) {
	return model.Task{}, storage.ErrNotFound
}
func (noopTasks) DeleteTask(context.Context, int64) (bool, error) { return false, nil }

type noopNotifications struct{}

func (noopNotifications) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	return n, nil
}
func (noopNotifications) Notify(context.Context, string, string) error { return nil }

func (noopNotifications) InsertActivity(context.Context, []model.ActivityEntry) error {
	return nil
}

func newService(store chat.ConversationStore, provider llm.Provider) *chat.Service {
	logger := testutil.TestLogger()
	registry := agent.NewRegistry()
	ex := agent.NewExecutor(registry, noopTasks{}, noopNotifications{}, logger)
	loop := agent.NewLoop(provider, ex, registry, logger, 0)
	return chat.NewService(store, loop, logger, 0)
}

func TestExchange_MintsConversationID(t *testing.T) {
	store := &memConversationStore{}
	provider := &scriptedProvider{script: []llm.Completion{{Text: "hello!"}}}
	svc := newService(store, provider)

	before := time.Now().UnixMilli()
	resp, err := svc.Exchange(context.Background(), 1, nil, "hi")
	require.NoError(t, err)
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, resp.ConversationID, before)
	assert.LessOrEqual(t, resp.ConversationID, after)
	assert.Equal(t, "hi", resp.UserMessage)
	assert.Equal(t, "hello!", resp.AssistantMessage)
}

func TestExchange_PersistsBothTurnsInOrder(t *testing.T) {
	store := &memConversationStore{}
	provider := &scriptedProvider{script: []llm.Completion{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "add_task", Arguments: []byte(`{"title":"x"}`)}}},
		{Text: "task added"},
	}}
	svc := newService(store, provider)

	resp, err := svc.Exchange(context.Background(), 1, nil, "add x")
	require.NoError(t, err)

	require.Len(t, store.turns, 2)
	assert.Equal(t, model.RoleUser, store.turns[0].Role)
	assert.Equal(t, "add x", store.turns[0].Content)
	assert.Nil(t, store.turns[0].ToolCalls)

	assert.Equal(t, model.RoleAssistant, store.turns[1].Role)
	assert.Equal(t, "task added", store.turns[1].Content)

	// The assistant turn embeds the full tool-call log.
	var recorded []model.ToolCallRecord
	require.NoError(t, json.Unmarshal(store.turns[1].ToolCalls, &recorded))
	require.Len(t, recorded, 1)
	assert.Equal(t, "add_task", recorded[0].Tool)
	assert.True(t, recorded[0].Result.Success)

	require.Len(t, resp.ToolCalls, 1)
}

func TestExchange_UserTurnPersistsEvenWhenModelFails(t *testing.T) {
	store := &memConversationStore{}
	provider := &scriptedProvider{
		script: []llm.Completion{{}},
		errs:   []error{fmt.Errorf("model down")},
	}
	svc := newService(store, provider)

	resp, err := svc.Exchange(context.Background(), 1, nil, "hello?")
	require.NoError(t, err, "a model failure still yields a well-formed response")
	assert.Contains(t, resp.AssistantMessage, "I encountered an error")

	require.Len(t, store.turns, 2)
	assert.Equal(t, model.RoleUser, store.turns[0].Role)
	assert.Equal(t, model.RoleAssistant, store.turns[1].Role)
}

func TestExchange_ReplaysHistoryWindow(t *testing.T) {
	store := &memConversationStore{}
	provider := &scriptedProvider{script: []llm.Completion{
		{Text: "first"},
		{Text: "second"},
	}}
	svc := newService(store, provider)

	resp, err := svc.Exchange(context.Background(), 1, nil, "message one")
	require.NoError(t, err)

	_, err = svc.Exchange(context.Background(), 1, &resp.ConversationID, "message two")
	require.NoError(t, err)

	// Second model call saw system + replayed pair + new user message.
	require.Len(t, provider.seen, 2)
	msgs := provider.seen[1]
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "message one", msgs[1].Content)
	assert.Equal(t, "first", msgs[2].Content)
	assert.Equal(t, "message two", msgs[3].Content)
}

func TestExchange_ForbiddenConversation(t *testing.T) {
	store := &memConversationStore{}
	provider := &scriptedProvider{script: []llm.Completion{{Text: "mine"}}}
	svc := newService(store, provider)

	resp, err := svc.Exchange(context.Background(), 1, nil, "my conversation")
	require.NoError(t, err)

	_, err = svc.Exchange(context.Background(), 2, &resp.ConversationID, "let me in")
	assert.ErrorIs(t, err, chat.ErrForbidden)
}

func TestExchange_RejectsBlankMessage(t *testing.T) {
	svc := newService(&memConversationStore{}, &scriptedProvider{})

	_, err := svc.Exchange(context.Background(), 1, nil, "   \n\t ")
	require.Error(t, err)
}

func TestHistory_OwnershipEnforced(t *testing.T) {
	store := &memConversationStore{}
	provider := &scriptedProvider{script: []llm.Completion{{Text: "ok"}}}
	svc := newService(store, provider)

	resp, err := svc.Exchange(context.Background(), 1, nil, "hello")
	require.NoError(t, err)

	turns, err := svc.History(context.Background(), 1, resp.ConversationID, 0)
	require.NoError(t, err)
	assert.Len(t, turns, 2)

	_, err = svc.History(context.Background(), 2, resp.ConversationID, 0)
	assert.ErrorIs(t, err, chat.ErrForbidden)

	_, err = svc.History(context.Background(), 1, 123456789, 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
