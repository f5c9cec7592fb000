package agent_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tasuki-ai/tasuki/internal/llm"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// fakeTaskStore is an in-memory TaskStore for exercising the agent without
// a database.
type fakeTaskStore struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]model.Task

	failCreate error
	panicOnGet bool
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{nextID: 1, tasks: make(map[int64]model.Task)}
}

func (f *fakeTaskStore) seed(userID int64, title string, completed bool) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Task{
		ID:        f.nextID,
		UserID:    userID,
		Title:     title,
		Completed: completed,
		Priority:  model.PriorityMedium,
	}
	f.tasks[t.ID] = t
	f.nextID++
	return t
}

func (f *fakeTaskStore) CreateTask(_ context.Context, req model.TaskCreate) (model.Task, error) {
	if f.failCreate != nil {
		return model.Task{}, f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	t := model.Task{
		ID:          f.nextID,
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
	}
	f.tasks[t.ID] = t
	f.nextID++
	return t, nil
}

func (f *fakeTaskStore) GetTask(_ context.Context, id int64) (model.Task, error) {
	if f.panicOnGet {
		panic("store exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return model.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeTaskStore) ListTasks(_ context.Context, userID int64, filter model.TaskFilter) ([]model.Task, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (f *fakeTaskStore) PatchTask(_ context.Context, id int64, p model.TaskPatch) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return model.Task{}, storage.ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	f.tasks[id] = t
	return t, nil
}

func (f *fakeTaskStore) DeleteTask(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return false, nil
	}
	delete(f.tasks, id)
	return true, nil
}

// fakeNotificationStore records notification writes, channel announcements,
// and activity entries in order.
type fakeNotificationStore struct {
	mu        sync.Mutex
	created   []model.Notification
	announced []string
	activity  []model.ActivityEntry
	fail      error
}

func (f *fakeNotificationStore) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	if f.fail != nil {
		return model.Notification{}, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = int64(len(f.created) + 1)
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeNotificationStore) Notify(_ context.Context, _ string, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, payload)
	return nil
}

func (f *fakeNotificationStore) InsertActivity(_ context.Context, entries []model.ActivityEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, entries...)
	return nil
}

// scriptedProvider plays back a fixed sequence of completions, one per call.
type scriptedProvider struct {
	mu      sync.Mutex
	script  []scriptStep
	calls   int
	lastMsg []llm.Message
}

type scriptStep struct {
	completion llm.Completion
	err        error
}

func (p *scriptedProvider) Complete(_ context.Context, messages []llm.Message, _ []llm.Tool) (llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastMsg = messages
	if p.calls >= len(p.script) {
		return llm.Completion{}, fmt.Errorf("scripted provider exhausted after %d calls", p.calls)
	}
	step := p.script[p.calls]
	p.calls++
	return step.completion, step.err
}

func toolCallStep(name, id, args string) scriptStep {
	return scriptStep{completion: llm.Completion{
		ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: []byte(args)}},
	}}
}

func textStep(text string) scriptStep {
	return scriptStep{completion: llm.Completion{Text: text}}
}
