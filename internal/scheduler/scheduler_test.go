package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/testutil"
)

type fakeStore struct {
	due     []model.Task
	overdue []model.Task

	created        []model.Notification
	reminderMarks  []int64
	overdueMarks   []int64
	notifyPayloads []string

	failCreate bool
}

func (f *fakeStore) DueReminders(_ context.Context, _, _ time.Time, _ int) ([]model.Task, error) {
	return f.due, nil
}

func (f *fakeStore) OverdueTasks(_ context.Context, _, _ time.Time, _ int) ([]model.Task, error) {
	return f.overdue, nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, taskID int64, _ time.Time) error {
	f.reminderMarks = append(f.reminderMarks, taskID)
	return nil
}

func (f *fakeStore) MarkOverdueNotified(_ context.Context, taskID int64, _ time.Time) error {
	f.overdueMarks = append(f.overdueMarks, taskID)
	return nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	if f.failCreate {
		return model.Notification{}, assert.AnError
	}
	n.ID = int64(len(f.created) + 1)
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeStore) Notify(_ context.Context, _, payload string) error {
	f.notifyPayloads = append(f.notifyPayloads, payload)
	return nil
}

func task(id, userID int64, title string, due *time.Time) model.Task {
	return model.Task{ID: id, UserID: userID, Title: title, DueDate: due}
}

func TestSweepDeliversReminders(t *testing.T) {
	dueDate := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{
		due: []model.Task{task(1, 7, "File taxes", &dueDate)},
	}
	s := New(store, testutil.TestLogger(), time.Minute, 24*time.Hour)

	s.Sweep(context.Background(), time.Now())

	require.Len(t, store.created, 1)
	n := store.created[0]
	assert.Equal(t, int64(7), n.UserID)
	assert.Equal(t, int64(1), n.TaskID)
	assert.Equal(t, model.NotificationReminder, n.Type)
	assert.Equal(t, `Task "File taxes" is due Mar 14, 2026`, n.Message)
	assert.Equal(t, []int64{1}, store.reminderMarks)
	require.Len(t, store.notifyPayloads, 1)
	assert.Contains(t, store.notifyPayloads[0], `"type":"reminder"`)
}

func TestSweepDeliversOverdueNotices(t *testing.T) {
	dueDate := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		overdue: []model.Task{task(4, 9, "Renew passport", &dueDate)},
	}
	s := New(store, testutil.TestLogger(), time.Minute, 24*time.Hour)

	s.Sweep(context.Background(), time.Now())

	require.Len(t, store.created, 1)
	n := store.created[0]
	assert.Equal(t, model.NotificationOverdue, n.Type)
	assert.Equal(t, `Task "Renew passport" was due Jan 2, 2026`, n.Message)
	assert.Equal(t, []int64{4}, store.overdueMarks)
}

func TestSweepSkipsMarkWhenDeliveryFails(t *testing.T) {
	store := &fakeStore{
		due:        []model.Task{task(2, 5, "Water plants", nil)},
		failCreate: true,
	}
	s := New(store, testutil.TestLogger(), time.Minute, 24*time.Hour)

	s.Sweep(context.Background(), time.Now())

	assert.Empty(t, store.created)
	assert.Empty(t, store.reminderMarks, "failed delivery must stay eligible for the next sweep")
}

func TestReminderNotificationWithoutDueDate(t *testing.T) {
	n := reminderNotification(task(3, 1, "Call dentist", nil))
	assert.Equal(t, `Task "Call dentist" is due soon`, n.Message)
	assert.Equal(t, "Reminder", n.Title)
}

func TestStartStop(t *testing.T) {
	store := &fakeStore{}
	s := New(store, testutil.TestLogger(), 10*time.Millisecond, time.Hour)

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
