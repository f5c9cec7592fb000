// Package scheduler sweeps tasks with due reminders and overdue due dates,
// writing a notification row for each and announcing it on the Postgres
// notification channel so connected SSE clients pick it up immediately.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

const sweepBatchSize = 500

// Store is the storage surface the scheduler needs.
type Store interface {
	DueReminders(ctx context.Context, now, cutoff time.Time, limit int) ([]model.Task, error)
	OverdueTasks(ctx context.Context, now, cutoff time.Time, limit int) ([]model.Task, error)
	MarkReminderSent(ctx context.Context, taskID int64, at time.Time) error
	MarkOverdueNotified(ctx context.Context, taskID int64, at time.Time) error
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	Notify(ctx context.Context, channel, payload string) error
}

// Scheduler periodically scans for reminder and overdue work.
type Scheduler struct {
	store    Store
	logger   *slog.Logger
	interval time.Duration
	cooldown time.Duration
	done     chan struct{}
	cancel   context.CancelFunc
}

// New creates a scheduler. interval controls how often the sweep runs;
// cooldown is the minimum gap between repeat notifications for the same task.
func New(store Store, logger *slog.Logger, interval, cooldown time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	return &Scheduler{
		store:    store,
		logger:   logger,
		interval: interval,
		cooldown: cooldown,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (s *Scheduler) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(loopCtx)
}

// Stop signals the loop to exit and blocks until it has.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn("scheduler: stop timed out")
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Sweep runs one pass over due reminders and overdue tasks. Exported so a
// deployment can trigger it on demand.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cooldown)

	due, err := s.store.DueReminders(ctx, now, cutoff, sweepBatchSize)
	if err != nil {
		s.logger.Error("scheduler: fetch due reminders", "error", err)
	}
	for _, task := range due {
		if err := s.deliver(ctx, reminderNotification(task)); err != nil {
			s.logger.Error("scheduler: deliver reminder", "task_id", task.ID, "error", err)
			continue
		}
		if err := s.store.MarkReminderSent(ctx, task.ID, now); err != nil {
			s.logger.Error("scheduler: mark reminder sent", "task_id", task.ID, "error", err)
		}
	}

	overdue, err := s.store.OverdueTasks(ctx, now, cutoff, sweepBatchSize)
	if err != nil {
		s.logger.Error("scheduler: fetch overdue tasks", "error", err)
	}
	for _, task := range overdue {
		if err := s.deliver(ctx, overdueNotification(task)); err != nil {
			s.logger.Error("scheduler: deliver overdue notice", "task_id", task.ID, "error", err)
			continue
		}
		if err := s.store.MarkOverdueNotified(ctx, task.ID, now); err != nil {
			s.logger.Error("scheduler: mark overdue notified", "task_id", task.ID, "error", err)
		}
	}
}

func (s *Scheduler) deliver(ctx context.Context, n model.Notification) error {
	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"id":      created.ID,
		"user_id": created.UserID,
		"task_id": created.TaskID,
		"type":    created.Type,
	})
	if err != nil {
		return err
	}
	// Announcement is best effort; the row is already persisted.
	if err := s.store.Notify(ctx, storage.ChannelNotifications, string(payload)); err != nil {
		s.logger.Warn("scheduler: notify channel", "notification_id", created.ID, "error", err)
	}
	return nil
}

func reminderNotification(task model.Task) model.Notification {
	msg := fmt.Sprintf("Task %q is due soon", task.Title)
	if task.DueDate != nil {
		msg = fmt.Sprintf("Task %q is due %s", task.Title, task.DueDate.Format("Jan 2, 2006"))
	}
	return model.Notification{
		UserID:  task.UserID,
		TaskID:  task.ID,
		Type:    model.NotificationReminder,
		Title:   "Reminder",
		Message: msg,
	}
}

func overdueNotification(task model.Task) model.Notification {
	msg := fmt.Sprintf("Task %q is overdue", task.Title)
	if task.DueDate != nil {
		msg = fmt.Sprintf("Task %q was due %s", task.Title, task.DueDate.Format("Jan 2, 2006"))
	}
	return model.Notification{
		UserID:  task.UserID,
		TaskID:  task.ID,
		Type:    model.NotificationOverdue,
		Title:   "Overdue",
		Message: msg,
	}
}
