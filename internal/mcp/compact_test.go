package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tasuki-ai/tasuki/internal/model"
)

func TestCompactTaskDropsBookkeeping(t *testing.T) {
	desc := "short description"
	due := time.Now().Add(48 * time.Hour)
	task := model.Task{
		ID:           9,
		UserID:       1,
		Title:        "Write report",
		Description:  &desc,
		Priority:     model.PriorityHigh,
		Tags:         []string{"work"},
		DueDate:      &due,
		DisplayOrder: 3,
	}

	m := compactTask(task)

	assert.Equal(t, int64(9), m["id"])
	assert.Equal(t, "Write report", m["title"])
	assert.Equal(t, desc, m["description"])
	assert.NotContains(t, m, "display_order")
	assert.NotContains(t, m, "user_id")
	assert.NotContains(t, m, "updated_at")
}

func TestCompactTaskOmitsEmptyFields(t *testing.T) {
	m := compactTask(model.Task{ID: 1, Title: "Bare"})

	assert.NotContains(t, m, "description")
	assert.NotContains(t, m, "tags")
	assert.NotContains(t, m, "due_date")
	assert.NotContains(t, m, "due_note")
}

func TestDueNote(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	tests := []struct {
		name string
		task model.Task
		want string
	}{
		{"no due date", model.Task{}, ""},
		{"completed", model.Task{Completed: true, DueDate: at(-72 * time.Hour)}, ""},
		{"overdue days", model.Task{DueDate: at(-72 * time.Hour)}, "Overdue by 3 day(s)."},
		{"overdue today", model.Task{DueDate: at(-2 * time.Hour)}, "Overdue since today."},
		{"due soon", model.Task{DueDate: at(6 * time.Hour)}, "Due within 24 hours."},
		{"due in days", model.Task{DueDate: at(50 * time.Hour)}, "Due in 2 day(s)."},
		{"far out", model.Task{DueDate: at(30 * 24 * time.Hour)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dueNote(tt.task, now))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("a", 250)
	got := truncate(long, 200)
	assert.Equal(t, 201, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
