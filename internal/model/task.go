package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is one of the three allowed levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Field length limits for task fields. These match the column bounds in the
// tasks table and keep a single oversized field from filling TEXT columns
// with caller-controlled garbage.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 5000
	MaxTagLen         = 64
	MaxNoteLen        = 5000
	MaxSubtaskLen     = 500
)

// ReminderOffsets enumerates the accepted reminder_offset values: how long
// before the due date the reminder notification fires.
var ReminderOffsets = map[string]time.Duration{
	"1h": time.Hour,
	"1d": 24 * time.Hour,
	"3d": 3 * 24 * time.Hour,
	"5d": 5 * 24 * time.Hour,
	"1w": 7 * 24 * time.Hour,
}

// Task is a user-owned todo item.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	// Reminder fields. ReminderTime is derived from DueDate and
	// ReminderOffset at write time; the scheduler reads it directly.
	ReminderOffset           *string    `json:"reminder_offset,omitempty"`
	ReminderTime             *time.Time `json:"reminder_time,omitempty"`
	LastReminderSent         *time.Time `json:"last_reminder_sent,omitempty"`
	LastOverdueNotifiedAt    *time.Time `json:"last_overdue_notified_at,omitempty"`

	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TaskCreate carries the fields accepted when creating a task.
type TaskCreate struct {
	UserID         int64      `json:"-"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Priority       Priority   `json:"priority,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ReminderOffset *string    `json:"reminder_offset,omitempty"`
}

// Validate checks field bounds and enumerations on a create request.
// An empty Priority defaults to medium at the storage layer.
func (c TaskCreate) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(c.Title) > MaxTitleLen {
		return fmt.Errorf("title exceeds maximum length of %d characters", MaxTitleLen)
	}
	if c.Description != nil && len(*c.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds maximum length of %d characters", MaxDescriptionLen)
	}
	if c.Priority != "" && !ValidPriority(c.Priority) {
		return fmt.Errorf("priority must be one of low, medium, high")
	}
	for _, tag := range c.Tags {
		if tag == "" || len(tag) > MaxTagLen {
			return fmt.Errorf("tag must be 1-%d characters", MaxTagLen)
		}
	}
	if c.ReminderOffset != nil {
		if _, ok := ReminderOffsets[*c.ReminderOffset]; !ok {
			return fmt.Errorf("reminder_offset must be one of 1h, 1d, 3d, 5d, 1w")
		}
		if c.DueDate == nil {
			return fmt.Errorf("reminder_offset requires a due_date")
		}
	}
	return nil
}

// TaskPatch carries a partial update. Nil fields are left unchanged.
// ClearDueDate and ClearReminder distinguish "set to null" from "not present".
type TaskPatch struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Completed      *bool      `json:"completed,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ReminderOffset *string    `json:"reminder_offset,omitempty"`
	DisplayOrder   *int       `json:"display_order,omitempty"`
	ClearDueDate   bool       `json:"clear_due_date,omitempty"`
	ClearReminder  bool       `json:"clear_reminder,omitempty"`
}

// Validate checks field bounds and enumerations on a patch.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return fmt.Errorf("title must not be blank")
		}
		if len(*p.Title) > MaxTitleLen {
			return fmt.Errorf("title exceeds maximum length of %d characters", MaxTitleLen)
		}
	}
	if p.Description != nil && len(*p.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds maximum length of %d characters", MaxDescriptionLen)
	}
	if p.Priority != nil && !ValidPriority(*p.Priority) {
		return fmt.Errorf("priority must be one of low, medium, high")
	}
	if p.ReminderOffset != nil {
		if _, ok := ReminderOffsets[*p.ReminderOffset]; !ok {
			return fmt.Errorf("reminder_offset must be one of 1h, 1d, 3d, 5d, 1w")
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.Tags == nil && p.DueDate == nil &&
		p.ReminderOffset == nil && p.DisplayOrder == nil &&
		!p.ClearDueDate && !p.ClearReminder
}

// TaskFilter narrows a task listing. Nil/zero fields are ignored.
type TaskFilter struct {
	Completed *bool
	Priority  *Priority
	Tag       *string
	Search    string // case-insensitive substring match on title
	DueBefore *time.Time
	DueAfter  *time.Time
	Sort      string // created_at | due_date | priority | display_order
	SortDesc  bool
	Limit     int
	Offset    int
}

// Subtask is a checklist item nested under a task.
type Subtask struct {
	ID           int64     `json:"id"`
	TaskID       int64     `json:"task_id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Completed    bool      `json:"completed"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Note is a free-text note attached to a task.
type Note struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment records file metadata for a task. The bytes live elsewhere;
// only the URL and metadata are stored here.
type Attachment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Filename  string    `json:"filename"`
	FileURL   string    `json:"file_url"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityAction is the kind of mutation recorded in the activity log.
type ActivityAction string

const (
	ActivityCreated   ActivityAction = "created"
	ActivityUpdated   ActivityAction = "updated"
	ActivityCompleted ActivityAction = "completed"
	ActivityDeleted   ActivityAction = "deleted"
)

// ActivityEntry is one append-only activity log row for a task.
type ActivityEntry struct {
	ID         int64          `json:"id"`
	TaskID     int64          `json:"task_id"`
	UserID     int64          `json:"user_id"`
	Action     ActivityAction `json:"action"`
	Field      *string        `json:"field,omitempty"`
	OldValue   *string        `json:"old_value,omitempty"`
	NewValue   *string        `json:"new_value,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// PatchActivityEntries renders one activity entry per field a patch actually
// changed. The HTTP handlers and the agent's tool executor both record
// patches through this, so the trail reads the same whichever surface made
// the change.
func PatchActivityEntries(before, after Task, patch TaskPatch, now time.Time) []ActivityEntry {
	var entries []ActivityEntry

	add := func(field, oldV, newV string) {
		f := field
		o, n := oldV, newV
		entries = append(entries, ActivityEntry{
			TaskID:     after.ID,
			UserID:     after.UserID,
			Action:     ActivityUpdated,
			Field:      &f,
			OldValue:   &o,
			NewValue:   &n,
			OccurredAt: now,
		})
	}

	if patch.Title != nil && *patch.Title != before.Title {
		add("title", before.Title, *patch.Title)
	}
	if patch.Priority != nil && *patch.Priority != before.Priority {
		add("priority", string(before.Priority), string(*patch.Priority))
	}
	if patch.Completed != nil && *patch.Completed != before.Completed {
		action := ActivityUpdated
		if *patch.Completed {
			action = ActivityCompleted
		}
		entries = append(entries, ActivityEntry{
			TaskID:     after.ID,
			UserID:     after.UserID,
			Action:     action,
			OccurredAt: now,
		})
	}
	if patch.Description != nil {
		oldDesc := ""
		if before.Description != nil {
			oldDesc = *before.Description
		}
		if *patch.Description != oldDesc {
			add("description", oldDesc, *patch.Description)
		}
	}
	if patch.DueDate != nil || patch.ClearDueDate {
		oldDue, newDue := "", ""
		if before.DueDate != nil {
			oldDue = before.DueDate.Format(time.RFC3339)
		}
		if patch.DueDate != nil {
			newDue = patch.DueDate.Format(time.RFC3339)
		}
		if oldDue != newDue {
			add("due_date", oldDue, newDue)
		}
	}
	return entries
}
