package mcp

import (
	"fmt"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const maxCompactDescription = 200

// compactTask returns a minimal representation of a task for MCP responses.
// Drops internal bookkeeping (display_order, reminder stamps, updated_at)
// that agents don't act on.
func compactTask(t model.Task) map[string]any {
	m := map[string]any{
		"id":         t.ID,
		"title":      t.Title,
		"priority":   t.Priority,
		"completed":  t.Completed,
		"created_at": t.CreatedAt,
	}
	if t.Description != nil && *t.Description != "" {
		m["description"] = truncate(*t.Description, maxCompactDescription)
	}
	if len(t.Tags) > 0 {
		m["tags"] = t.Tags
	}
	if t.DueDate != nil {
		m["due_date"] = t.DueDate
	}
	if note := dueNote(t, time.Now()); note != "" {
		m["due_note"] = note
	}
	return m
}

// dueNote produces a human-readable urgency note for a task. Returns "" when
// the task is completed or has no due date.
func dueNote(t model.Task, now time.Time) string {
	if t.Completed || t.DueDate == nil {
		return ""
	}
	remaining := t.DueDate.Sub(now)
	switch {
	case remaining < 0:
		days := int(-remaining.Hours() / 24)
		if days < 1 {
			return "Overdue since today."
		}
		return fmt.Sprintf("Overdue by %d day(s).", days)
	case remaining < 24*time.Hour:
		return "Due within 24 hours."
	case remaining < 3*24*time.Hour:
		return fmt.Sprintf("Due in %d day(s).", int(remaining.Hours()/24))
	}
	return ""
}

// truncate clips s to max runes, appending an ellipsis when clipped.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
