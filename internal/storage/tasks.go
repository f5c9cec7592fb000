package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const taskColumns = `id, user_id, title, description, completed, priority, tags,
	 due_date, reminder_offset, reminder_time, last_reminder_sent,
	 last_overdue_notified_at, display_order, created_at, updated_at`

// CreateTask inserts a new task and returns it. Priority defaults to medium
// when unset; reminder_time is derived from due_date and reminder_offset.
func (db *DB) CreateTask(ctx context.Context, req model.TaskCreate) (model.Task, error) {
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	reminderTime := computeReminderTime(req.DueDate, req.ReminderOffset)

	var task model.Task
	err := db.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, priority, tags, due_date, reminder_offset, reminder_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+taskColumns,
		req.UserID, req.Title, req.Description, string(priority), tags,
		req.DueDate, req.ReminderOffset, reminderTime,
	).Scan(taskFields(&task)...)
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: create task: %w", err)
	}
	return task, nil
}

// GetTask retrieves a task by id regardless of owner. Callers enforce
// ownership; the resolver needs the true owner to distinguish a missing task
// from someone else's.
func (db *DB) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := db.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
	).Scan(taskFields(&task)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("storage: get task: %w", err)
	}
	return task, nil
}

// ListTasks returns the user's tasks matching the filter plus the unpaginated
// total. Limit defaults to 50 when unset.
func (db *DB) ListTasks(ctx context.Context, userID int64, f model.TaskFilter) ([]model.Task, int, error) {
	where, args := buildTaskWhereClause(userID, f)

	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT count(*) FROM tasks `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count tasks: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where +
		` ORDER BY ` + taskOrderClause(f) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// PatchTask applies a partial update and returns the updated task.
// Returns ErrNotFound if the task does not exist.
func (db *DB) PatchTask(ctx context.Context, id int64, p model.TaskPatch) (model.Task, error) {
	sets, args := buildTaskPatchClause(p)
	if len(sets) == 0 {
		return db.GetTask(ctx, id)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	var task model.Task
	err := db.pool.QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+
			fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args))+taskColumns,
		args...,
	).Scan(taskFields(&task)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("storage: patch task: %w", err)
	}
	return task, nil
}

// DeleteTask removes a task and its dependent rows (subtasks, notes,
// attachments cascade via FK). Returns false if no row was deleted.
func (db *DB) DeleteTask(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("storage: delete task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DueReminders returns tasks whose reminder_time has passed, that are not
// completed, and that have not had a reminder sent since the cutoff.
func (db *DB) DueReminders(ctx context.Context, now time.Time, cutoff time.Time, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE completed = false
		   AND reminder_time IS NOT NULL AND reminder_time <= $1
		   AND (last_reminder_sent IS NULL OR last_reminder_sent < $2)
		 ORDER BY reminder_time ASC
		 LIMIT $3`, now, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: due reminders: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// OverdueTasks returns incomplete tasks past their due date that have not had
// an overdue notification since the cutoff.
func (db *DB) OverdueTasks(ctx context.Context, now time.Time, cutoff time.Time, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE completed = false
		   AND due_date IS NOT NULL AND due_date <= $1
		   AND (last_overdue_notified_at IS NULL OR last_overdue_notified_at < $2)
		 ORDER BY due_date ASC
		 LIMIT $3`, now, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: overdue tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// MarkReminderSent stamps last_reminder_sent on a task.
func (db *DB) MarkReminderSent(ctx context.Context, taskID int64, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE tasks SET last_reminder_sent = $1 WHERE id = $2`, at, taskID)
	if err != nil {
		return fmt.Errorf("storage: mark reminder sent: %w", err)
	}
	return nil
}

// MarkOverdueNotified stamps last_overdue_notified_at on a task.
func (db *DB) MarkOverdueNotified(ctx context.Context, taskID int64, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE tasks SET last_overdue_notified_at = $1 WHERE id = $2`, at, taskID)
	if err != nil {
		return fmt.Errorf("storage: mark overdue notified: %w", err)
	}
	return nil
}

// buildTaskWhereClause assembles the WHERE clause and positional args for a
// filtered task listing. Extracted for unit testing.
func buildTaskWhereClause(userID int64, f model.TaskFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	if f.Completed != nil {
		args = append(args, *f.Completed)
		conds = append(conds, fmt.Sprintf("completed = $%d", len(args)))
	}
	if f.Priority != nil {
		args = append(args, string(*f.Priority))
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if f.Tag != nil {
		args = append(args, *f.Tag)
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if f.DueAfter != nil {
		args = append(args, *f.DueAfter)
		conds = append(conds, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if f.DueBefore != nil {
		args = append(args, *f.DueBefore)
		conds = append(conds, fmt.Sprintf("due_date <= $%d", len(args)))
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// taskOrderClause maps a filter's sort field to a safe ORDER BY expression.
// Unknown fields fall back to created_at. Never interpolates caller input.
func taskOrderClause(f model.TaskFilter) string {
	col := "created_at"
	switch f.Sort {
	case "due_date":
		col = "due_date"
	case "priority":
		// High first when descending; array position gives a stable enum order.
		col = "array_position(ARRAY['low','medium','high'], priority)"
	case "display_order":
		col = "display_order"
	case "", "created_at":
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	return col + " " + dir + ", id " + dir
}

// buildTaskPatchClause assembles SET fragments and args for PatchTask.
func buildTaskPatchClause(p model.TaskPatch) ([]string, []any) {
	var sets []string
	var args []any

	add := func(expr string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if p.Title != nil {
		add("title = $%d", *p.Title)
	}
	if p.Description != nil {
		add("description = $%d", *p.Description)
	}
	if p.Completed != nil {
		add("completed = $%d", *p.Completed)
	}
	if p.Priority != nil {
		add("priority = $%d", string(*p.Priority))
	}
	if p.Tags != nil {
		add("tags = $%d", p.Tags)
	}
	if p.ClearDueDate {
		sets = append(sets, "due_date = NULL", "reminder_offset = NULL", "reminder_time = NULL")
	} else if p.DueDate != nil {
		add("due_date = $%d", *p.DueDate)
	}
	if p.ClearReminder {
		sets = append(sets, "reminder_offset = NULL", "reminder_time = NULL")
	} else if p.ReminderOffset != nil {
		add("reminder_offset = $%d", *p.ReminderOffset)
	}
	if p.DisplayOrder != nil {
		add("display_order = $%d", *p.DisplayOrder)
	}

	// Recompute reminder_time in SQL whenever due date or offset moved.
	if !p.ClearDueDate && !p.ClearReminder && (p.DueDate != nil || p.ReminderOffset != nil) {
		sets = append(sets, reminderTimeExpr)
	}

	return sets, args
}

// reminderTimeExpr recomputes reminder_time from the row's (possibly just
// updated) due_date and reminder_offset.
const reminderTimeExpr = `reminder_time = CASE reminder_offset
	WHEN '1h' THEN due_date - interval '1 hour'
	WHEN '1d' THEN due_date - interval '1 day'
	WHEN '3d' THEN due_date - interval '3 days'
	WHEN '5d' THEN due_date - interval '5 days'
	WHEN '1w' THEN due_date - interval '7 days'
	ELSE NULL END`

// computeReminderTime derives the reminder fire time for inserts.
func computeReminderTime(due *time.Time, offset *string) *time.Time {
	if due == nil || offset == nil {
		return nil
	}
	d, ok := model.ReminderOffsets[*offset]
	if !ok {
		return nil
	}
	t := due.Add(-d)
	return &t
}

// escapeLike escapes LIKE/ILIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func taskFields(t *model.Task) []any {
	return []any{
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.Priority,
		&t.Tags, &t.DueDate, &t.ReminderOffset, &t.ReminderTime,
		&t.LastReminderSent, &t.LastOverdueNotifiedAt, &t.DisplayOrder,
		&t.CreatedAt, &t.UpdatedAt,
	}
}

func scanTasks(rows pgx.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(taskFields(&t)...); err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
