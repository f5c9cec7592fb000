package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// ResolutionKind classifies the outcome of resolving a task reference.
type ResolutionKind int

const (
	// ResolutionResolved means exactly one task matched.
	ResolutionResolved ResolutionKind = iota
	// ResolutionAmbiguous means more than one task matched the title.
	ResolutionAmbiguous
	// ResolutionNotFound covers both a genuinely missing task and one owned
	// by another user; the two are indistinguishable to the caller so task
	// existence is not leaked across accounts.
	ResolutionNotFound
	// ResolutionMissingIdentifier means neither task_id nor task_title
	// was supplied.
	ResolutionMissingIdentifier
)

// Candidate is one (id, title) pair offered back to the user when a title
// matches several tasks.
type Candidate struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Resolution is the outcome of resolving a task reference.
type Resolution struct {
	Kind       ResolutionKind
	Task       model.Task
	Candidates []Candidate
}

// Resolver turns a task_id or task_title reference into a concrete task
// owned by the session user.
type Resolver struct {
	tasks TaskStore
}

// NewResolver creates a Resolver over the given store.
func NewResolver(tasks TaskStore) *Resolver {
	return &Resolver{tasks: tasks}
}

// Resolve finds the task identified by taskID or title for the given user.
// pendingOnly restricts the title search to incomplete tasks; completing a
// task by name must not silently re-match an already-completed one.
func (r *Resolver) Resolve(ctx context.Context, userID int64, taskID *int64, title string, pendingOnly bool) (Resolution, error) {
	switch {
	case taskID != nil:
		task, err := r.tasks.GetTask(ctx, *taskID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return Resolution{Kind: ResolutionNotFound}, nil
			}
			return Resolution{}, fmt.Errorf("agent: resolve by id: %w", err)
		}
		// A task owned by someone else reads as not found.
		if task.UserID != userID {
			return Resolution{Kind: ResolutionNotFound}, nil
		}
		return Resolution{Kind: ResolutionResolved, Task: task}, nil

	case title != "":
		filter := model.TaskFilter{Search: title, Limit: 100}
		if pendingOnly {
			pending := false
			filter.Completed = &pending
		}
		tasks, _, err := r.tasks.ListTasks(ctx, userID, filter)
		if err != nil {
			return Resolution{}, fmt.Errorf("agent: resolve by title: %w", err)
		}
		return resolveByTitle(tasks, title), nil

	default:
		return Resolution{Kind: ResolutionMissingIdentifier}, nil
	}
}

// resolveByTitle applies two-pass matching over candidate tasks: exact
// case-insensitive equality first, then substring containment only when no
// exact match exists. An exact hit always wins even when substring matches
// would also exist.
func resolveByTitle(tasks []model.Task, title string) Resolution {
	needle := strings.ToLower(title)

	var matches []model.Task
	for _, t := range tasks {
		if strings.ToLower(t.Title) == needle {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		for _, t := range tasks {
			if strings.Contains(strings.ToLower(t.Title), needle) {
				matches = append(matches, t)
			}
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{Kind: ResolutionNotFound}
	case 1:
		return Resolution{Kind: ResolutionResolved, Task: matches[0]}
	default:
		candidates := make([]Candidate, 0, len(matches))
		for _, t := range matches {
			candidates = append(candidates, Candidate{ID: t.ID, Title: t.Title})
		}
		return Resolution{Kind: ResolutionAmbiguous, Candidates: candidates}
	}
}

// ambiguousMessage renders candidates as a numbered list the user can
// disambiguate from by id. This is the only place raw task ids are shown
// to the end user.
func ambiguousMessage(title string, candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found multiple tasks matching %q:\n", title)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [%d] %s\n", i+1, c.ID, c.Title)
	}
	b.WriteString("\nPlease use the task ID.")
	return b.String()
}
