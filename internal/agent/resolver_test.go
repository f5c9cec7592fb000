package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/agent"
)

func TestResolve_ByID(t *testing.T) {
	ctx := context.Background()
	store := newFakeTaskStore()
	mine := store.seed(1, "Call my father", false)
	theirs := store.seed(2, "Their task", false)

	r := agent.NewResolver(store)

	t.Run("own task resolves", func(t *testing.T) {
		res, err := r.Resolve(ctx, 1, &mine.ID, "", false)
		require.NoError(t, err)
		assert.Equal(t, agent.ResolutionResolved, res.Kind)
		assert.Equal(t, mine.ID, res.Task.ID)
	})

	t.Run("someone else's task reads as not found", func(t *testing.T) {
		res, err := r.Resolve(ctx, 1, &theirs.ID, "", false)
		require.NoError(t, err)
		assert.Equal(t, agent.ResolutionNotFound, res.Kind)
	})

	t.Run("missing task is not found", func(t *testing.T) {
		missing := int64(9999)
		res, err := r.Resolve(ctx, 1, &missing, "", false)
		require.NoError(t, err)
		assert.Equal(t, agent.ResolutionNotFound, res.Kind)
	})
}

func TestResolve_ExactMatchBeatsSubstring(t *testing.T) {
	// "Buy milk" and "Buy milk today" both contain the query, but the exact
	// match wins outright, so there is no ambiguity.
	ctx := context.Background()
	store := newFakeTaskStore()
	exact := store.seed(1, "Buy milk", false)
	store.seed(1, "Buy milk today", false)

	r := agent.NewResolver(store)
	res, err := r.Resolve(ctx, 1, nil, "Buy milk", false)
	require.NoError(t, err)
	assert.Equal(t, agent.ResolutionResolved, res.Kind)
	assert.Equal(t, exact.ID, res.Task.ID)
}

func TestResolve_CaseInsensitiveExact(t *testing.T) {
	ctx := context.Background()
	store := newFakeTaskStore()
	task := store.seed(1, "Call my father", false)

	r := agent.NewResolver(store)
	res, err := r.Resolve(ctx, 1, nil, "call MY father", false)
	require.NoError(t, err)
	assert.Equal(t, agent.ResolutionResolved, res.Kind)
	assert.Equal(t, task.ID, res.Task.ID)
}

func TestResolve_SubstringFallback(t *testing.T) {
	ctx := context.Background()
	store := newFakeTaskStore()
	task := store.seed(1, "Call my father tonight", false)

	r := agent.NewResolver(store)
	res, err := r.Resolve(ctx, 1, nil, "father", false)
	require.NoError(t, err)
	assert.Equal(t, agent.ResolutionResolved, res.Kind)
	assert.Equal(t, task.ID, res.Task.ID)
}

func TestResolve_AmbiguousSubstring(t *testing.T) {
	ctx := context.Background()
	store := newFakeTaskStore()
	store.seed(1, "Call my father", false)
	store.seed(1, "Email my father", false)

	r := agent.NewResolver(store)
	res, err := r.Resolve(ctx, 1, nil, "father", false)
	require.NoError(t, err)
	assert.Equal(t, agent.ResolutionAmbiguous, res.Kind)
	require.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		assert.NotZero(t, c.ID)
		assert.NotEmpty(t, c.Title)
	}
}

func TestResolve_PendingOnlySkipsCompleted(t *testing.T) {
	ctx := context.Background()
	store := newFakeTaskStore()
	store.seed(1, "Water plants", true)
	pending := store.seed(1, "Water plants again", false)

	r := agent.NewResolver(store)

	// With pendingOnly the completed task never enters matching, so the
	// substring hit on the pending task resolves cleanly.
	res, err := r.Resolve(ctx, 1, nil, "Water plants", true)
	require.NoError(t, err)
	assert.Equal(t, agent.ResolutionResolved, res.Kind)
	assert.Equal(t, pending.ID, res.Task.ID)
}

func TestResolve_NotFoundAndMissingIdentifier(t *testing.T) {
	ctx := context.Background()
	store := newFakeTaskStore()
	r := agent.NewResolver(store)

	res, err := r.Resolve(ctx, 1, nil, "nothing like this", false)
	require.NoError(t, err)
	assert.Equal(t, agent.ResolutionNotFound, res.Kind)

	res, err = r.Resolve(ctx, 1, nil, "", false)
	require.NoError(t, err)
	assert.Equal(t, agent.ResolutionMissingIdentifier, res.Kind)
}
