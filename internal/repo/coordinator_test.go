package repo

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitagen/gitagen/internal/cache"
	"github.com/gitagen/gitagen/internal/events"
	"github.com/gitagen/gitagen/internal/git"
)

var errMergeConflict = errors.New("CONFLICT (content): Merge conflict in a.go")

// recorder captures the order of deletes and events.
type recorder struct {
	mu      sync.Mutex
	log     []string
	failDel error
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, s)
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.log)
}

func (r *recorder) DeleteAllForProject(_ context.Context, projectID string) error {
	r.add("delete:" + projectID)
	return r.failDel
}

func newTestCoordinator(p Provider, inv Invalidator, rec *recorder) *Coordinator {
	bus := events.New()
	bus.Subscribe(func(e events.Event) { rec.add("event:" + string(e.Type())) })
	return NewCoordinator(p, resolver{"p1": "/r"}, inv, bus)
}

func TestRunMutation_DeleteBeforeEvent(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := newTestCoordinator(newFakeProvider(), rec, rec)

	got, err := RunMutation(context.Background(), c, "p1", func(_ context.Context, _ Provider, cwd string) (string, error) {
		rec.add("action:" + cwd)
		return "done", nil
	}, MutationOptions{})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, []string{"action:/r", "delete:p1", "event:repoUpdated"}, rec.entries())
}

func TestRunMutation_ListenerSeesNoStaleRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := cache.OpenInMemory(ctx)
	require.NoError(t, err)
	defer store.Close()
	_ = store.SetRepo(ctx, "p1", "k", false, cache.RepoEntry{StatusData: json.RawMessage(`{}`)})

	bus := events.New()
	var stale, notified bool
	bus.Subscribe(func(e events.Event) {
		notified = true
		_, stale = store.GetRepo(ctx, e.Project(), "k", false)
	}, events.TypeRepoUpdated)

	c := NewCoordinator(newFakeProvider(), resolver{"p1": "/r"}, store, bus)
	require.NoError(t, c.Stage(ctx, "p1"))
	require.True(t, notified, "RepoUpdated was not published")
	assert.False(t, stale, "listener read a cache row that should have been deleted")
}

func TestRunMutation_ActionError(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	bus := events.New()
	var gotErr error
	bus.Subscribe(func(e events.Event) {
		rec.add("event:" + string(e.Type()))
		if re, ok := e.(events.RepoError); ok {
			gotErr = re.Err
		}
	})
	c := NewCoordinator(newFakeProvider(), resolver{"p1": "/r"}, rec, bus)

	boom := errors.New("fatal: bad revision")
	_, err := RunMutation(context.Background(), c, "p1", func(context.Context, Provider, string) (int, error) {
		return 0, boom
	}, MutationOptions{})
	assert.Same(t, boom, err, "action error must come back unchanged")
	assert.Same(t, boom, gotErr, "RepoError must carry the action error")
	assert.Equal(t, []string{"event:repoError"}, rec.entries(), "no delete on failure")
}

func TestRunMutation_ProjectNotFound(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := newTestCoordinator(newFakeProvider(), rec, rec)

	called := false
	_, err := RunMutation(context.Background(), c, "ghost", func(context.Context, Provider, string) (int, error) {
		called = true
		return 0, nil
	}, MutationOptions{})
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.False(t, called, "action must not run for an unknown project")
	assert.Empty(t, rec.entries())
}

func TestRunMutation_DeleteFailureStillPublishes(t *testing.T) {
	t.Parallel()

	rec := &recorder{failDel: errors.New("disk full")}
	c := newTestCoordinator(newFakeProvider(), rec, rec)

	require.NoError(t, c.Stage(context.Background(), "p1"), "invalidation failure must not fail the mutation")
	assert.Equal(t, []string{"delete:p1", "event:repoUpdated"}, rec.entries())
}

func TestRunMutation_Conflicts(t *testing.T) {
	t.Parallel()

	t.Run("after failed merge", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		p.conflicts = []string{"a.go"}
		rec := &recorder{}

		bus := events.New()
		var state git.ConflictState
		bus.Subscribe(func(e events.Event) {
			rec.add("event:" + string(e.Type()))
			if cd, ok := e.(events.ConflictDetected); ok {
				state = cd.State
			}
		})
		c := NewCoordinator(p, resolver{"p1": "/r"}, rec, bus)

		require.ErrorIs(t, c.Merge(context.Background(), "p1", "other"), errMergeConflict)
		assert.Equal(t, []string{"event:conflictDetected", "event:repoError"}, rec.entries())
		assert.Equal(t, git.ConflictRebase, state.Type)
		assert.Equal(t, []string{"a.go"}, state.ConflictFiles)
	})

	t.Run("conflict check failure is swallowed", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		p.conflictErr = errors.New("not a git repository")
		rec := &recorder{}
		c := newTestCoordinator(p, rec, rec)

		require.NoError(t, c.Merge(context.Background(), "p1", "other"))
		assert.Equal(t, []string{"delete:p1", "event:repoUpdated"}, rec.entries())
		assert.Equal(t, 1, p.count("ConflictFiles"), "merges should check for conflicts")
	})

	t.Run("not checked when not requested", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		rec := &recorder{}
		c := newTestCoordinator(p, rec, rec)

		require.NoError(t, c.Stage(context.Background(), "p1", "a.go"))
		assert.Zero(t, p.count("ConflictFiles"), "stage should not check for conflicts")
	})
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := newTestCoordinator(newFakeProvider(), rec, rec)
	c.Invalidate(context.Background(), "p1")

	assert.Equal(t, []string{"delete:p1", "event:repoUpdated"}, rec.entries())
}
