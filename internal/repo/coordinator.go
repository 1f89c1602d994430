package repo

import (
	"context"
	"time"

	"github.com/gitagen/gitagen/internal/events"
	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
)

// Invalidator drops every cached entry of a project.
type Invalidator interface {
	DeleteAllForProject(ctx context.Context, projectID string) error
}

// MutationOptions tunes RunMutation.
type MutationOptions struct {
	// EmitConflicts checks for unresolved conflicts after the action.
	EmitConflicts bool
}

// Action is a mutating git operation run in the project's cwd.
type Action[T any] func(ctx context.Context, p Provider, cwd string) (T, error)

// Coordinator runs mutations and keeps the cache consistent with them.
type Coordinator struct {
	provider Provider
	projects ProjectResolver
	store    Invalidator
	bus      *events.Bus
	now      func() time.Time
}

// NewCoordinator creates a coordinator publishing to bus.
func NewCoordinator(provider Provider, projects ProjectResolver, store Invalidator, bus *events.Bus) *Coordinator {
	return &Coordinator{
		provider: provider,
		projects: projects,
		store:    store,
		bus:      bus,
		now:      time.Now,
	}
}

// RunMutation runs action for the project. On success the project's cache
// is deleted before RepoUpdated is published. On failure RepoError is
// published and the action's error is returned unchanged.
func RunMutation[T any](ctx context.Context, c *Coordinator, projectID string, action Action[T], opts MutationOptions) (T, error) {
	var zero T

	cwd, err := resolveCwd(ctx, c.projects, projectID)
	if err != nil {
		return zero, err
	}

	result, err := action(ctx, c.provider, cwd)
	if err != nil {
		if opts.EmitConflicts {
			// a conflicting merge, rebase or cherry-pick exits non-zero
			c.checkConflicts(ctx, projectID, cwd)
		}
		log.FromContext(ctx).Debug("mutation failed", "project", projectID, "err", err)
		c.bus.Publish(events.RepoError{ProjectID: projectID, Err: err})
		return zero, err
	}

	c.Invalidate(ctx, projectID)

	if opts.EmitConflicts {
		c.checkConflicts(ctx, projectID, cwd)
	}
	return result, nil
}

// Invalidate deletes the project's cache and then publishes RepoUpdated.
// The event is published even if the delete failed.
func (c *Coordinator) Invalidate(ctx context.Context, projectID string) {
	if err := c.store.DeleteAllForProject(ctx, projectID); err != nil {
		log.FromContext(ctx).Warn("cache invalidation failed", "project", projectID, "err", err)
	}
	c.bus.Publish(events.RepoUpdated{ProjectID: projectID, UpdatedAt: c.now()})
}

func (c *Coordinator) checkConflicts(ctx context.Context, projectID, cwd string) {
	files, err := c.provider.ConflictFiles(ctx, cwd)
	if err != nil {
		log.FromContext(ctx).Warn("conflict check failed", "project", projectID, "err", err)
		return
	}
	if len(files) == 0 {
		return
	}

	typ, err := c.provider.ConflictType(ctx, cwd)
	if err != nil {
		log.FromContext(ctx).Warn("conflict type check failed", "project", projectID, "err", err)
		typ = git.ConflictMerge
	}
	c.bus.Publish(events.ConflictDetected{
		ProjectID: projectID,
		State:     git.ConflictState{Type: typ, ConflictFiles: files},
	})
}

// run is RunMutation for actions without a result.
func (c *Coordinator) run(ctx context.Context, projectID string, emitConflicts bool, fn func(ctx context.Context, p Provider, cwd string) error) error {
	_, err := RunMutation(ctx, c, projectID, func(ctx context.Context, p Provider, cwd string) (struct{}, error) {
		return struct{}{}, fn(ctx, p, cwd)
	}, MutationOptions{EmitConflicts: emitConflicts})
	return err
}

// Stage adds paths (all changes when empty) to the index.
func (c *Coordinator) Stage(ctx context.Context, projectID string, paths ...string) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.Stage(ctx, cwd, paths...)
	})
}

// Unstage removes paths (everything when empty) from the index.
func (c *Coordinator) Unstage(ctx context.Context, projectID string, paths ...string) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.Unstage(ctx, cwd, paths...)
	})
}

// Discard reverts unstaged changes.
func (c *Coordinator) Discard(ctx context.Context, projectID string, paths ...string) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.Discard(ctx, cwd, paths...)
	})
}

// Commit records the index and returns the new HEAD.
func (c *Coordinator) Commit(ctx context.Context, projectID, message string, amend bool) (string, error) {
	return RunMutation(ctx, c, projectID, func(ctx context.Context, p Provider, cwd string) (string, error) {
		return p.Commit(ctx, cwd, message, amend)
	}, MutationOptions{})
}

// Checkout switches to ref.
func (c *Coordinator) Checkout(ctx context.Context, projectID, ref string) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.Checkout(ctx, cwd, ref)
	})
}

// CreateBranch creates a branch, optionally switching to it.
func (c *Coordinator) CreateBranch(ctx context.Context, projectID, branch, startPoint string, checkout bool) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.CreateBranch(ctx, cwd, branch, startPoint, checkout)
	})
}

// Stash stashes all changes including untracked files.
func (c *Coordinator) Stash(ctx context.Context, projectID, message string) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.Stash(ctx, cwd, message)
	})
}

// StashPop restores the latest stash entry.
func (c *Coordinator) StashPop(ctx context.Context, projectID string) error {
	return c.run(ctx, projectID, true, func(ctx context.Context, p Provider, cwd string) error {
		return p.StashPop(ctx, cwd)
	})
}

// Fetch updates remote-tracking refs.
func (c *Coordinator) Fetch(ctx context.Context, projectID, remote string) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.Fetch(ctx, cwd, remote)
	})
}

// Pull integrates the upstream branch.
func (c *Coordinator) Pull(ctx context.Context, projectID string, rebase bool) error {
	return c.run(ctx, projectID, true, func(ctx context.Context, p Provider, cwd string) error {
		return p.Pull(ctx, cwd, rebase)
	})
}

// Push pushes the current branch.
func (c *Coordinator) Push(ctx context.Context, projectID, remote string, force bool) error {
	return c.run(ctx, projectID, false, func(ctx context.Context, p Provider, cwd string) error {
		return p.Push(ctx, cwd, remote, force)
	})
}

// Merge merges ref into the current branch.
func (c *Coordinator) Merge(ctx context.Context, projectID, ref string) error {
	return c.run(ctx, projectID, true, func(ctx context.Context, p Provider, cwd string) error {
		return p.Merge(ctx, cwd, ref)
	})
}

// Rebase rebases the current branch onto ref.
func (c *Coordinator) Rebase(ctx context.Context, projectID, ref string) error {
	return c.run(ctx, projectID, true, func(ctx context.Context, p Provider, cwd string) error {
		return p.Rebase(ctx, cwd, ref)
	})
}

// CherryPick applies the commit oid.
func (c *Coordinator) CherryPick(ctx context.Context, projectID, oid string) error {
	return c.run(ctx, projectID, true, func(ctx context.Context, p Provider, cwd string) error {
		return p.CherryPick(ctx, cwd, oid)
	})
}
