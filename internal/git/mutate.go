package git

import (
	"context"
	"fmt"
)

// Stage adds paths to the index. No paths stages everything.
func (c *CLI) Stage(ctx context.Context, cwd string, paths ...string) error {
	args := []string{"add", "-A", "--"}
	args = append(args, paths...)
	if err := runGit(ctx, cwd, args...); err != nil {
		return fmt.Errorf("failed to stage: %w", err)
	}
	return nil
}

// Unstage removes paths from the index, keeping working tree changes.
func (c *CLI) Unstage(ctx context.Context, cwd string, paths ...string) error {
	head, err := c.HeadOID(ctx, cwd)
	if err != nil {
		return err
	}

	var args []string
	if head == "" {
		// no HEAD to restore from before the first commit
		args = []string{"rm", "--cached", "-r", "-q", "--"}
		if len(paths) == 0 {
			paths = []string{"."}
		}
	} else {
		args = []string{"restore", "--staged", "--"}
		if len(paths) == 0 {
			paths = []string{"."}
		}
	}
	args = append(args, paths...)
	if err := runGit(ctx, cwd, args...); err != nil {
		return fmt.Errorf("failed to unstage: %w", err)
	}
	return nil
}

// Discard reverts unstaged changes of tracked paths.
func (c *CLI) Discard(ctx context.Context, cwd string, paths ...string) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	args := append([]string{"restore", "--worktree", "--"}, paths...)
	if err := runGit(ctx, cwd, args...); err != nil {
		return fmt.Errorf("failed to discard changes: %w", err)
	}
	return nil
}

// Commit records the index with message and returns the new HEAD.
func (c *CLI) Commit(ctx context.Context, cwd, message string, amend bool) (string, error) {
	args := []string{"commit", "-m", message}
	if amend {
		args = append(args, "--amend")
	}
	if err := runGit(ctx, cwd, args...); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return c.HeadOID(ctx, cwd)
}

// Checkout switches the working tree to ref.
func (c *CLI) Checkout(ctx context.Context, cwd, ref string) error {
	if err := runGit(ctx, cwd, "checkout", ref); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ref, err)
	}
	return nil
}

// CreateBranch creates branch at startPoint (HEAD when empty), optionally
// switching to it.
func (c *CLI) CreateBranch(ctx context.Context, cwd, branch, startPoint string, checkout bool) error {
	var args []string
	if checkout {
		args = []string{"checkout", "-b", branch}
	} else {
		args = []string{"branch", branch}
	}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	if err := runGit(ctx, cwd, args...); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return nil
}

// Stash creates a stash entry including untracked files.
func (c *CLI) Stash(ctx context.Context, cwd, message string) error {
	if message == "" {
		message = "gitagen stash"
	}
	if err := runGit(ctx, cwd, "stash", "push", "-u", "-m", message); err != nil {
		return fmt.Errorf("failed to stash changes: %w", err)
	}
	return nil
}

// StashPop applies and removes the most recent stash entry.
func (c *CLI) StashPop(ctx context.Context, cwd string) error {
	if err := runGit(ctx, cwd, "stash", "pop"); err != nil {
		return fmt.Errorf("failed to pop stash: %w", err)
	}
	return nil
}

// Fetch updates remote-tracking refs. Empty remote fetches all remotes.
func (c *CLI) Fetch(ctx context.Context, cwd, remote string) error {
	args := []string{"fetch", "--prune"}
	if remote == "" {
		args = append(args, "--all")
	} else {
		args = append(args, remote)
	}
	if err := runGit(ctx, cwd, args...); err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}

// Pull fetches and integrates the upstream of the current branch.
func (c *CLI) Pull(ctx context.Context, cwd string, rebase bool) error {
	args := []string{"pull"}
	if rebase {
		args = append(args, "--rebase")
	} else {
		args = append(args, "--no-rebase")
	}
	if err := runGit(ctx, cwd, args...); err != nil {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

// Push pushes the current branch, setting the upstream on first push.
func (c *CLI) Push(ctx context.Context, cwd, remote string, force bool) error {
	if remote == "" {
		remote = "origin"
	}
	args := []string{"push", "-u", remote, "HEAD"}
	if force {
		args = append(args, "--force-with-lease")
	}
	if err := runGit(ctx, cwd, args...); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// Merge merges ref into the current branch.
func (c *CLI) Merge(ctx context.Context, cwd, ref string) error {
	if err := runGit(ctx, cwd, "merge", "--no-edit", ref); err != nil {
		return fmt.Errorf("failed to merge %s: %w", ref, err)
	}
	return nil
}

// Rebase rebases the current branch onto ref.
func (c *CLI) Rebase(ctx context.Context, cwd, ref string) error {
	if err := runGit(ctx, cwd, "rebase", ref); err != nil {
		return fmt.Errorf("failed to rebase onto %s: %w", ref, err)
	}
	return nil
}

// CherryPick applies the change introduced by oid.
func (c *CLI) CherryPick(ctx context.Context, cwd, oid string) error {
	if err := runGit(ctx, cwd, "cherry-pick", oid); err != nil {
		return fmt.Errorf("failed to cherry-pick %s: %w", oid, err)
	}
	return nil
}
