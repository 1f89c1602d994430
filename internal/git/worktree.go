package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ListWorktrees returns all worktrees of the repository at repoPath using
// "git worktree list --porcelain". The first entry is the main worktree.
func (c *CLI) ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeInfo, error) {
	output, err := outputGit(ctx, repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}
	return ParseWorktreeList(output), nil
}

// ParseWorktreeList parses "git worktree list --porcelain" output.
func ParseWorktreeList(output []byte) []WorktreeInfo {
	var worktrees []WorktreeInfo
	var current WorktreeInfo

	flush := func() {
		if current.Path == "" {
			return
		}
		current.IsMainWorktree = len(worktrees) == 0
		current.Name = filepath.Base(current.Path)
		worktrees = append(worktrees, current)
	}

	for _, line := range strings.Split(string(output), "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch refs/heads/"):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "detached":
			current.Branch = "(detached)"
		case line == "locked" || strings.HasPrefix(line, "locked "):
			current.Locked = true
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.Prunable = true
		}
	}
	flush()

	return worktrees
}

// AddWorktree creates a worktree at opts.Path. With NewBranch the branch is
// created from StartPoint (or HEAD); otherwise the existing branch is
// checked out. Git's stderr is preserved in the error text.
func (c *CLI) AddWorktree(ctx context.Context, opts WorktreeAddOptions) error {
	args := []string{"worktree", "add"}
	if opts.NewBranch {
		args = append(args, "-b", opts.Branch, opts.Path)
		if opts.StartPoint != "" {
			args = append(args, opts.StartPoint)
		}
	} else {
		args = append(args, opts.Path, opts.Branch)
	}

	if err := runGit(ctx, opts.RepoPath, args...); err != nil {
		return fmt.Errorf("failed to create worktree: %w", err)
	}
	return nil
}

// RemoveWorktree removes a git worktree
func (c *CLI) RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove", worktreePath}
	if force {
		args = append(args, "--force")
	}
	if err := runGit(ctx, repoPath, args...); err != nil {
		return fmt.Errorf("failed to remove worktree: %w", err)
	}
	return nil
}

// PruneWorktrees prunes stale worktree references
func (c *CLI) PruneWorktrees(ctx context.Context, repoPath string) error {
	if err := runGit(ctx, repoPath, "worktree", "prune"); err != nil {
		return fmt.Errorf("failed to prune worktrees: %w", err)
	}
	return nil
}
