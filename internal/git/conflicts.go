package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ConflictFiles returns the paths with unresolved merge conflicts.
func (c *CLI) ConflictFiles(ctx context.Context, cwd string) ([]string, error) {
	output, err := outputGit(ctx, cwd, "diff", "--name-only", "--diff-filter=U", "-z")
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	return splitNUL(output), nil
}

// ConflictType reports which operation is in progress in cwd, based on the
// state files git leaves in the git directory. Defaults to merge.
func (c *CLI) ConflictType(ctx context.Context, cwd string) (ConflictType, error) {
	dir, err := gitDir(ctx, cwd)
	if err != nil {
		return "", fmt.Errorf("failed to resolve git dir: %w", err)
	}

	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}

	switch {
	case exists("rebase-merge"), exists("rebase-apply"):
		return ConflictRebase, nil
	case exists("CHERRY_PICK_HEAD"):
		return ConflictCherryPick, nil
	default:
		return ConflictMerge, nil
	}
}
