package git

import (
	"context"
	"fmt"
	"os"
)

// Patch returns the unified diff of one file in the given scope.
func (c *CLI) Patch(ctx context.Context, opts PatchOptions) (string, error) {
	var (
		output []byte
		err    error
	)

	switch opts.Scope {
	case ScopeStaged:
		output, err = outputGit(ctx, opts.Cwd, "diff", "--no-color", "--no-ext-diff", "--cached", "--", opts.FilePath)
	case ScopeUnstaged:
		output, err = outputGit(ctx, opts.Cwd, "diff", "--no-color", "--no-ext-diff", "--", opts.FilePath)
	case ScopeUntracked:
		// --no-index exits 1 when the files differ, which is always the case here
		output, err = outputGitAllow(ctx, opts.Cwd, []int{1}, "diff", "--no-color", "--no-ext-diff", "--no-index", "--", os.DevNull, opts.FilePath)
	default:
		return "", fmt.Errorf("unknown patch scope %q", opts.Scope)
	}
	if err != nil {
		return "", fmt.Errorf("failed to diff %s (%s): %w", opts.FilePath, opts.Scope, err)
	}
	return string(output), nil
}
