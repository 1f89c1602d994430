// Package cmd runs external commands with context support.
//
// Stderr of a failed command becomes the error text. Callers further up
// (notably the worktree error classifier) match on that text, so it is
// returned trimmed and otherwise unmodified.
//
// Every invocation is traced through the context logger, see
// [log.Logger.Command].
//
//	out, err := cmd.OutputContext(ctx, repoPath, "git", "status", "--porcelain")
//	if err != nil {
//	    // err.Error() is git's stderr
//	}
package cmd
