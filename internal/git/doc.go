// Package git provides git operations via shell commands.
//
// All operations call the git CLI through [CLI] rather than using Go git
// libraries, which keeps compatibility with user configuration (SSH keys,
// credential helpers, aliases). Git's stderr is preserved in returned errors.
//
// # Reads
//
//   - [CLI.Fingerprint]: HEAD, index and HEAD mtimes, status hash
//   - [CLI.Status], [CLI.Tree], [CLI.Patch], [CLI.Log]
//   - [CLI.ConflictFiles], [CLI.ConflictType]
//   - [CLI.Toplevel]: main repository root, shared by all its worktrees
//
// # Mutations
//
// Index, branch, stash and remote operations such as [CLI.Stage],
// [CLI.Commit], [CLI.Merge] and [CLI.Push]. Callers are expected to
// invalidate cached reads afterwards.
//
// # Worktrees
//
//   - [CLI.ListWorktrees], [ParseWorktreeList]
//   - [CLI.AddWorktree], [CLI.RemoveWorktree], [CLI.PruneWorktrees]
package git
