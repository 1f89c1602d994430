// Package worktree manages the lifecycle of git worktrees for a project.
//
// A worktree is absent, created or removed; removal is terminal. New
// worktrees land in the managed directory (~/.gitagen/worktrees by default)
// unless the caller supplies a path:
//
//	<worktree_dir>/<project>/<branch>
//
// with "/" in the branch replaced by "-" and a numeric suffix on collision.
// Only managed worktrees are ever deleted from disk implicitly.
//
// Git reports recoverable failures only as text. [Classify] is the single
// place that inspects that text; everything else matches on the typed errors
// it yields ([*BranchAlreadyCheckedOutError], [*DirtyWorktreeError]).
package worktree
