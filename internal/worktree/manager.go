package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
)

// Provider is the git worktree interface. *git.CLI satisfies it.
type Provider interface {
	BranchExists(ctx context.Context, repoPath, branch string) (bool, error)
	ListWorktrees(ctx context.Context, repoPath string) ([]git.WorktreeInfo, error)
	AddWorktree(ctx context.Context, opts git.WorktreeAddOptions) error
	RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error
	PruneWorktrees(ctx context.Context, repoPath string) error
}

var _ Provider = (*git.CLI)(nil)

// AddOptions configures Add.
type AddOptions struct {
	// NewBranch creates the branch from StartPoint (HEAD when empty).
	NewBranch  bool
	StartPoint string

	// Path overrides the managed location.
	Path string

	// CopyGitignores copies .gitignore files from SourceWorktreePath (the
	// main repository when empty) into the new worktree.
	CopyGitignores     bool
	SourceWorktreePath string
}

// AddResult describes a created worktree.
type AddResult struct {
	WorktreePath         string `json:"worktreePath"`
	CopiedGitignoreCount int    `json:"copiedGitignoreCount"`
	CopyGitignoreError   string `json:"copyGitignoreError,omitempty"`
}

// Manager creates and removes worktrees.
type Manager struct {
	provider Provider
	root     string
}

// NewManager returns a manager placing new worktrees under root.
func NewManager(provider Provider, root string) *Manager {
	return &Manager{provider: provider, root: filepath.Clean(root)}
}

// ManagedDir returns the directory managed worktrees are created in.
func (m *Manager) ManagedDir() string {
	return m.root
}

// IsManagedPath reports whether path lies in the managed directory.
func (m *Manager) IsManagedPath(path string) bool {
	return IsManagedPath(m.root, path)
}

// List returns the worktrees of the repository; the first is the main one.
func (m *Manager) List(ctx context.Context, mainRepoPath string) ([]git.WorktreeInfo, error) {
	return m.provider.ListWorktrees(ctx, mainRepoPath)
}

// Add creates a worktree for branch. Without opts.NewBranch the branch must
// already exist.
func (m *Manager) Add(ctx context.Context, mainRepoPath, projectName, branch string, opts AddOptions) (*AddResult, error) {
	l := log.FromContext(ctx)

	if !opts.NewBranch {
		ok, err := m.provider.BranchExists(ctx, mainRepoPath, branch)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &MissingBranchError{Branch: branch}
		}
	}

	path := opts.Path
	if path == "" {
		path = ManagedPath(m.root, projectName, branch)
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		path = abs
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create worktree parent directory: %w", err)
	}

	err := m.provider.AddWorktree(ctx, git.WorktreeAddOptions{
		RepoPath:   mainRepoPath,
		Path:       path,
		Branch:     branch,
		NewBranch:  opts.NewBranch,
		StartPoint: opts.StartPoint,
	})
	if err != nil {
		if Classify(err) == KindBranchCheckedOut {
			return nil, &BranchAlreadyCheckedOutError{Branch: branch, Path: checkedOutPath(err), Err: err}
		}
		return nil, err
	}
	l.Debug("worktree created", "path", path, "branch", branch)

	res := &AddResult{WorktreePath: path}
	if opts.CopyGitignores {
		src := opts.SourceWorktreePath
		if src == "" {
			src = mainRepoPath
		}
		n, err := copyGitignores(src, path)
		res.CopiedGitignoreCount = n
		if err != nil {
			res.CopyGitignoreError = err.Error()
			l.Warn("failed to copy .gitignore files", "worktree", path, "err", err)
		}
	}
	return res, nil
}

// Remove removes a linked worktree. The main worktree is always rejected.
// Without force, a worktree with local changes fails with
// *DirtyWorktreeError.
func (m *Manager) Remove(ctx context.Context, mainRepoPath, worktreePath string, force bool) error {
	if isMainWorktree(mainRepoPath, worktreePath) {
		return ErrMainWorktree
	}

	if err := m.provider.RemoveWorktree(ctx, mainRepoPath, worktreePath, force); err != nil {
		if !force && Classify(err) == KindDirtyWorktree {
			return &DirtyWorktreeError{Path: worktreePath, Err: err}
		}
		return err
	}
	log.FromContext(ctx).Debug("worktree removed", "path", worktreePath)
	return nil
}

// Prune drops git's records of worktrees whose directories are gone.
func (m *Manager) Prune(ctx context.Context, mainRepoPath string) error {
	return m.provider.PruneWorktrees(ctx, mainRepoPath)
}

// RemoveForProject deletes the worktree at path when its project is
// removed. Only managed worktrees are deleted; for any other path nothing
// happens and removed is false.
func (m *Manager) RemoveForProject(ctx context.Context, path string) (removed bool, err error) {
	if !m.IsManagedPath(path) {
		return false, nil
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		// not a worktree (anymore)
		return false, nil
	}

	mainRepo, err := git.GetMainRepoPath(path)
	if err != nil {
		return false, err
	}
	if isMainWorktree(mainRepo, path) {
		return false, ErrMainWorktree
	}

	if err := m.provider.RemoveWorktree(ctx, mainRepo, path, true); err != nil {
		return false, err
	}
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return true, err
	}
	return true, nil
}

// isMainWorktree reports whether path is the main worktree: either the main
// repository itself or any directory with a .git directory.
func isMainWorktree(mainRepoPath, path string) bool {
	if filepath.Clean(mainRepoPath) == filepath.Clean(path) {
		return true
	}
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// SuggestBranchName returns the first of "<base>-worktree",
// "<base>-worktree-2", "<base>-worktree-3", ... not in existing.
func SuggestBranchName(base string, existing []string) string {
	candidate := base + "-worktree"
	for i := 2; slices.Contains(existing, candidate); i++ {
		candidate = fmt.Sprintf("%s-worktree-%d", base, i)
	}
	return candidate
}
