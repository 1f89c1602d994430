package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CLI is the git provider backed by the git executable. The zero value is
// ready to use and safe for concurrent use.
type CLI struct{}

// New returns a git CLI provider.
func New() *CLI {
	return &CLI{}
}

// HeadOID returns the full object id of HEAD, or "" for an unborn HEAD.
func (c *CLI) HeadOID(ctx context.Context, cwd string) (string, error) {
	// rev-parse -q --verify exits 1 without output when the ref is missing
	output, err := outputGitAllow(ctx, cwd, []int{1}, "rev-parse", "-q", "--verify", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the current branch name
// Returns "(detached)" for detached HEAD state
func (c *CLI) CurrentBranch(ctx context.Context, cwd string) (string, error) {
	output, err := outputGit(ctx, cwd, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("failed to get branch: %w", err)
	}
	branch := strings.TrimSpace(string(output))
	if branch == "" {
		return "(detached)", nil
	}
	return branch, nil
}

// BranchExists checks if a local branch exists
func (c *CLI) BranchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	output, err := outputGitAllow(ctx, repoPath, []int{1}, "rev-parse", "-q", "--verify", "refs/heads/"+branch)
	if err != nil {
		return false, fmt.Errorf("failed to check branch %q: %w", branch, err)
	}
	return strings.TrimSpace(string(output)) != "", nil
}

// ListBranches returns all local branch names.
func (c *CLI) ListBranches(ctx context.Context, repoPath string) ([]string, error) {
	output, err := outputGit(ctx, repoPath, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var branches []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// Toplevel returns the root of the main working tree of the repository that
// path belongs to. For a linked worktree this is the main repository, not
// the worktree itself, so worktrees of one repository share a toplevel.
func (c *CLI) Toplevel(ctx context.Context, path string) (string, error) {
	output, err := outputGit(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	toplevel := strings.TrimSpace(string(output))

	info, err := os.Stat(filepath.Join(toplevel, ".git"))
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return toplevel, nil
	}

	// Linked worktree: .git is a file pointing into the main repo
	return GetMainRepoPath(toplevel)
}

// GitDir returns the absolute git directory for cwd.
func (c *CLI) GitDir(ctx context.Context, cwd string) (string, error) {
	dir, err := gitDir(ctx, cwd)
	if err != nil {
		return "", fmt.Errorf("failed to resolve git dir: %w", err)
	}
	return dir, nil
}

// gitDir returns the absolute git directory for cwd. For a linked worktree
// this is <main>/.git/worktrees/<name>, which has its own HEAD and index.
func gitDir(ctx context.Context, cwd string) (string, error) {
	output, err := outputGit(ctx, cwd, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// GetMainRepoPath extracts main repo path from .git file in worktree
func GetMainRepoPath(worktreePath string) (string, error) {
	gitFile := filepath.Join(worktreePath, ".git")
	content, err := os.ReadFile(gitFile)
	if err != nil {
		return "", fmt.Errorf("failed to read .git file: %w", err)
	}

	// Parse: "gitdir: /path/to/repo/.git/worktrees/name"
	// Only the first line matters; any additional lines are ignored
	line := strings.TrimSpace(string(content))
	if idx := strings.Index(line, "\n"); idx != -1 {
		line = strings.TrimSpace(line[:idx])
	}
	if !strings.HasPrefix(line, "gitdir: ") {
		return "", fmt.Errorf("invalid .git file format: expected 'gitdir: <path>'")
	}

	gitdir := strings.TrimPrefix(line, "gitdir: ")
	if gitdir == "" {
		return "", fmt.Errorf("invalid .git file format: empty gitdir path")
	}

	// gitdir can be relative to the worktree
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(worktreePath, gitdir)
	}
	gitdir = filepath.Clean(gitdir)

	// Walk up from /path/to/repo/.git/worktrees/name to /path/to/repo
	dir := gitdir
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find main repo path from gitdir: %s", gitdir)
		}
		if filepath.Base(dir) == ".git" {
			return parent, nil
		}
		dir = parent
	}
}
