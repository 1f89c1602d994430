package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gitagen/gitagen/internal/storage"
)

// DefaultDir returns ~/.gitagen/worktrees.
func DefaultDir() (string, error) {
	dir, err := storage.AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "worktrees"), nil
}

// sanitize makes a branch or project name safe as a single path element.
// "/" becomes "-"; other characters outside [A-Za-z0-9._-] are dropped.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	out := strings.TrimLeft(b.String(), ".-")
	if out == "" {
		return "worktree"
	}
	return out
}

// ManagedPath returns a free path for a new worktree of branch under root.
func ManagedPath(root, projectName, branch string) string {
	base := filepath.Join(root, sanitize(projectName), sanitize(branch))
	path := base
	for i := 2; exists(path); i++ {
		path = fmt.Sprintf("%s-%d", base, i)
	}
	return path
}

// IsManagedPath reports whether path lies inside root.
func IsManagedPath(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
