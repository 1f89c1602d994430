package worktree

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyGitignores copies every .gitignore below src to the same relative path
// below dst. Existing files are kept. It returns the number of files copied
// and the first failure, and keeps going after failures. dst and nested
// linked worktrees below src are not descended into.
func copyGitignores(src, dst string) (int, error) {
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	copied := 0
	var firstErr error
	record := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			record(err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || path == dst {
				return fs.SkipDir
			}
			if path != src && isLinkedWorktree(path) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			record(err)
			return nil
		}
		ok, err := copyFile(path, filepath.Join(dst, rel))
		if err != nil {
			record(err)
			return nil
		}
		if ok {
			copied++
		}
		return nil
	})
	if walkErr != nil {
		record(walkErr)
	}
	return copied, firstErr
}

// isLinkedWorktree reports whether dir holds a .git file, which marks a
// linked worktree.
func isLinkedWorktree(dir string) bool {
	info, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil && !info.IsDir()
}

// copyFile copies src to dst, creating parent directories as needed.
// Uses O_CREATE|O_EXCL to skip files that already exist (never overwrite).
// Returns true if the file was copied, false if it was skipped.
func copyFile(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	defer dstFile.Close()

	srcFile, err := os.Open(src)
	if err != nil {
		os.Remove(dst)
		return false, err
	}
	defer srcFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		os.Remove(dst)
		return false, err
	}

	return true, nil
}
