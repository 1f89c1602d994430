// Package storage provides the gitagen application directory and atomic file
// operations for the JSON state kept in it.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AppDirName is the folder under the home directory that holds gitagen state.
const AppDirName = ".gitagen"

// HomeEnv overrides the application directory (used by tests and portable installs).
const HomeEnv = "GITAGEN_HOME"

// AppDir returns the path to ~/.gitagen (or $GITAGEN_HOME), creating it if needed.
func AppDir() (string, error) {
	dir := os.Getenv(HomeEnv)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, AppDirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	return dir, nil
}

// SaveJSON atomically writes data as JSON to the specified path.
// It ensures the parent directory exists, writes to a temp file,
// then renames to the final path.
func SaveJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}

// LoadJSON reads JSON from the specified path into dest.
// Returns os.ErrNotExist if file doesn't exist (caller should handle).
func LoadJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// UpdateJSON loads path into dest under an exclusive file lock, calls fn and
// saves the result if fn returns nil. A missing file leaves dest untouched
// before fn runs.
func UpdateJSON(path string, dest any, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	release, err := acquireLock(path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = release() }()

	if err := LoadJSON(path, dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	if err := fn(); err != nil {
		return err
	}

	return SaveJSON(path, dest)
}
