// Package config handles loading and validation of gitagen configuration.
//
// Configuration is read from ~/.config/gitagen/config.toml, or from the file
// named by GITAGEN_CONFIG. A missing file yields [Default].
//
// # Key Settings
//
//   - data_dir: cache database and project registry (default ~/.gitagen)
//   - worktree_dir: managed worktree root (default ~/.gitagen/worktrees)
//   - [cache]: retention sweep interval, max row age, max row count
//   - [grouping]: candidate count, worker count, toplevel TTL
//
// # Path Validation
//
// Directory paths must be absolute or start with ~ (no relative paths like "."
// or "..") to avoid confusion about the working directory.
package config
