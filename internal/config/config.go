package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// PathEnv overrides the config file location.
const PathEnv = "GITAGEN_CONFIG"

// Duration is a time.Duration that decodes from TOML strings like "30m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// CacheConfig controls the persistent repository cache and its retention sweep.
type CacheConfig struct {
	SweepInterval Duration `toml:"sweep_interval"`
	MaxAge        Duration `toml:"max_age"`
	MaxRows       int      `toml:"max_rows"`
}

// GroupingConfig controls toplevel resolution for project grouping.
type GroupingConfig struct {
	Candidates int      `toml:"candidates"`
	Workers    int      `toml:"workers"`
	TTL        Duration `toml:"ttl"`
}

// Config holds the gitagen configuration
type Config struct {
	DataDir     string         `toml:"data_dir"`     // cache database and project registry; default ~/.gitagen
	WorktreeDir string         `toml:"worktree_dir"` // managed worktrees; default ~/.gitagen/worktrees
	Cache       CacheConfig    `toml:"cache"`
	Grouping    GroupingConfig `toml:"grouping"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Cache: CacheConfig{
			SweepInterval: Duration{30 * time.Minute},
			MaxAge:        Duration{7 * 24 * time.Hour},
			MaxRows:       20000,
		},
		Grouping: GroupingConfig{
			Candidates: 5,
			Workers:    8,
			TTL:        Duration{5 * time.Minute},
		},
	}
}

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil
	}
	if path[0] == '~' {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	return path, nil
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gitagen", "config.toml"), nil
}

// Load reads the config file.
// Returns Default() if file doesn't exist (no error).
// Returns error only if file exists but is invalid.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads config from path. Unset values keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML config data on top of the defaults and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config file: %w", err)
	}

	for _, p := range []struct {
		field string
		value *string
	}{
		{"data_dir", &cfg.DataDir},
		{"worktree_dir", &cfg.WorktreeDir},
	} {
		if err := ValidatePath(*p.value, p.field); err != nil {
			return Default(), err
		}
		expanded, err := expandPath(*p.value)
		if err != nil {
			return Default(), fmt.Errorf("expand %s: %w", p.field, err)
		}
		*p.value = expanded
	}

	if err := cfg.validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Cache.SweepInterval.Duration <= 0 {
		return fmt.Errorf("cache.sweep_interval must be positive, got %s", c.Cache.SweepInterval.Duration)
	}
	if c.Cache.MaxAge.Duration <= 0 {
		return fmt.Errorf("cache.max_age must be positive, got %s", c.Cache.MaxAge.Duration)
	}
	if c.Cache.MaxRows < 0 {
		return fmt.Errorf("cache.max_rows must not be negative, got %d", c.Cache.MaxRows)
	}
	if c.Grouping.Candidates < 1 {
		return fmt.Errorf("grouping.candidates must be at least 1, got %d", c.Grouping.Candidates)
	}
	if c.Grouping.Workers < 1 {
		return fmt.Errorf("grouping.workers must be at least 1, got %d", c.Grouping.Workers)
	}
	if c.Grouping.TTL.Duration <= 0 {
		return fmt.Errorf("grouping.ttl must be positive, got %s", c.Grouping.TTL.Duration)
	}
	return nil
}

const defaultConfig = `# gitagen configuration

# Where the cache database and project registry live.
# Must be an absolute path or start with ~
# data_dir = "~/.gitagen"

# Where managed worktrees are created: <worktree_dir>/<project>/<branch>
# Only worktrees under this directory are ever deleted from disk implicitly.
# worktree_dir = "~/.gitagen/worktrees"

[cache]
# How often old cache rows are swept (never inline with reads/writes)
sweep_interval = "30m"
# Rows older than this are removed
max_age = "168h"
# Upper bound on cache rows; oldest rows are evicted first (0 = unlimited)
max_rows = 20000

[grouping]
# Most recently opened projects checked for worktree grouping
candidates = 5
# Concurrent git toplevel lookups
workers = 8
# How long a resolved toplevel is reused
ttl = "5m"
`

// Init creates a default config file at Path().
// If force is true, overwrites existing file.
// Returns the path to the created file.
func Init(force bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", errors.New("config file already exists: " + path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
