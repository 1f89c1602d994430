package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitagen/gitagen/internal/cache"
	"github.com/gitagen/gitagen/internal/config"
	"github.com/gitagen/gitagen/internal/events"
	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/project"
	"github.com/gitagen/gitagen/internal/repo"
	"github.com/gitagen/gitagen/internal/storage"
	"github.com/gitagen/gitagen/internal/worktree"
)

// app wires the core components for one command invocation.
type app struct {
	git       *git.CLI
	projects  *project.Store
	cache     *cache.Store
	bus       *events.Bus
	coord     *repo.Coordinator
	reader    *repo.Reader
	worktrees *worktree.Manager
}

// dataDir returns the configured data directory or ~/.gitagen.
func dataDir(c *config.Config) (string, error) {
	if c != nil && c.DataDir != "" {
		return c.DataDir, nil
	}
	return storage.AppDir()
}

// worktreeDir returns the configured managed worktree directory.
func worktreeDir(c *config.Config, data string) string {
	if c != nil && c.WorktreeDir != "" {
		return c.WorktreeDir
	}
	return filepath.Join(data, "worktrees")
}

func projectStore() (*project.Store, error) {
	dir, err := dataDir(cfg)
	if err != nil {
		return nil, err
	}
	return project.NewStore(filepath.Join(dir, "projects.json")), nil
}

// openApp opens the cache and builds the coordinator and reader. A cache
// that cannot be opened (another gitagen holds it) falls back to an
// in-memory one: fingerprints keep either safe.
func openApp(ctx context.Context) (*app, error) {
	l := log.FromContext(ctx)

	dir, err := dataDir(cfg)
	if err != nil {
		return nil, err
	}

	opts := cache.Options{Dir: filepath.Join(dir, "cache")}
	if cfg != nil {
		opts.MaxAge = cfg.Cache.MaxAge.Duration
		opts.MaxRows = cfg.Cache.MaxRows
		opts.SweepInterval = cfg.Cache.SweepInterval.Duration
	}
	store, err := cache.Open(ctx, opts)
	if err != nil {
		l.Warn("persistent cache unavailable, using memory", "err", err)
		if store, err = cache.OpenInMemory(ctx); err != nil {
			return nil, err
		}
	}
	store.StartSweeper(ctx)

	a := &app{
		git:      git.New(),
		projects: project.NewStore(filepath.Join(dir, "projects.json")),
		cache:    store,
		bus:      events.New(),
	}
	a.coord = repo.NewCoordinator(a.git, a.projects, store, a.bus)
	a.reader = repo.NewReader(a.git, a.projects, store)
	a.worktrees = worktree.NewManager(a.git, worktreeDir(cfg, dir))

	if showEvents {
		a.bus.Subscribe(func(e events.Event) { printEvent(l, e) })
	}
	return a, nil
}

// Close releases the cache.
func (a *app) Close() error {
	return a.cache.Close()
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.FromContext(ctx).Warn("close cache", "err", err)
		}
	}()
	return fn(a)
}

// currentProject returns the project named by --project, or else the
// registered project whose path or active worktree contains dir.
func (a *app) currentProject(dir string) (*project.Project, error) {
	reg, err := a.projects.Load()
	if err != nil {
		return nil, err
	}
	return findProject(reg, projectRef, dir)
}

func findProject(reg *project.Registry, ref, dir string) (*project.Project, error) {
	if ref != "" {
		return reg.Find(ref)
	}

	dir = filepath.Clean(dir)
	var best *project.Project
	bestLen := -1
	for i := range reg.Projects {
		p := &reg.Projects[i]
		for _, root := range []string{p.Path, reg.Prefs[p.ID].ActiveWorktreePath} {
			if root == "" || !within(root, dir) {
				continue
			}
			if len(root) > bestLen {
				best, bestLen = p, len(root)
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s is not inside a registered project (use --project or 'gitagen project add')", dir)
	}
	return best, nil
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func printEvent(l *log.Logger, e events.Event) {
	switch ev := e.(type) {
	case events.RepoUpdated:
		l.Printf("event %s project=%s at=%s\n", ev.Type(), ev.ProjectID, ev.UpdatedAt.Format(time.RFC3339))
	case events.ConflictDetected:
		l.Printf("event %s project=%s type=%s files=%s\n", ev.Type(), ev.ProjectID, ev.State.Type, strings.Join(ev.State.ConflictFiles, ","))
	case events.RepoError:
		l.Printf("event %s project=%s err=%q\n", ev.Type(), ev.ProjectID, errText(ev.Err))
	default:
		l.Printf("event %s project=%s\n", e.Type(), e.Project())
	}
}

// errText returns the first line of err, which for git failures is the
// relevant stderr line.
func errText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// worktreeHint adds a next step to worktree errors that have one.
func worktreeHint(err error) error {
	var dirty *worktree.DirtyWorktreeError
	if errors.As(err, &dirty) {
		return fmt.Errorf("%w (use --force to remove anyway)", err)
	}
	return err
}
