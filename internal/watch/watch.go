// Package watch invalidates project caches when git state changes outside
// gitagen, e.g. a checkout or commit from another terminal.
//
// The git directory itself is watched rather than HEAD and index, since git
// replaces both files by renaming a lock file over them.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
)

// DefaultDebounce collapses bursts of writes into one invalidation.
const DefaultDebounce = 200 * time.Millisecond

// Invalidator drops a project's cached state.
type Invalidator interface {
	Invalidate(ctx context.Context, projectID string)
}

// GitDirResolver returns the git directory for a working tree.
type GitDirResolver interface {
	GitDir(ctx context.Context, cwd string) (string, error)
}

var _ GitDirResolver = (*git.CLI)(nil)

// watchedFiles are the git directory entries whose change invalidates.
var watchedFiles = map[string]bool{
	"HEAD":  true,
	"index": true,
}

// Watcher maps git directory changes to project invalidations.
// Add must not be called concurrently with Run.
type Watcher struct {
	fs       *fsnotify.Watcher
	inv      Invalidator
	resolver GitDirResolver
	debounce time.Duration
	projects map[string][]string // git dir -> project ids
	timers   map[string]*time.Timer
	fire     chan string
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a project is invalidated.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher. Call Close when done.
func New(inv Invalidator, resolver GitDirResolver, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		inv:      inv,
		resolver: resolver,
		debounce: DefaultDebounce,
		projects: make(map[string][]string),
		timers:   make(map[string]*time.Timer),
		fire:     make(chan string),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add starts watching the git directory of the project at cwd.
func (w *Watcher) Add(ctx context.Context, projectID, cwd string) error {
	dir, err := w.resolver.GitDir(ctx, cwd)
	if err != nil {
		return err
	}
	dir = filepath.Clean(dir)

	if _, ok := w.projects[dir]; !ok {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.projects[dir] = append(w.projects[dir], projectID)
	log.FromContext(ctx).Debug("watching", "project", projectID, "gitdir", dir)
	return nil
}

// Len returns the number of watched git directories.
func (w *Watcher) Len() int {
	return len(w.projects)
}

// Run dispatches invalidations until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.stop()
		for _, t := range w.timers {
			t.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.FromContext(ctx).Warn("watcher error", "err", err)
		case projectID := <-w.fire:
			w.inv.Invalidate(ctx, projectID)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	if !watchedFiles[filepath.Base(ev.Name)] {
		return
	}

	for _, projectID := range w.projects[filepath.Dir(ev.Name)] {
		log.FromContext(ctx).Debug("git state changed", "project", projectID, "file", ev.Name)
		w.schedule(ctx, projectID)
	}
}

// schedule (re)arms the project's debounce timer. The timer hands the
// project back to Run, so Invalidate is only ever called from Run.
func (w *Watcher) schedule(ctx context.Context, projectID string) {
	if t, ok := w.timers[projectID]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[projectID] = time.AfterFunc(w.debounce, func() { w.deliver(ctx, projectID) })
}

// deliver hands projectID to Run. It gives up once Run has returned.
func (w *Watcher) deliver(ctx context.Context, projectID string) {
	select {
	case w.fire <- projectID:
	case <-w.done:
	case <-ctx.Done():
	}
}

func (w *Watcher) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Close stops watching. Pending invalidations are dropped.
func (w *Watcher) Close() error {
	w.stop()
	return w.fs.Close()
}
