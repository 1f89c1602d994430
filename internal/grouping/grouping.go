// Package grouping groups projects that are worktrees of the same
// repository under the project of that repository.
//
// Grouping is a convenience: only the most recently opened projects are
// resolved, and a failed lookup simply leaves a project ungrouped.
package grouping

import (
	"context"
	"path/filepath"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/project"
)

// Defaults for Grouper.
const (
	DefaultCandidates = 5
	DefaultWorkers    = 8
)

// Resolver returns the toplevel of the repository path belongs to.
type Resolver interface {
	Toplevel(ctx context.Context, path string) (string, error)
}

var _ Resolver = (*git.CLI)(nil)

// GroupedProject is a project with its place in the worktree hierarchy.
type GroupedProject struct {
	project.Project
	ParentProjectID  string            `json:"parentProjectId,omitempty"`
	WorktreeChildren []project.Project `json:"worktreeChildren,omitempty"`
}

// Grouper resolves toplevels through a bounded worker pool.
type Grouper struct {
	resolver   Resolver
	cache      *TopLevelCache
	candidates int
	workers    int
	flight     singleflight.Group
}

// Option configures a Grouper.
type Option func(*Grouper)

// WithCandidates sets how many of the most recent projects are resolved.
func WithCandidates(n int) Option {
	return func(p *Grouper) {
		if n > 0 {
			p.candidates = n
		}
	}
}

// WithWorkers sets the number of concurrent lookups.
func WithWorkers(n int) Option {
	return func(p *Grouper) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewGrouper creates a grouper. The cache outlives a single grouping pass.
func NewGrouper(resolver Resolver, cache *TopLevelCache, opts ...Option) *Grouper {
	p := &Grouper{
		resolver:   resolver,
		cache:      cache,
		candidates: DefaultCandidates,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// normalize cleans path; the result never ends in a separator.
func normalize(path string) string {
	return filepath.Clean(path)
}

// GroupByToplevel returns all projects in input order. The most recently
// opened candidates whose toplevel is another known project get that
// project as parent; parents list their children.
func (p *Grouper) GroupByToplevel(ctx context.Context, projects []project.Project) []GroupedProject {
	candidates := slices.Clone(projects)
	slices.SortStableFunc(candidates, func(a, b project.Project) int {
		return b.LastOpenedAt.Compare(a.LastOpenedAt)
	})
	if len(candidates) > p.candidates {
		candidates = candidates[:p.candidates]
	}

	toplevels := p.resolveAll(ctx, candidates)

	byPath := make(map[string]string, len(projects))
	for _, proj := range projects {
		byPath[normalize(proj.Path)] = proj.ID
	}

	parents := make(map[string]string)
	for i, c := range candidates {
		top := toplevels[i]
		if top == nil || *top == normalize(c.Path) {
			continue
		}
		if parentID, ok := byPath[*top]; ok && parentID != c.ID {
			parents[c.ID] = parentID
		}
	}

	grouped := make([]GroupedProject, len(projects))
	for i, proj := range projects {
		grouped[i] = GroupedProject{Project: proj, ParentProjectID: parents[proj.ID]}
	}
	for i := range grouped {
		for _, child := range grouped {
			if child.ParentProjectID == grouped[i].ID {
				grouped[i].WorktreeChildren = append(grouped[i].WorktreeChildren, child.Project)
			}
		}
	}
	return grouped
}

// resolveAll resolves the toplevel of each candidate. Workers pull indices
// from a shared cursor, so at most p.workers resolutions run at once.
func (p *Grouper) resolveAll(ctx context.Context, candidates []project.Project) []*string {
	results := make([]*string, len(candidates))
	var cursor atomic.Int64

	workers := min(p.workers, len(candidates))
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(candidates) || ctx.Err() != nil {
					return nil
				}
				results[i] = p.resolve(ctx, candidates[i].Path)
			}
		})
	}
	_ = g.Wait()
	return results
}

// resolve returns the cached or freshly resolved toplevel of path. Failures
// are cached as nil unless ctx was cancelled. Concurrent lookups of one
// path share a single call.
func (p *Grouper) resolve(ctx context.Context, path string) *string {
	key := normalize(path)
	if e, ok := p.cache.Get(key); ok {
		return e.Value
	}

	v, _, _ := p.flight.Do(key, func() (any, error) {
		if e, ok := p.cache.Get(key); ok {
			return e.Value, nil
		}
		top, err := p.resolver.Toplevel(ctx, key)
		if err != nil {
			log.FromContext(ctx).Debug("toplevel lookup failed", "path", key, "err", err)
			// a cancelled lookup says nothing about the path
			if ctx.Err() == nil {
				p.cache.Set(key, nil)
			}
			return (*string)(nil), nil
		}
		n := normalize(top)
		p.cache.Set(key, &n)
		return &n, nil
	})
	return v.(*string)
}
