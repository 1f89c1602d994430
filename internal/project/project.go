// Package project manages the project registry at ~/.gitagen/projects.json.
//
// A project is a git working directory the user opened. Each project may
// carry prefs; ActiveWorktreePath redirects git operations of the project
// to one of its worktrees.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/gitagen/gitagen/internal/storage"
)

// ErrNotFound is matched by every lookup failure.
var ErrNotFound = errors.New("project not found")

// Project is a registered working directory.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	LastOpenedAt time.Time `json:"lastOpenedAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Prefs are per-project settings.
type Prefs struct {
	// ActiveWorktreePath, when set, is used instead of Path as the cwd for
	// git operations.
	ActiveWorktreePath string `json:"activeWorktreePath,omitempty"`
}

// Registry holds all projects and their prefs.
type Registry struct {
	Projects []Project        `json:"projects"`
	Prefs    map[string]Prefs `json:"prefs,omitempty"`
}

// NotFoundError reports a failed lookup with close matches, if any.
type NotFoundError struct {
	Ref         string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("project not found: %s", e.Ref)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Add registers the directory at path. Name defaults to the directory name.
func (r *Registry) Add(path, name string, now time.Time) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	absPath = filepath.Clean(absPath)
	if name == "" {
		name = filepath.Base(absPath)
	}

	for _, existing := range r.Projects {
		if existing.Path == absPath {
			return nil, fmt.Errorf("project already registered: %s", absPath)
		}
		if existing.Name == name {
			return nil, fmt.Errorf("project name already exists: %s (use --name to pick another)", name)
		}
	}

	r.Projects = append(r.Projects, Project{
		ID:           uuid.NewString(),
		Name:         name,
		Path:         absPath,
		LastOpenedAt: now,
		CreatedAt:    now,
	})
	return &r.Projects[len(r.Projects)-1], nil
}

// Remove unregisters a project by id, name or path and drops its prefs.
func (r *Registry) Remove(ref string) (Project, error) {
	p, err := r.Find(ref)
	if err != nil {
		return Project{}, err
	}
	removed := *p
	r.Projects = slices.DeleteFunc(r.Projects, func(x Project) bool { return x.ID == removed.ID })
	delete(r.Prefs, removed.ID)
	return removed, nil
}

// Find looks up a project by id, name or path.
func (r *Registry) Find(ref string) (*Project, error) {
	absRef := ref
	if filepath.IsAbs(ref) {
		absRef = filepath.Clean(ref)
	}
	for i := range r.Projects {
		p := &r.Projects[i]
		if p.ID == ref || p.Name == ref || p.Path == absRef {
			return p, nil
		}
	}
	return nil, &NotFoundError{Ref: ref, Suggestions: r.suggest(ref)}
}

// suggest returns up to three project names that fuzzily match ref.
func (r *Registry) suggest(ref string) []string {
	names := r.Names()
	var out []string
	for _, m := range fuzzy.Find(ref, names) {
		out = append(out, m.Str)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// Names returns all project names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.Projects))
	for i, p := range r.Projects {
		names[i] = p.Name
	}
	slices.Sort(names)
	return names
}

// Touch marks the project as opened at now.
func (r *Registry) Touch(id string, now time.Time) error {
	p, err := r.Find(id)
	if err != nil {
		return err
	}
	p.LastOpenedAt = now
	return nil
}

// SetActiveWorktree points the project's git operations at path. An empty
// path restores the project path.
func (r *Registry) SetActiveWorktree(id, path string) error {
	p, err := r.Find(id)
	if err != nil {
		return err
	}
	if r.Prefs == nil {
		r.Prefs = make(map[string]Prefs)
	}
	prefs := r.Prefs[p.ID]
	prefs.ActiveWorktreePath = path
	if prefs == (Prefs{}) {
		delete(r.Prefs, p.ID)
		return nil
	}
	r.Prefs[p.ID] = prefs
	return nil
}

// ResolveCwd returns the directory git operations of the project run in.
func (r *Registry) ResolveCwd(id string) (string, error) {
	for _, p := range r.Projects {
		if p.ID != id {
			continue
		}
		if active := r.Prefs[p.ID].ActiveWorktreePath; active != "" {
			return active, nil
		}
		return p.Path, nil
	}
	return "", &NotFoundError{Ref: id}
}

// Store persists the registry in a JSON file.
type Store struct {
	path string
}

// DefaultPath returns ~/.gitagen/projects.json.
func DefaultPath() (string, error) {
	dir, err := storage.AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "projects.json"), nil
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the registry. A missing file is an empty registry.
func (s *Store) Load() (*Registry, error) {
	reg := &Registry{Projects: []Project{}}
	if err := storage.LoadJSON(s.path, reg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read projects: %w", err)
	}
	return reg, nil
}

// Update applies fn to the registry under a file lock and saves it.
func (s *Store) Update(fn func(*Registry) error) error {
	reg := &Registry{Projects: []Project{}}
	return storage.UpdateJSON(s.path, reg, func() error { return fn(reg) })
}

// ResolveCwd returns the effective working directory of a project.
func (s *Store) ResolveCwd(_ context.Context, projectID string) (string, error) {
	reg, err := s.Load()
	if err != nil {
		return "", err
	}
	return reg.ResolveCwd(projectID)
}
