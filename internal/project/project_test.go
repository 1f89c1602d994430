package project

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRegistry_AddFindRemove(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := &Registry{}

	p, err := reg.Add("/repos/app", "", now)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if p.Name != "app" || p.ID == "" || !p.CreatedAt.Equal(now) {
		t.Errorf("Add = %+v", p)
	}

	if _, err := reg.Add("/repos/app", "other", now); err == nil {
		t.Error("expected duplicate path error")
	}
	if _, err := reg.Add("/elsewhere/app", "", now); err == nil {
		t.Error("expected duplicate name error")
	}

	for _, ref := range []string{p.ID, "app", "/repos/app", "/repos/app/"} {
		got, err := reg.Find(ref)
		if err != nil {
			t.Errorf("Find(%q) failed: %v", ref, err)
			continue
		}
		if got.ID != p.ID {
			t.Errorf("Find(%q) = %s, want %s", ref, got.ID, p.ID)
		}
	}

	removed, err := reg.Remove("app")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed.ID != p.ID || len(reg.Projects) != 0 {
		t.Errorf("Remove = %+v, remaining %v", removed, reg.Projects)
	}
}

func TestRegistry_FindSuggestions(t *testing.T) {
	t.Parallel()

	reg := &Registry{}
	for _, path := range []string{"/r/backend", "/r/frontend", "/r/docs"} {
		if _, err := reg.Add(path, "", time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	_, err := reg.Find("bkend")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if len(nf.Suggestions) == 0 || nf.Suggestions[0] != "backend" {
		t.Errorf("suggestions = %v, want backend first", nf.Suggestions)
	}
	if !strings.Contains(err.Error(), "did you mean backend") {
		t.Errorf("error = %q", err)
	}
}

func TestRegistry_ResolveCwd(t *testing.T) {
	t.Parallel()

	reg := &Registry{}
	p, _ := reg.Add("/repos/app", "", time.Now())

	cwd, err := reg.ResolveCwd(p.ID)
	if err != nil || cwd != "/repos/app" {
		t.Errorf("ResolveCwd = %q, %v", cwd, err)
	}

	if err := reg.SetActiveWorktree(p.ID, "/wt/app/feature"); err != nil {
		t.Fatalf("SetActiveWorktree failed: %v", err)
	}
	cwd, _ = reg.ResolveCwd(p.ID)
	if cwd != "/wt/app/feature" {
		t.Errorf("ResolveCwd with active worktree = %q", cwd)
	}

	if err := reg.SetActiveWorktree(p.ID, ""); err != nil {
		t.Fatalf("SetActiveWorktree failed: %v", err)
	}
	if _, ok := reg.Prefs[p.ID]; ok {
		t.Error("empty prefs should be dropped")
	}

	if _, err := reg.ResolveCwd("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveCwd(missing) = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateAndResolve(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "projects.json")
	s := NewStore(path)

	reg, err := s.Load()
	if err != nil {
		t.Fatalf("Load on missing file failed: %v", err)
	}
	if len(reg.Projects) != 0 {
		t.Errorf("expected empty registry, got %v", reg.Projects)
	}

	var id string
	err = s.Update(func(r *Registry) error {
		p, err := r.Add("/repos/app", "", time.Now())
		if err != nil {
			return err
		}
		id = p.ID
		return r.SetActiveWorktree(id, "/wt/app/x")
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cwd, err := s.ResolveCwd(context.Background(), id)
	if err != nil {
		t.Fatalf("ResolveCwd failed: %v", err)
	}
	if cwd != "/wt/app/x" {
		t.Errorf("cwd = %q, want /wt/app/x", cwd)
	}

	if err := s.Update(func(r *Registry) error { return errors.New("abort") }); err == nil {
		t.Error("expected callback error to propagate")
	}
	reg, _ = s.Load()
	if len(reg.Projects) != 1 {
		t.Errorf("aborted update should not change the file, got %v", reg.Projects)
	}
}
