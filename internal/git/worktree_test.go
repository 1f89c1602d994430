package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseWorktreeList(t *testing.T) {
	t.Parallel()

	input := `worktree /repos/app
HEAD 1111111111111111111111111111111111111111
branch refs/heads/main

worktree /repos/wt/app/feature
HEAD 2222222222222222222222222222222222222222
branch refs/heads/feature
locked reason

worktree /repos/wt/app/detached
HEAD 3333333333333333333333333333333333333333
detached
prunable gitdir file points to non-existent location

`
	wts := ParseWorktreeList([]byte(input))
	if len(wts) != 3 {
		t.Fatalf("got %d worktrees, want 3", len(wts))
	}

	want := []WorktreeInfo{
		{Path: "/repos/app", Branch: "main", Head: strings.Repeat("1", 40), IsMainWorktree: true, Name: "app"},
		{Path: "/repos/wt/app/feature", Branch: "feature", Head: strings.Repeat("2", 40), Name: "feature", Locked: true},
		{Path: "/repos/wt/app/detached", Branch: "(detached)", Head: strings.Repeat("3", 40), Name: "detached", Prunable: true},
	}
	for i := range want {
		if wts[i] != want[i] {
			t.Errorf("worktree %d = %+v, want %+v", i, wts[i], want[i])
		}
	}
}

func TestAddWorktree(t *testing.T) {
	t.Parallel()

	repoPath := setupTestRepo(t)
	tmpDir := filepath.Dir(repoPath)
	ctx := context.Background()
	c := New()

	if err := runGit(ctx, repoPath, "branch", "existing-branch"); err != nil {
		t.Fatalf("failed to create branch: %v", err)
	}

	t.Run("existing branch", func(t *testing.T) {
		wtPath := filepath.Join(tmpDir, "wt-existing")
		if err := c.AddWorktree(ctx, WorktreeAddOptions{RepoPath: repoPath, Path: wtPath, Branch: "existing-branch"}); err != nil {
			t.Fatalf("AddWorktree failed: %v", err)
		}
		branch, err := c.CurrentBranch(ctx, wtPath)
		if err != nil {
			t.Fatalf("CurrentBranch failed: %v", err)
		}
		if branch != "existing-branch" {
			t.Errorf("branch = %q, want existing-branch", branch)
		}
	})

	t.Run("new branch", func(t *testing.T) {
		wtPath := filepath.Join(tmpDir, "wt-new")
		opts := WorktreeAddOptions{RepoPath: repoPath, Path: wtPath, Branch: "new-feature", NewBranch: true, StartPoint: "main"}
		if err := c.AddWorktree(ctx, opts); err != nil {
			t.Fatalf("AddWorktree failed: %v", err)
		}
		if _, err := os.Stat(wtPath); err != nil {
			t.Fatalf("worktree dir should exist: %v", err)
		}
		branch, _ := c.CurrentBranch(ctx, wtPath)
		if branch != "new-feature" {
			t.Errorf("branch = %q, want new-feature", branch)
		}
	})

	t.Run("branch already checked out", func(t *testing.T) {
		err := c.AddWorktree(ctx, WorktreeAddOptions{RepoPath: repoPath, Path: filepath.Join(tmpDir, "wt-dup"), Branch: "main"})
		if err == nil {
			t.Fatal("expected error adding a worktree for a checked out branch")
		}
		if !strings.Contains(err.Error(), "main") {
			t.Errorf("error should carry git's message, got %v", err)
		}
	})

	wts, err := c.ListWorktrees(ctx, repoPath)
	if err != nil {
		t.Fatalf("ListWorktrees failed: %v", err)
	}
	if len(wts) != 3 || !wts[0].IsMainWorktree || wts[0].Path != repoPath {
		t.Errorf("worktrees = %+v", wts)
	}
}

func TestRemoveWorktree(t *testing.T) {
	t.Parallel()

	repoPath := setupTestRepo(t)
	ctx := context.Background()
	c := New()

	wtPath := filepath.Join(filepath.Dir(repoPath), "wt-to-remove")
	if err := runGit(ctx, repoPath, "worktree", "add", "-b", "remove-me", wtPath); err != nil {
		t.Fatalf("failed to create worktree: %v", err)
	}

	writeFile(t, wtPath, "dirty.txt", "x\n")
	if err := c.RemoveWorktree(ctx, repoPath, wtPath, false); err == nil {
		t.Fatal("expected error removing a dirty worktree without force")
	}

	if err := c.RemoveWorktree(ctx, repoPath, wtPath, true); err != nil {
		t.Fatalf("RemoveWorktree(force) failed: %v", err)
	}
	if _, err := os.Stat(wtPath); !os.IsNotExist(err) {
		t.Error("worktree dir should be removed")
	}
}

func TestPruneWorktrees(t *testing.T) {
	t.Parallel()

	repoPath := setupTestRepo(t)
	ctx := context.Background()
	c := New()

	// Create a worktree then manually rm -rf the directory
	wtPath := filepath.Join(filepath.Dir(repoPath), "wt-to-prune")
	if err := runGit(ctx, repoPath, "worktree", "add", "-b", "prune-me", wtPath); err != nil {
		t.Fatalf("failed to create worktree: %v", err)
	}
	if err := os.RemoveAll(wtPath); err != nil {
		t.Fatalf("failed to remove worktree dir: %v", err)
	}

	if err := c.PruneWorktrees(ctx, repoPath); err != nil {
		t.Fatalf("PruneWorktrees failed: %v", err)
	}

	wts, err := c.ListWorktrees(ctx, repoPath)
	if err != nil {
		t.Fatalf("ListWorktrees failed: %v", err)
	}
	for _, wt := range wts {
		if wt.Branch == "prune-me" {
			t.Error("pruned worktree should not appear in list")
		}
	}
}
