package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()

	repoPath := setupTestRepo(t)
	ctx := context.Background()
	c := New()

	fp, err := c.Fingerprint(ctx, repoPath)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fp.RepoPath != repoPath {
		t.Errorf("RepoPath = %q, want %q", fp.RepoPath, repoPath)
	}
	head, _ := c.HeadOID(ctx, repoPath)
	if fp.HeadOID != head {
		t.Errorf("HeadOID = %q, want %q", fp.HeadOID, head)
	}
	if fp.IndexMtimeMs == 0 || fp.HeadMtimeMs == 0 {
		t.Errorf("expected non-zero mtimes, got %+v", fp)
	}
	if len(fp.StatusHash) != 16 {
		t.Errorf("StatusHash = %q, want 16 hex chars", fp.StatusHash)
	}

	again, err := c.Fingerprint(ctx, repoPath)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if *again != *fp {
		t.Errorf("fingerprint of unchanged repo differs: %+v vs %+v", again, fp)
	}
}

func TestFingerprint_TracksRepeatedEdits(t *testing.T) {
	t.Parallel()

	repoPath := setupTestRepo(t)
	ctx := context.Background()
	c := New()

	writeFile(t, repoPath, "README.md", "# one\n")
	first, err := c.Fingerprint(ctx, repoPath)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	// Same " M" status line, different content and mtime
	writeFile(t, repoPath, "README.md", "# second edit\n")
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(repoPath, "README.md"), later, later); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
	second, err := c.Fingerprint(ctx, repoPath)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if first.StatusHash == second.StatusHash {
		t.Error("StatusHash should change when a modified file is edited again")
	}
}

func TestFingerprint_WorktreeHasOwnHead(t *testing.T) {
	t.Parallel()

	repoPath := setupTestRepo(t)
	ctx := context.Background()
	c := New()

	wtPath := filepath.Join(filepath.Dir(repoPath), "wt")
	if err := runGit(ctx, repoPath, "worktree", "add", "-b", "wt", wtPath); err != nil {
		t.Fatalf("failed to create worktree: %v", err)
	}
	writeFile(t, wtPath, "only-here.txt", "x\n")

	mainFP, err := c.Fingerprint(ctx, repoPath)
	if err != nil {
		t.Fatalf("Fingerprint(main) failed: %v", err)
	}
	wt, err := c.Fingerprint(ctx, wtPath)
	if err != nil {
		t.Fatalf("Fingerprint(worktree) failed: %v", err)
	}
	if wt.RepoPath != wtPath {
		t.Errorf("worktree RepoPath = %q, want %q", wt.RepoPath, wtPath)
	}
	if mainFP.StatusHash == wt.StatusHash {
		t.Error("worktree with an untracked file should not share the main status hash")
	}
}

func TestFingerprint_NotARepo(t *testing.T) {
	t.Parallel()

	if _, err := New().Fingerprint(context.Background(), resolveTempDir(t)); err == nil {
		t.Error("expected error outside a repository")
	}
}
