package git

import (
	"context"
	"reflect"
	"testing"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		branch    string
		upstream  string
		staged    []FileChange
		unstaged  []FileChange
		untracked []FileChange
	}{
		{
			name:     "branch header with upstream",
			input:    "## main...origin/main [ahead 1]\x00",
			branch:   "main",
			upstream: "origin/main",
		},
		{
			name:   "unborn branch",
			input:  "## No commits yet on main\x00?? a.txt\x00",
			branch: "main",
			untracked: []FileChange{
				{Path: "a.txt", ChangeType: ChangeUntracked},
			},
		},
		{
			name:  "staged and unstaged on one path",
			input: "MM file.go\x00",
			staged: []FileChange{
				{Path: "file.go", ChangeType: ChangeModified},
			},
			unstaged: []FileChange{
				{Path: "file.go", ChangeType: ChangeModified},
			},
		},
		{
			name:  "rename carries old path",
			input: "R  new.go\x00old.go\x00 D gone.go\x00",
			staged: []FileChange{
				{Path: "new.go", ChangeType: ChangeRenamed, OldPath: "old.go"},
			},
			unstaged: []FileChange{
				{Path: "gone.go", ChangeType: ChangeDeleted},
			},
		},
		{
			name:  "unmerged goes to unstaged",
			input: "UU conflict.txt\x00AA both.txt\x00",
			unstaged: []FileChange{
				{Path: "conflict.txt", ChangeType: ChangeUnmerged},
				{Path: "both.txt", ChangeType: ChangeUnmerged},
			},
		},
		{
			name:   "detached head",
			input:  "## HEAD (no branch)\x00A  added.txt\x00",
			branch: "(detached)",
			staged: []FileChange{
				{Path: "added.txt", ChangeType: ChangeAdded},
			},
		},
		{
			name:  "ignored entries are skipped",
			input: "!! build/\x00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ParseStatus([]byte(tt.input))
			if got.Branch != tt.branch || got.Upstream != tt.upstream {
				t.Errorf("branch = %q/%q, want %q/%q", got.Branch, got.Upstream, tt.branch, tt.upstream)
			}
			check := func(bucket string, got, want []FileChange) {
				if want == nil {
					want = []FileChange{}
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("%s = %+v, want %+v", bucket, got, want)
				}
			}
			check("staged", got.Staged, tt.staged)
			check("unstaged", got.Unstaged, tt.unstaged)
			check("untracked", got.Untracked, tt.untracked)
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	repoPath := setupTestRepo(t)
	ctx := context.Background()
	c := New()

	st, err := c.Status(ctx, repoPath)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !st.Clean() {
		t.Errorf("fresh repo should be clean, got %+v", st)
	}
	if st.Branch != "main" {
		t.Errorf("branch = %q, want main", st.Branch)
	}

	writeFile(t, repoPath, "README.md", "# changed\n")
	writeFile(t, repoPath, "staged.txt", "staged\n")
	writeFile(t, repoPath, "new.txt", "new\n")
	if err := runGit(ctx, repoPath, "add", "staged.txt"); err != nil {
		t.Fatalf("failed to stage: %v", err)
	}

	st, err = c.Status(ctx, repoPath)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(st.Staged) != 1 || st.Staged[0] != (FileChange{Path: "staged.txt", ChangeType: ChangeAdded}) {
		t.Errorf("staged = %+v", st.Staged)
	}
	if len(st.Unstaged) != 1 || st.Unstaged[0] != (FileChange{Path: "README.md", ChangeType: ChangeModified}) {
		t.Errorf("unstaged = %+v", st.Unstaged)
	}
	if len(st.Untracked) != 1 || st.Untracked[0].Path != "new.txt" {
		t.Errorf("untracked = %+v", st.Untracked)
	}
}
