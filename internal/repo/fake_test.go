package repo

import (
	"context"
	"sync"

	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/project"
)

type resolver map[string]string

func (r resolver) ResolveCwd(_ context.Context, projectID string) (string, error) {
	if cwd, ok := r[projectID]; ok {
		return cwd, nil
	}
	return "", &project.NotFoundError{Ref: projectID}
}

// fakeProvider implements the reads used by the tests; unimplemented
// methods panic through the nil embedded interface.
type fakeProvider struct {
	Provider

	mu          sync.Mutex
	fp          *git.Fingerprint
	fpErr       error
	head        string
	status      *git.Status
	tree        []git.TreeEntry
	patch       string
	commits     []git.Commit
	conflicts   []string
	conflictErr error
	calls       map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		fp:     &git.Fingerprint{RepoPath: "/r", HeadOID: "abc", StatusHash: "h1"},
		head:   "abc",
		status: &git.Status{Branch: "main", Staged: []git.FileChange{}, Unstaged: []git.FileChange{{Path: "a.go", ChangeType: git.ChangeModified}}, Untracked: []git.FileChange{}},
		calls:  map[string]int{},
	}
}

func (f *fakeProvider) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeProvider) inc(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeProvider) Fingerprint(context.Context, string) (*git.Fingerprint, error) {
	f.inc("Fingerprint")
	if f.fpErr != nil {
		return nil, f.fpErr
	}
	fp := *f.fp
	return &fp, nil
}

func (f *fakeProvider) HeadOID(context.Context, string) (string, error) {
	f.inc("HeadOID")
	return f.head, nil
}

func (f *fakeProvider) Status(context.Context, string) (*git.Status, error) {
	f.inc("Status")
	st := *f.status
	return &st, nil
}

func (f *fakeProvider) Tree(_ context.Context, opts git.TreeOptions) ([]git.TreeEntry, error) {
	f.inc("Tree")
	return f.tree, nil
}

func (f *fakeProvider) Patch(context.Context, git.PatchOptions) (string, error) {
	f.inc("Patch")
	return f.patch, nil
}

func (f *fakeProvider) Log(_ context.Context, opts git.LogOptions) (*git.LogResult, error) {
	f.inc("Log")
	commits := f.commits
	if opts.Offset < len(commits) {
		commits = commits[opts.Offset:]
	} else {
		commits = nil
	}
	if opts.Limit < len(commits) {
		commits = commits[:opts.Limit]
	}
	return &git.LogResult{Commits: commits, HeadOID: f.head, UnpushedOIDs: []string{}}, nil
}

func (f *fakeProvider) ConflictFiles(context.Context, string) ([]string, error) {
	f.inc("ConflictFiles")
	return f.conflicts, f.conflictErr
}

func (f *fakeProvider) ConflictType(context.Context, string) (git.ConflictType, error) {
	return git.ConflictRebase, nil
}

func (f *fakeProvider) Stage(context.Context, string, ...string) error {
	f.inc("Stage")
	return nil
}

func (f *fakeProvider) Merge(context.Context, string, string) error {
	f.inc("Merge")
	if len(f.conflicts) > 0 {
		return errMergeConflict
	}
	return nil
}
