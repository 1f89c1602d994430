package repo

import (
	"context"

	"github.com/gitagen/gitagen/internal/git"
)

// Reads is the read side of the git provider.
type Reads interface {
	Fingerprint(ctx context.Context, cwd string) (*git.Fingerprint, error)
	HeadOID(ctx context.Context, cwd string) (string, error)
	Status(ctx context.Context, cwd string) (*git.Status, error)
	Tree(ctx context.Context, opts git.TreeOptions) ([]git.TreeEntry, error)
	Patch(ctx context.Context, opts git.PatchOptions) (string, error)
	Log(ctx context.Context, opts git.LogOptions) (*git.LogResult, error)
	ConflictFiles(ctx context.Context, cwd string) ([]string, error)
	ConflictType(ctx context.Context, cwd string) (git.ConflictType, error)
}

// Mutations is the write side of the git provider.
type Mutations interface {
	Stage(ctx context.Context, cwd string, paths ...string) error
	Unstage(ctx context.Context, cwd string, paths ...string) error
	Discard(ctx context.Context, cwd string, paths ...string) error
	Commit(ctx context.Context, cwd, message string, amend bool) (string, error)
	Checkout(ctx context.Context, cwd, ref string) error
	CreateBranch(ctx context.Context, cwd, branch, startPoint string, checkout bool) error
	Stash(ctx context.Context, cwd, message string) error
	StashPop(ctx context.Context, cwd string) error
	Fetch(ctx context.Context, cwd, remote string) error
	Pull(ctx context.Context, cwd string, rebase bool) error
	Push(ctx context.Context, cwd, remote string, force bool) error
	Merge(ctx context.Context, cwd, ref string) error
	Rebase(ctx context.Context, cwd, ref string) error
	CherryPick(ctx context.Context, cwd, oid string) error
}

// Provider is the git provider used by this package. *git.CLI satisfies it.
type Provider interface {
	Reads
	Mutations
}

// ProjectResolver maps a project id to the directory git runs in.
type ProjectResolver interface {
	ResolveCwd(ctx context.Context, projectID string) (string, error)
}

var _ Provider = (*git.CLI)(nil)
