package git

import "time"

// Fingerprint captures the signals that change whenever git-derived data
// for a working directory may have changed.
type Fingerprint struct {
	RepoPath     string `json:"repoPath"`
	HeadOID      string `json:"headOid"` // empty for an unborn HEAD
	IndexMtimeMs int64  `json:"indexMtimeMs"`
	HeadMtimeMs  int64  `json:"headMtimeMs"`
	StatusHash   string `json:"statusHash"`
}

// Change types reported in FileChange.ChangeType.
const (
	ChangeAdded      = "added"
	ChangeModified   = "modified"
	ChangeDeleted    = "deleted"
	ChangeRenamed    = "renamed"
	ChangeCopied     = "copied"
	ChangeTypeChange = "typechange"
	ChangeUnmerged   = "unmerged"
	ChangeUntracked  = "untracked"
)

// FileChange is one path in a status bucket.
type FileChange struct {
	Path       string `json:"path"`
	ChangeType string `json:"changeType"`
	OldPath    string `json:"oldPath,omitempty"` // renames and copies
}

// Status is the working tree state split into buckets.
type Status struct {
	Branch    string       `json:"branch,omitempty"`
	Upstream  string       `json:"upstream,omitempty"`
	Staged    []FileChange `json:"staged"`
	Unstaged  []FileChange `json:"unstaged"`
	Untracked []FileChange `json:"untracked"`
}

// Clean reports whether the status has no changes in any bucket.
func (s *Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// TreeOptions selects which files a tree listing includes.
type TreeOptions struct {
	Cwd            string
	IncludeIgnored bool
	ChangedOnly    bool
}

// TreeEntry is a file in the working tree listing.
type TreeEntry struct {
	Path    string `json:"path"`
	Status  string `json:"status,omitempty"` // change type, empty when unchanged
	Ignored bool   `json:"ignored,omitempty"`
}

// PatchScope is the status bucket a patch is computed for.
type PatchScope string

const (
	ScopeStaged    PatchScope = "staged"
	ScopeUnstaged  PatchScope = "unstaged"
	ScopeUntracked PatchScope = "untracked"
)

// Valid reports whether s is one of the known scopes.
func (s PatchScope) Valid() bool {
	switch s {
	case ScopeStaged, ScopeUnstaged, ScopeUntracked:
		return true
	}
	return false
}

// PatchOptions identifies a single file patch.
type PatchOptions struct {
	Cwd      string
	FilePath string
	Scope    PatchScope
}

// Commit is one entry of the commit log.
type Commit struct {
	OID      string    `json:"oid"`
	ShortOID string    `json:"shortOid"`
	Author   string    `json:"author"`
	Email    string    `json:"email"`
	Date     time.Time `json:"date"`
	Parents  []string  `json:"parents,omitempty"`
	Subject  string    `json:"subject"`
}

// DefaultLogLimit is used when LogOptions.Limit is not positive.
const DefaultLogLimit = 100

// LogOptions selects a page of the commit log.
type LogOptions struct {
	Cwd    string
	Branch string // empty = HEAD
	Limit  int
	Offset int
}

// IsDefault reports whether the query is the unfiltered first page.
func (o LogOptions) IsDefault() bool {
	return o.Branch == "" && o.Offset == 0
}

// LogResult is a page of commits plus the HEAD it was computed against.
type LogResult struct {
	Commits      []Commit `json:"commits"`
	HeadOID      string   `json:"headOid"`
	UnpushedOIDs []string `json:"unpushedOids"`
}

// WorktreeInfo describes one worktree of a repository.
type WorktreeInfo struct {
	Path           string `json:"path"`
	Branch         string `json:"branch"` // "(detached)" for a detached HEAD
	Head           string `json:"head"`
	IsMainWorktree bool   `json:"isMainWorktree"`
	Name           string `json:"name"`
	Locked         bool   `json:"locked,omitempty"`
	Prunable       bool   `json:"prunable,omitempty"`
}

// WorktreeAddOptions configures "git worktree add".
type WorktreeAddOptions struct {
	RepoPath   string
	Path       string
	Branch     string
	NewBranch  bool   // create Branch with -b
	StartPoint string // base for a new branch; empty = HEAD
}

// ConflictType names the operation that left the repository conflicted.
type ConflictType string

const (
	ConflictMerge      ConflictType = "merge"
	ConflictRebase     ConflictType = "rebase"
	ConflictCherryPick ConflictType = "cherry-pick"
)

// ConflictState is derived after a mutation that can conflict. Never persisted.
type ConflictState struct {
	Type          ConflictType `json:"type"`
	ConflictFiles []string     `json:"conflictFiles"`
}
