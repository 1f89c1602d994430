package worktree

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMainWorktree is returned when the main worktree is passed for removal.
var ErrMainWorktree = errors.New("cannot remove the main worktree")

// MissingBranchError is returned by Add when the branch does not exist and
// creating it was not requested.
type MissingBranchError struct {
	Branch string
}

func (e *MissingBranchError) Error() string {
	return fmt.Sprintf("branch %q does not exist (pass new branch to create it)", e.Branch)
}

// BranchAlreadyCheckedOutError is returned by Add when the branch is checked
// out in another worktree. SuggestBranchName offers an alternative.
type BranchAlreadyCheckedOutError struct {
	Branch string
	Path   string // worktree holding the branch, if git reported it
	Err    error
}

func (e *BranchAlreadyCheckedOutError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("branch %q is already checked out at %s", e.Branch, e.Path)
	}
	return fmt.Sprintf("branch %q is already checked out", e.Branch)
}

func (e *BranchAlreadyCheckedOutError) Unwrap() error { return e.Err }

// DirtyWorktreeError is returned by Remove when the worktree has local
// changes. Retrying with force removes it anyway.
type DirtyWorktreeError struct {
	Path string
	Err  error
}

func (e *DirtyWorktreeError) Error() string {
	return fmt.Sprintf("worktree %s has modified or untracked files", e.Path)
}

func (e *DirtyWorktreeError) Unwrap() error { return e.Err }

// ErrorKind is the classification of a git worktree failure.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindBranchCheckedOut
	KindDirtyWorktree
)

func (k ErrorKind) String() string {
	switch k {
	case KindBranchCheckedOut:
		return "branch-checked-out"
	case KindDirtyWorktree:
		return "dirty-worktree"
	}
	return "none"
}

var (
	checkedOutPatterns = []string{
		"is already checked out",
		"already checked out",
		"is already used by worktree",
	}
	dirtyPatterns = []string{
		"contains modified or untracked files",
		"contains local changes",
		"use --force",
	}
	checkedOutAt = regexp.MustCompile(`(?:checked out|used by worktree) at '([^']+)'`)
)

// Classify maps git's error text to an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	msg := err.Error()
	for _, p := range checkedOutPatterns {
		if strings.Contains(msg, p) {
			return KindBranchCheckedOut
		}
	}
	for _, p := range dirtyPatterns {
		if strings.Contains(msg, p) {
			return KindDirtyWorktree
		}
	}
	return KindNone
}

// checkedOutPath extracts the holding worktree from git's message.
func checkedOutPath(err error) string {
	if m := checkedOutAt.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return ""
}
