package git

import (
	"context"
	"fmt"
	"strings"
)

// Status returns the working tree status of cwd.
func (c *CLI) Status(ctx context.Context, cwd string) (*Status, error) {
	output, err := outputGit(ctx, cwd, "--no-optional-locks", "status", "--porcelain=v1", "-z", "--branch", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	st := ParseStatus(output)
	return &st, nil
}

// ParseStatus parses "git status --porcelain=v1 -z [--branch]" output.
// Unmerged paths are reported in the unstaged bucket only.
func ParseStatus(output []byte) Status {
	st := Status{
		Staged:    []FileChange{},
		Unstaged:  []FileChange{},
		Untracked: []FileChange{},
	}

	records := splitNUL(output)
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if strings.HasPrefix(rec, "## ") {
			st.Branch, st.Upstream = parseBranchHeader(rec[3:])
			continue
		}
		if len(rec) < 4 {
			continue
		}

		x, y, path := rec[0], rec[1], rec[3:]

		var oldPath string
		if x == 'R' || x == 'C' || y == 'R' || y == 'C' {
			// The source path follows as its own record
			if i+1 < len(records) {
				oldPath = records[i+1]
				i++
			}
		}

		switch {
		case x == '?' && y == '?':
			st.Untracked = append(st.Untracked, FileChange{Path: path, ChangeType: ChangeUntracked})
		case x == '!' && y == '!':
			// ignored files are not part of status
		case isUnmerged(x, y):
			st.Unstaged = append(st.Unstaged, FileChange{Path: path, ChangeType: ChangeUnmerged})
		default:
			if ct := changeType(x); ct != "" {
				st.Staged = append(st.Staged, FileChange{Path: path, ChangeType: ct, OldPath: oldPath})
			}
			if ct := changeType(y); ct != "" {
				fc := FileChange{Path: path, ChangeType: ct}
				if y == 'R' || y == 'C' {
					fc.OldPath = oldPath
				}
				st.Unstaged = append(st.Unstaged, fc)
			}
		}
	}

	return st
}

// parseBranchHeader parses "main...origin/main [ahead 1]" or
// "No commits yet on main".
func parseBranchHeader(h string) (branch, upstream string) {
	if rest, ok := strings.CutPrefix(h, "No commits yet on "); ok {
		return rest, ""
	}
	if i := strings.Index(h, " ["); i != -1 {
		h = h[:i]
	}
	branch, upstream, _ = strings.Cut(h, "...")
	if branch == "HEAD (no branch)" {
		branch = "(detached)"
	}
	return branch, upstream
}

func isUnmerged(x, y byte) bool {
	if x == 'U' || y == 'U' {
		return true
	}
	return (x == 'A' && y == 'A') || (x == 'D' && y == 'D')
}

func changeType(code byte) string {
	switch code {
	case 'A':
		return ChangeAdded
	case 'M':
		return ChangeModified
	case 'D':
		return ChangeDeleted
	case 'R':
		return ChangeRenamed
	case 'C':
		return ChangeCopied
	case 'T':
		return ChangeTypeChange
	}
	return ""
}
