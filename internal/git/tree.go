package git

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Tree lists the files of the working tree of opts.Cwd annotated with their
// status. Ignored files are included (directories collapsed) only when
// requested; ChangedOnly keeps just the entries that carry a status.
func (c *CLI) Tree(ctx context.Context, opts TreeOptions) ([]TreeEntry, error) {
	output, err := outputGit(ctx, opts.Cwd, "ls-files", "-z", "--full-name", "--cached", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	files := splitNUL(output)

	st, err := c.Status(ctx, opts.Cwd)
	if err != nil {
		return nil, err
	}
	changes := make(map[string]string)
	for _, bucket := range [][]FileChange{st.Staged, st.Unstaged, st.Untracked} {
		for _, fc := range bucket {
			changes[fc.Path] = fc.ChangeType
		}
	}

	seen := make(map[string]bool, len(files))
	entries := make([]TreeEntry, 0, len(files))
	for _, f := range files {
		if seen[f] {
			// ls-files repeats unmerged paths once per stage
			continue
		}
		seen[f] = true
		entries = append(entries, TreeEntry{Path: f, Status: changes[f]})
	}

	// Staged deletions are gone from the index listing but belong in the tree
	for _, fc := range st.Staged {
		if fc.ChangeType == ChangeDeleted && !seen[fc.Path] {
			seen[fc.Path] = true
			entries = append(entries, TreeEntry{Path: fc.Path, Status: ChangeDeleted})
		}
	}

	if opts.IncludeIgnored {
		output, err := outputGit(ctx, opts.Cwd, "ls-files", "-z", "--full-name", "--others", "--ignored", "--exclude-standard", "--directory")
		if err != nil {
			return nil, fmt.Errorf("failed to list ignored files: %w", err)
		}
		for _, f := range splitNUL(output) {
			if !seen[f] {
				entries = append(entries, TreeEntry{Path: f, Ignored: true})
			}
		}
	}

	if opts.ChangedOnly {
		entries = slices.DeleteFunc(entries, func(e TreeEntry) bool { return e.Status == "" })
	}

	slices.SortFunc(entries, func(a, b TreeEntry) int { return strings.Compare(a.Path, b.Path) })
	return entries, nil
}
