package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	logFormat = "%H%x1f%h%x1f%an%x1f%ae%x1f%aI%x1f%P%x1f%s%x1e"
)

// Log returns a page of the commit log for opts.Branch (or HEAD), together
// with the current HEAD and the commits not yet pushed to the upstream.
func (c *CLI) Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	head, err := c.HeadOID(ctx, opts.Cwd)
	if err != nil {
		return nil, err
	}

	result := &LogResult{HeadOID: head, Commits: []Commit{}, UnpushedOIDs: []string{}}
	if head == "" && opts.Branch == "" {
		// unborn HEAD, nothing to list
		return result, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	args := []string{"log", "--format=" + logFormat, "-n", strconv.Itoa(limit)}
	if opts.Offset > 0 {
		args = append(args, "--skip", strconv.Itoa(opts.Offset))
	}
	if opts.Branch != "" {
		args = append(args, opts.Branch)
	}
	args = append(args, "--")

	output, err := outputGit(ctx, opts.Cwd, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	result.Commits = ParseLog(output)

	if head != "" {
		result.UnpushedOIDs = c.unpushed(ctx, opts.Cwd)
	}
	return result, nil
}

// unpushed returns HEAD commits missing from the upstream. No upstream means
// nothing to report.
func (c *CLI) unpushed(ctx context.Context, cwd string) []string {
	output, err := outputGit(ctx, cwd, "rev-list", "@{upstream}..HEAD")
	if err != nil {
		return []string{}
	}
	oids := []string{}
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			oids = append(oids, line)
		}
	}
	return oids
}

// ParseLog parses output produced with logFormat.
func ParseLog(output []byte) []Commit {
	commits := []Commit{}
	for _, rec := range strings.Split(string(output), recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		f := strings.Split(rec, fieldSep)
		if len(f) != 7 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, f[4])
		commits = append(commits, Commit{
			OID:      f[0],
			ShortOID: f[1],
			Author:   f[2],
			Email:    f[3],
			Date:     date,
			Parents:  strings.Fields(f[5]),
			Subject:  f[6],
		})
	}
	return commits
}
