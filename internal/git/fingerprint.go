package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"
)

// Fingerprint collects the signals that identify the current state of cwd:
// HEAD, the HEAD and index file mtimes, and a hash over the porcelain status
// plus the size and mtime of every changed path. The latter catches a file
// that is edited again while its status line stays " M".
func (c *CLI) Fingerprint(ctx context.Context, cwd string) (*Fingerprint, error) {
	output, err := outputGit(ctx, cwd, "rev-parse", "--show-toplevel", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("not in a git repository: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) != 2 {
		return nil, fmt.Errorf("unexpected rev-parse output: %q", output)
	}
	toplevel, dir := strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1])

	head, err := c.HeadOID(ctx, cwd)
	if err != nil {
		return nil, err
	}

	status, err := outputGit(ctx, cwd, "--no-optional-locks", "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return &Fingerprint{
		RepoPath:     toplevel,
		HeadOID:      head,
		IndexMtimeMs: mtimeMs(filepath.Join(dir, "index")),
		HeadMtimeMs:  mtimeMs(filepath.Join(dir, "HEAD")),
		StatusHash:   statusHash(toplevel, status),
	}, nil
}

func statusHash(toplevel string, porcelain []byte) string {
	h := xxh3.New()
	h.Write(porcelain)

	st := ParseStatus(porcelain)
	for _, bucket := range [][]FileChange{st.Staged, st.Unstaged, st.Untracked} {
		for _, fc := range bucket {
			info, err := os.Lstat(filepath.Join(toplevel, fc.Path))
			if err != nil {
				continue
			}
			fmt.Fprintf(h, "\x00%s:%d:%d", fc.Path, info.Size(), info.ModTime().UnixNano())
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func mtimeMs(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixMilli()
}

// splitNUL splits NUL-terminated records, dropping the trailing empty one.
func splitNUL(b []byte) []string {
	b = bytes.TrimSuffix(b, []byte{0})
	if len(b) == 0 {
		return nil
	}
	parts := bytes.Split(b, []byte{0})
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}
