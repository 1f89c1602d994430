// Package fingerprint builds the composite cache keys that identify the
// state of a working directory.
package fingerprint

import (
	"context"
	"strconv"
	"strings"

	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
)

// Source returns the fingerprint signals for a working directory.
type Source interface {
	Fingerprint(ctx context.Context, cwd string) (*git.Fingerprint, error)
}

// BuildKey joins the fingerprint signals in a fixed order. Changing any one
// of them yields a different key.
func BuildKey(fp git.Fingerprint) string {
	return strings.Join([]string{
		fp.RepoPath,
		fp.HeadOID,
		strconv.FormatInt(fp.IndexMtimeMs, 10),
		strconv.FormatInt(fp.HeadMtimeMs, 10),
		fp.StatusHash,
	}, "|")
}

// BaseKey fingerprints cwd and returns its key. ok is false when that fails,
// in which case the caller should bypass the cache for this request.
func BaseKey(ctx context.Context, p Source, cwd string) (key string, ok bool) {
	fp, err := p.Fingerprint(ctx, cwd)
	if err != nil || fp == nil {
		log.FromContext(ctx).Debug("fingerprint unavailable, caching disabled", "cwd", cwd, "err", err)
		return "", false
	}
	return BuildKey(*fp), true
}

// TreeKey derives the key for a tree listing from a base key.
func TreeKey(base string, changedOnly bool) string {
	if changedOnly {
		return base + "|tree:1"
	}
	return base + "|tree:0"
}
