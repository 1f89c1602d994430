package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gitagen/gitagen/internal/cache"
	"github.com/gitagen/gitagen/internal/fingerprint"
	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/project"
)

// ErrProjectNotFound is returned when a project id cannot be resolved to a
// working directory.
var ErrProjectNotFound = project.ErrNotFound

// Reader serves cache-through reads.
type Reader struct {
	provider Reads
	projects ProjectResolver
	store    *cache.Store
}

// NewReader creates a reader. A nil store disables caching.
func NewReader(provider Reads, projects ProjectResolver, store *cache.Store) *Reader {
	return &Reader{provider: provider, projects: projects, store: store}
}

func resolveCwd(ctx context.Context, projects ProjectResolver, projectID string) (string, error) {
	cwd, err := projects.ResolveCwd(ctx, projectID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %v", ErrProjectNotFound, projectID, err)
	}
	return cwd, nil
}

// baseKey returns the fingerprint key of cwd, or false when caching is off
// for this request.
func (r *Reader) baseKey(ctx context.Context, cwd string) (string, bool) {
	if r.store == nil {
		return "", false
	}
	return fingerprint.BaseKey(ctx, r.provider, cwd)
}

// GetOrFetchStatus returns the working tree status of the project.
func (r *Reader) GetOrFetchStatus(ctx context.Context, projectID string) (*git.Status, error) {
	cwd, err := resolveCwd(ctx, r.projects, projectID)
	if err != nil {
		return nil, err
	}

	key, ok := r.baseKey(ctx, cwd)
	if !ok {
		return r.provider.Status(ctx, cwd)
	}

	existing, hit := r.store.GetRepo(ctx, projectID, key, false)
	if hit && len(existing.StatusData) > 0 {
		if dec := cache.DecodeStatus(existing.StatusData); dec.OK() {
			log.FromContext(ctx).Debug("status cache hit", "project", projectID, "kind", dec.Kind)
			return &dec.Status, nil
		}
	}

	st, err := r.provider.Status(ctx, cwd)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(st); err == nil {
		existing.StatusData = data
		_ = r.store.SetRepo(ctx, projectID, key, false, existing)
	}
	return st, nil
}

// GetOrFetchTree returns the file tree of the project.
func (r *Reader) GetOrFetchTree(ctx context.Context, projectID string, includeIgnored, changedOnly bool) ([]git.TreeEntry, error) {
	cwd, err := resolveCwd(ctx, r.projects, projectID)
	if err != nil {
		return nil, err
	}
	opts := git.TreeOptions{Cwd: cwd, IncludeIgnored: includeIgnored, ChangedOnly: changedOnly}

	base, ok := r.baseKey(ctx, cwd)
	if !ok {
		return r.provider.Tree(ctx, opts)
	}
	key := fingerprint.TreeKey(base, changedOnly)

	existing, hit := r.store.GetRepo(ctx, projectID, key, includeIgnored)
	if hit && len(existing.TreeData) > 0 {
		var entries []git.TreeEntry
		if err := json.Unmarshal(existing.TreeData, &entries); err == nil {
			log.FromContext(ctx).Debug("tree cache hit", "project", projectID)
			return entries, nil
		}
	}

	entries, err := r.provider.Tree(ctx, opts)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entries); err == nil {
		existing.TreeData = data
		_ = r.store.SetRepo(ctx, projectID, key, includeIgnored, existing)
	}
	return entries, nil
}

// GetOrFetchPatch returns the patch of one file in scope.
func (r *Reader) GetOrFetchPatch(ctx context.Context, projectID, filePath string, scope git.PatchScope) (string, error) {
	if !scope.Valid() {
		return "", fmt.Errorf("unknown patch scope %q", scope)
	}
	cwd, err := resolveCwd(ctx, r.projects, projectID)
	if err != nil {
		return "", err
	}
	opts := git.PatchOptions{Cwd: cwd, FilePath: filePath, Scope: scope}

	key, ok := r.baseKey(ctx, cwd)
	if !ok {
		return r.provider.Patch(ctx, opts)
	}

	if patch, hit := r.store.GetPatch(ctx, projectID, filePath, scope, key); hit {
		log.FromContext(ctx).Debug("patch cache hit", "project", projectID, "file", filePath)
		return patch, nil
	}

	patch, err := r.provider.Patch(ctx, opts)
	if err != nil {
		return "", err
	}
	_ = r.store.SetPatch(ctx, projectID, filePath, scope, key, patch)
	return patch, nil
}

// GetOrFetchLog returns a page of the commit log. Only the default query
// (HEAD, first page) is cached; it stays valid while HEAD is unchanged and
// the cached page holds the requested number of commits or the whole
// history.
func (r *Reader) GetOrFetchLog(ctx context.Context, projectID string, opts git.LogOptions) (*git.LogResult, error) {
	cwd, err := resolveCwd(ctx, r.projects, projectID)
	if err != nil {
		return nil, err
	}
	opts.Cwd = cwd
	if opts.Limit <= 0 {
		opts.Limit = git.DefaultLogLimit
	}

	if r.store == nil || !opts.IsDefault() {
		return r.provider.Log(ctx, opts)
	}

	head, err := r.provider.HeadOID(ctx, cwd)
	if err == nil {
		if res, ok := r.cachedLog(ctx, projectID, head, opts.Limit); ok {
			return res, nil
		}
	}

	res, err := r.provider.Log(ctx, opts)
	if err != nil {
		return nil, err
	}
	commits, err1 := json.Marshal(res.Commits)
	unpushed, err2 := json.Marshal(res.UnpushedOIDs)
	if err1 == nil && err2 == nil {
		_ = r.store.SetLog(ctx, projectID, cache.LogEntry{
			CommitsJSON:      commits,
			HeadOID:          res.HeadOID,
			UnpushedOIDsJSON: unpushed,
			Complete:         len(res.Commits) < opts.Limit,
		})
	}
	return res, nil
}

func (r *Reader) cachedLog(ctx context.Context, projectID, head string, limit int) (*git.LogResult, bool) {
	entry, ok := r.store.GetLog(ctx, projectID)
	if !ok || entry.HeadOID != head {
		return nil, false
	}

	var commits []git.Commit
	if err := json.Unmarshal(entry.CommitsJSON, &commits); err != nil {
		return nil, false
	}
	if limit > len(commits) {
		if !entry.Complete {
			return nil, false
		}
		limit = len(commits)
	}
	unpushed := []string{}
	if len(entry.UnpushedOIDsJSON) > 0 {
		if err := json.Unmarshal(entry.UnpushedOIDsJSON, &unpushed); err != nil {
			return nil, false
		}
	}

	log.FromContext(ctx).Debug("log cache hit", "project", projectID)
	return &git.LogResult{Commits: commits[:limit], HeadOID: head, UnpushedOIDs: unpushed}, true
}
