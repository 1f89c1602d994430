package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
)

const envelopeVersion = 1

const (
	familyRepo  = "repo/"
	familyPatch = "patch/"
	familyLog   = "log/"
)

// Options configures a Store.
type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir      string
	InMemory bool

	// Retention, applied by the sweeper.
	MaxAge        time.Duration
	MaxRows       int
	SweepInterval time.Duration
}

// RepoEntry holds the tree and status payloads for one fingerprint.
type RepoEntry struct {
	TreeData   json.RawMessage `json:"treeData,omitempty"`
	StatusData json.RawMessage `json:"statusData,omitempty"`
}

// PatchEntry holds a single file patch.
type PatchEntry struct {
	Patch string `json:"patch"`
}

// LogEntry holds the default commit log page of a project.
type LogEntry struct {
	CommitsJSON      json.RawMessage `json:"commits"`
	HeadOID          string          `json:"headOid"`
	UnpushedOIDsJSON json.RawMessage `json:"unpushedOids"`
	// Complete is set when the page held the whole history.
	Complete bool `json:"complete,omitempty"`
}

// WriteResult reports the outcome of a best-effort write. Callers discard it.
type WriteResult struct {
	Err error
}

// OK reports whether the write succeeded.
func (r WriteResult) OK() bool { return r.Err == nil }

type envelope struct {
	V    int             `json:"v"`
	At   int64           `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Store is the fingerprint cache. It is safe for concurrent use.
type Store struct {
	db       *badger.DB
	inMemory bool
	opts     Options
	now      func() time.Time
	sweeper  *Sweeper
}

// Open opens (creating if needed) the store in opts.Dir.
func Open(ctx context.Context, opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, errors.New("cache directory is required")
		}
		if err := os.MkdirAll(opts.Dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", opts.Dir, err)
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{l: log.FromContext(ctx)})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	return &Store{db: db, inMemory: opts.InMemory, opts: opts, now: time.Now}, nil
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory(ctx context.Context) (*Store, error) {
	return Open(ctx, Options{InMemory: true})
}

// Close stops the sweeper, if running, and closes the database.
func (s *Store) Close() error {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	return s.db.Close()
}

func repoKey(projectID, fpKey string, includeIgnored bool) []byte {
	ignored := "0"
	if includeIgnored {
		ignored = "1"
	}
	return []byte(familyRepo + projectID + "/" + ignored + "/" + fpKey)
}

func patchKey(projectID string, scope git.PatchScope, fpKey, filePath string) []byte {
	return []byte(familyPatch + projectID + "/" + string(scope) + "/" + fpKey + "/" + filePath)
}

func logKey(projectID string) []byte {
	return []byte(familyLog + projectID)
}

// GetRepo returns the repo entry stored for the fingerprint key.
func (s *Store) GetRepo(ctx context.Context, projectID, fpKey string, includeIgnored bool) (RepoEntry, bool) {
	var e RepoEntry
	ok := s.get(ctx, repoKey(projectID, fpKey, includeIgnored), &e)
	return e, ok
}

// SetRepo stores the repo entry for the fingerprint key.
func (s *Store) SetRepo(ctx context.Context, projectID, fpKey string, includeIgnored bool, e RepoEntry) WriteResult {
	return s.set(ctx, repoKey(projectID, fpKey, includeIgnored), e)
}

// GetPatch returns the cached patch of filePath in scope.
func (s *Store) GetPatch(ctx context.Context, projectID, filePath string, scope git.PatchScope, fpKey string) (string, bool) {
	var e PatchEntry
	if !s.get(ctx, patchKey(projectID, scope, fpKey, filePath), &e) {
		return "", false
	}
	return e.Patch, true
}

// SetPatch stores the patch of filePath in scope.
func (s *Store) SetPatch(ctx context.Context, projectID, filePath string, scope git.PatchScope, fpKey, patch string) WriteResult {
	return s.set(ctx, patchKey(projectID, scope, fpKey, filePath), PatchEntry{Patch: patch})
}

// GetLog returns the cached default log page of the project.
func (s *Store) GetLog(ctx context.Context, projectID string) (LogEntry, bool) {
	var e LogEntry
	ok := s.get(ctx, logKey(projectID), &e)
	return e, ok
}

// SetLog replaces the cached default log page of the project.
func (s *Store) SetLog(ctx context.Context, projectID string, e LogEntry) WriteResult {
	return s.set(ctx, logKey(projectID), e)
}

func (s *Store) get(ctx context.Context, key []byte, dest any) bool {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		log.FromContext(ctx).Debug("cache read failed", "key", string(key), "err", err)
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.V != envelopeVersion {
		log.FromContext(ctx).Debug("cache entry unreadable", "key", string(key), "err", err)
		return false
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		log.FromContext(ctx).Debug("cache entry unreadable", "key", string(key), "err", err)
		return false
	}
	return true
}

func (s *Store) set(ctx context.Context, key []byte, v any) WriteResult {
	data, err := json.Marshal(v)
	if err == nil {
		var raw []byte
		raw, err = json.Marshal(envelope{V: envelopeVersion, At: s.now().UnixMilli(), Data: data})
		if err == nil {
			err = s.db.Update(func(txn *badger.Txn) error {
				return txn.Set(key, raw)
			})
		}
	}
	if err != nil {
		log.FromContext(ctx).Warn("cache write failed", "key", string(key), "err", err)
	}
	return WriteResult{Err: err}
}

// DeleteAllForProject removes every entry of the project in all families.
// Deleting an unknown project is a no-op.
func (s *Store) DeleteAllForProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		return errors.New("project id is required")
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(logKey(projectID)); err == nil {
			keys = append(keys, logKey(projectID))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, prefix := range [][]byte{
			[]byte(familyRepo + projectID + "/"),
			[]byte(familyPatch + projectID + "/"),
		} {
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan cache for project %s: %w", projectID, err)
	}

	if err := s.deleteKeys(keys); err != nil {
		return fmt.Errorf("failed to delete cache for project %s: %w", projectID, err)
	}
	log.FromContext(ctx).Debug("cache invalidated", "project", projectID, "entries", len(keys))
	return nil
}

// Clear removes every entry of every project.
func (s *Store) Clear() error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Len returns the number of entries in the store.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) deleteKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// hasPrefix reports whether key belongs to a cache family.
func hasPrefix(key []byte) bool {
	return bytes.HasPrefix(key, []byte(familyRepo)) ||
		bytes.HasPrefix(key, []byte(familyPatch)) ||
		bytes.HasPrefix(key, []byte(familyLog))
}

// badgerLogger routes badger's internal logging to the context logger.
type badgerLogger struct {
	l *log.Logger
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.l.Warn("badger: " + trimNewline(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn("badger: " + trimNewline(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.l.Debug("badger: " + trimNewline(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug("badger: " + trimNewline(fmt.Sprintf(format, args...)))
}

func trimNewline(s string) string {
	return strings.TrimRight(s, "\n")
}
