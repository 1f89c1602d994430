package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitagen/gitagen/internal/fingerprint"
	"github.com/gitagen/gitagen/internal/git"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRepoRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	entry := RepoEntry{
		TreeData:   json.RawMessage(`[{"path":"a.go"}]`),
		StatusData: json.RawMessage(`{"staged":[],"unstaged":[{"path":"a.go","changeType":"modified"}],"untracked":[]}`),
	}
	require.True(t, s.SetRepo(ctx, "p1", "k1", false, entry).OK())

	got, ok := s.GetRepo(ctx, "p1", "k1", false)
	require.True(t, ok)
	assert.JSONEq(t, string(entry.TreeData), string(got.TreeData))
	assert.JSONEq(t, string(entry.StatusData), string(got.StatusData))

	_, ok = s.GetRepo(ctx, "p1", "k1", true)
	assert.False(t, ok, "includeIgnored is part of the key")
}

func TestPatchRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	patch := "diff --git a/x b/x\n+line\n"
	_ = s.SetPatch(ctx, "p1", "dir/x.go", git.ScopeStaged, "k1", patch)

	got, ok := s.GetPatch(ctx, "p1", "dir/x.go", git.ScopeStaged, "k1")
	require.True(t, ok)
	assert.Equal(t, patch, got)

	_, ok = s.GetPatch(ctx, "p1", "dir/x.go", git.ScopeUnstaged, "k1")
	assert.False(t, ok, "scope is part of the key")
}

func TestLogRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	entry := LogEntry{
		CommitsJSON:      json.RawMessage(`[{"oid":"abc","subject":"init"}]`),
		HeadOID:          "abc",
		UnpushedOIDsJSON: json.RawMessage(`["abc"]`),
	}
	_ = s.SetLog(ctx, "p1", entry)

	got, ok := s.GetLog(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, "abc", got.HeadOID)
	assert.JSONEq(t, string(entry.CommitsJSON), string(got.CommitsJSON))
	assert.JSONEq(t, string(entry.UnpushedOIDsJSON), string(got.UnpushedOIDsJSON))
}

func TestFingerprintChangeIsMiss(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	fp := git.Fingerprint{RepoPath: "/r", HeadOID: "abc", StatusHash: "h1"}
	k1 := fingerprint.BuildKey(fp)
	fp.StatusHash = "h2"
	k2 := fingerprint.BuildKey(fp)
	require.NotEqual(t, k1, k2)

	_ = s.SetRepo(ctx, "p1", k1, false, RepoEntry{StatusData: json.RawMessage(`{}`)})

	_, ok := s.GetRepo(ctx, "p1", k1, false)
	assert.True(t, ok)
	_, ok = s.GetRepo(ctx, "p1", k2, false)
	assert.False(t, ok)
}

func TestDeleteAllForProject(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"p1", "p2"} {
		_ = s.SetRepo(ctx, p, "k", false, RepoEntry{TreeData: json.RawMessage(`[]`)})
		_ = s.SetRepo(ctx, p, "k", true, RepoEntry{TreeData: json.RawMessage(`[]`)})
		_ = s.SetPatch(ctx, p, "f", git.ScopeUnstaged, "k", "x")
		_ = s.SetLog(ctx, p, LogEntry{HeadOID: "abc"})
	}
	// shares a prefix with p1 but is a different project
	_ = s.SetLog(ctx, "p10", LogEntry{HeadOID: "abc"})

	require.NoError(t, s.DeleteAllForProject(ctx, "p1"))

	_, ok := s.GetRepo(ctx, "p1", "k", false)
	assert.False(t, ok)
	_, ok = s.GetRepo(ctx, "p1", "k", true)
	assert.False(t, ok)
	_, ok = s.GetPatch(ctx, "p1", "f", git.ScopeUnstaged, "k")
	assert.False(t, ok)
	_, ok = s.GetLog(ctx, "p1")
	assert.False(t, ok)

	_, ok = s.GetRepo(ctx, "p2", "k", false)
	assert.True(t, ok, "other projects are untouched")
	_, ok = s.GetLog(ctx, "p10")
	assert.True(t, ok, "project id prefix match must not delete")

	// idempotent
	require.NoError(t, s.DeleteAllForProject(ctx, "p1"))
	require.NoError(t, s.DeleteAllForProject(ctx, "never-seen"))
}

func TestEnvelope(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	fixed := time.UnixMilli(1718000000000)
	s.now = func() time.Time { return fixed }
	_ = s.SetLog(ctx, "p1", LogEntry{HeadOID: "abc"})

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(logKey("p1"))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, 1, env.V)
	assert.Equal(t, int64(1718000000000), env.At)
	assert.Contains(t, string(env.Data), `"headOid":"abc"`)
}

func TestUnreadableEntryIsMiss(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, v := range []string{`not json`, `{"v":99,"at":1,"data":{}}`, `{"v":1,"at":1,"data":"str"}`} {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(logKey("p1"), []byte(v))
		})
		require.NoError(t, err)

		_, ok := s.GetLog(ctx, "p1")
		assert.False(t, ok, "value %s should be a miss", v)
	}
}

func TestClosedStore(t *testing.T) {
	t.Parallel()
	s, err := OpenInMemory(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	res := s.SetLog(ctx, "p1", LogEntry{})
	assert.False(t, res.OK())
	_, ok := s.GetLog(ctx, "p1")
	assert.False(t, ok)
}

func TestSweep(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	s.opts.MaxAge = time.Hour
	s.opts.MaxRows = 3
	ctx := context.Background()

	base := time.Now()
	write := func(project string, at time.Time) {
		s.now = func() time.Time { return at }
		_ = s.SetLog(ctx, project, LogEntry{HeadOID: project})
	}
	write("expired", base.Add(-2*time.Hour))
	for i := range 5 {
		write(fmt.Sprintf("p%d", i), base.Add(time.Duration(i)*time.Minute))
	}
	s.now = func() time.Time { return base.Add(10 * time.Minute) }

	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Scanned)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 2, res.Evicted)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, p := range []string{"expired", "p0", "p1"} {
		_, ok := s.GetLog(ctx, p)
		assert.False(t, ok, "%s should be gone", p)
	}
	for _, p := range []string{"p2", "p3", "p4"} {
		_, ok := s.GetLog(ctx, p)
		assert.True(t, ok, "%s should survive", p)
	}
}

func TestSweeperStop(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	s.opts.SweepInterval = time.Millisecond

	sw := s.StartSweeper(context.Background())
	assert.Same(t, sw, s.StartSweeper(context.Background()))
	time.Sleep(5 * time.Millisecond)
	sw.Stop()
	sw.Stop()
}
