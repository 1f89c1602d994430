package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newRecordingInvalidator() *recordingInvalidator {
	return &recordingInvalidator{ch: make(chan string, 16)}
}

func (r *recordingInvalidator) Invalidate(_ context.Context, projectID string) {
	r.mu.Lock()
	r.calls = append(r.calls, projectID)
	r.mu.Unlock()
	r.ch <- projectID
}

func (r *recordingInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type staticResolver map[string]string

func (s staticResolver) GitDir(_ context.Context, cwd string) (string, error) {
	return s[cwd], nil
}

func startWatcher(t *testing.T, inv Invalidator, gitDir string) {
	t.Helper()

	w, err := New(inv, staticResolver{"/work": gitDir}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Add(ctx, "p1", "/work"))
	assert.Equal(t, 1, w.Len())
	go w.Run(ctx)
}

func TestWatcher_DebouncesHeadWrites(t *testing.T) {
	t.Parallel()

	gitDir := t.TempDir()
	inv := newRecordingInvalidator()
	startWatcher(t, inv, gitDir)

	head := filepath.Join(gitDir, "HEAD")
	for range 5 {
		require.NoError(t, os.WriteFile(head, []byte("ref: refs/heads/main\n"), 0o644))
	}

	select {
	case pid := <-inv.ch:
		assert.Equal(t, "p1", pid)
	case <-time.After(5 * time.Second):
		t.Fatal("no invalidation after HEAD write")
	}

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, inv.count())
}

func TestWatcher_IndexReplacedByRename(t *testing.T) {
	t.Parallel()

	gitDir := t.TempDir()
	inv := newRecordingInvalidator()
	startWatcher(t, inv, gitDir)

	lock := filepath.Join(gitDir, "index.lock")
	require.NoError(t, os.WriteFile(lock, []byte("DIRC"), 0o644))
	require.NoError(t, os.Rename(lock, filepath.Join(gitDir, "index")))

	select {
	case pid := <-inv.ch:
		assert.Equal(t, "p1", pid)
	case <-time.After(5 * time.Second):
		t.Fatal("no invalidation after index rename")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	gitDir := t.TempDir()
	inv := newRecordingInvalidator()
	startWatcher(t, inv, gitDir)

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "FETCH_HEAD"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "index.lock"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, inv.count())
}

func TestWatcher_PendingDeliveryEndsAfterClose(t *testing.T) {
	t.Parallel()

	w, err := New(newRecordingInvalidator(), staticResolver{})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	returned := make(chan struct{})
	go func() {
		w.deliver(context.Background(), "p1")
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("timer delivery still blocked after Close")
	}
}

func TestWatcher_RunReturnsAfterClose(t *testing.T) {
	t.Parallel()

	w, err := New(newRecordingInvalidator(), staticResolver{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	returned := make(chan struct{})
	go func() {
		w.deliver(context.Background(), "p1")
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("timer delivery still blocked after Run returned")
	}
}
