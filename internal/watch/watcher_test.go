package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	if filepath.Base(path) == "fail.csv" {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, dir string, h Handler) (*Watcher, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(Config{Dir: dir, Debounce: 50 * time.Millisecond}, h, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return w, cancel, done
}

func TestWatcher_HandlesSupportedFilesOnce(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, cancel, done := startWatcher(t, dir, rec.handle)

	path := filepath.Join(dir, "razao.xlsx")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$razao.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fail.csv"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return len(rec.seen()) >= 2 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []string{"razao.xlsx", "fail.csv"}, rec.seen())

	events := w.Events()
	require.Len(t, events, 2)
	statuses := map[string]string{}
	for _, ev := range events {
		statuses[filepath.Base(ev.Path)] = ev.Status
	}
	assert.Equal(t, "processed", statuses["razao.xlsx"])
	assert.Equal(t, "error", statuses["fail.csv"])
}

func TestWatcher_StopDropsPendingFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(Config{Dir: dir, Debounce: time.Hour}, rec.handle, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "razao.xlsx"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Empty(t, rec.seen())
}

func TestWatcher_MissingDir(t *testing.T) {
	w, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, func(context.Context, string) error { return nil }, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}
