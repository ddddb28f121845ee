package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/codeannotations/watch"
)

// recorder collects the batches delivered to a [watch.Func].
type recorder struct {
	batches [][]string
	mu      sync.Mutex
}

func (r *recorder) fn(_ context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.batches = append(r.batches, changed)

	return nil
}

func (r *recorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.batches {
		if slices.Contains(b, path) {
			return true
		}
	}

	return false
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, b := range r.batches {
		out = append(out, b...)
	}

	return out
}

func start(t *testing.T, w *watch.Watcher, fn watch.Func) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx, fn)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		assert.NoError(t, w.Close())
	})
}

func write(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcherReportsChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))

	w, err := watch.New(dir,
		watch.WithDebounce(20*time.Millisecond),
		watch.WithFilter(func(path string) bool { return strings.HasSuffix(path, ".py") }),
	)
	require.NoError(t, err)

	rec := &recorder{}
	start(t, w, rec.fn)

	write(t, filepath.Join(dir, ".git", "HEAD.py"), "ref")
	write(t, filepath.Join(dir, "notes.txt"), "x")
	write(t, filepath.Join(dir, "pkg", "a.py"), "# .. no_pii:")

	require.Eventually(t, func() bool { return rec.seen("pkg/a.py") }, 5*time.Second, 10*time.Millisecond)

	for _, p := range rec.all() {
		assert.Equal(t, "pkg/a.py", p)
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	w, err := watch.New(dir, watch.WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	rec := &recorder{}
	start(t, w, rec.fn)

	sub := filepath.Join(dir, "new", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	require.Eventually(t, func() bool {
		write(t, filepath.Join(sub, "b.py"), "# change")

		return rec.seen("new/deeper/b.py")
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcherBatchesChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	w, err := watch.New(dir, watch.WithDebounce(300*time.Millisecond))
	require.NoError(t, err)

	rec := &recorder{}
	start(t, w, rec.fn)

	for range 3 {
		write(t, filepath.Join(dir, "a.js"), "// a")
		write(t, filepath.Join(dir, "b.js"), "// b")
	}

	require.Eventually(t, func() bool {
		return rec.seen("a.js") && rec.seen("b.js")
	}, 5*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	for _, b := range rec.batches {
		assert.True(t, slices.IsSorted(b))
		assert.Len(t, slices.Compact(slices.Clone(b)), len(b))
	}
}

func TestWatcherStopsOnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	w, err := watch.New(dir, watch.WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	errStop := errors.New("stop")

	done := make(chan error, 1)

	go func() {
		done <- w.Run(t.Context(), func(context.Context, []string) error {
			return errStop
		})
	}()

	t.Cleanup(func() { assert.NoError(t, w.Close()) })

	write(t, filepath.Join(dir, "a.go"), "// a")

	select {
	case err := <-done:
		require.ErrorIs(t, err, errStop)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherCanceled(t *testing.T) {
	t.Parallel()

	w, err := watch.New(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, w.Close()) })

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.NoError(t, w.Run(ctx, func(context.Context, []string) error {
		t.Error("unexpected batch")

		return nil
	}))
}

func TestNewMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := watch.New(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, watch.ErrWatch)
}

func TestWatcherIgnore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	w, err := watch.New(dir,
		watch.WithDebounce(20*time.Millisecond),
		watch.WithIgnore(out, filepath.Join(dir, "gen")),
	)
	require.NoError(t, err)

	rec := &recorder{}
	start(t, w, rec.fn)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gen"), 0o755))
	write(t, filepath.Join(out, "report.yaml"), "a: b")
	write(t, filepath.Join(dir, "gen", "x.yaml"), "a: b")
	write(t, filepath.Join(dir, "src.yaml"), "# .. no_pii:")

	require.Eventually(t, func() bool { return rec.seen("src.yaml") }, 5*time.Second, 10*time.Millisecond)

	for _, p := range rec.all() {
		assert.Equal(t, "src.yaml", p)
	}
}
