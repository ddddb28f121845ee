package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when no [WithDebounce] option is
// given.
const DefaultDebounce = 200 * time.Millisecond

// ErrWatch indicates the file system could not be watched.
var ErrWatch = errors.New("watch")

// ignoreDirs are neither watched nor reported.
var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// Func handles one batch of changed paths. Paths are relative to the
// watched root, use forward slashes and are sorted. A non-nil error stops
// [Watcher.Run].
type Func func(ctx context.Context, changed []string) error

// Option configures a [Watcher].
type Option func(*Watcher)

// WithDebounce sets how long the tree must be quiet before a batch is
// delivered.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithFilter only reports paths for which keep returns true. The path given
// to keep is relative to the root.
func WithFilter(keep func(path string) bool) Option {
	return func(w *Watcher) {
		w.keep = keep
	}
}

// WithIgnore excludes the given files or directories, and everything below
// them, from the watch. Use it for paths the callback itself writes to,
// such as an output directory inside the watched tree.
func WithIgnore(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				slog.Warn("cannot ignore path", slog.String("path", p), slog.Any("err", err))

				continue
			}

			w.ignore = append(w.ignore, abs)
		}
	}
}

// Watcher watches a directory tree.
type Watcher struct {
	fw       *fsnotify.Watcher
	keep     func(string) bool
	root     string
	ignore   []string
	debounce time.Duration
}

// New creates a [Watcher] for every directory below root. Close must be
// called to release it.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}

	w := &Watcher{
		fw:       fw,
		root:     abs,
		debounce: DefaultDebounce,
		keep:     func(string) bool { return true },
	}

	for _, opt := range opts {
		opt(w)
	}

	err = w.addTree(abs)
	if err != nil {
		_ = fw.Close()

		return nil, err
	}

	return w, nil
}

// Root returns the absolute path of the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Run delivers batches of changes to fn until ctx is done, fn fails, or
// the watcher is closed. It returns nil when ctx is canceled.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	pending := make(map[string]struct{})

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}

			rel, report := w.handle(event)
			if !report {
				continue
			}

			pending[rel] = struct{}{}

			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}

			slog.Warn("file watcher error", slog.Any("err", err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}

			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}

			slices.Sort(changed)
			clear(pending)

			slog.Debug("files changed", slog.Int("count", len(changed)))

			err := fn(ctx, changed)
			if err != nil {
				return err
			}
		}
	}
}

// handle registers new directories and reports whether event names a path
// that should be delivered, along with that path relative to the root.
func (w *Watcher) handle(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return "", false
	}

	rel = filepath.ToSlash(rel)

	if ignored(rel) || w.excluded(event.Name) {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			err = w.addTree(event.Name)
			if err != nil {
				slog.Warn("could not watch new directory",
					slog.String("dir", rel),
					slog.Any("err", err))
			}

			return "", false
		}
	}

	return rel, w.keep(rel)
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}

			slog.Debug("skipping unreadable path", slog.String("path", path), slog.Any("err", err))

			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if path != w.root && (ignoreDirs[d.Name()] || w.excluded(path)) {
			return filepath.SkipDir
		}

		return w.fw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWatch, dir, err)
	}

	return nil
}

// excluded reports whether path is, or lies below, a path given to
// [WithIgnore].
func (w *Watcher) excluded(path string) bool {
	path = filepath.Clean(path)

	for _, ig := range w.ignore {
		if path == ig || strings.HasPrefix(path, ig+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// ignored reports whether any element of the slash separated path is an
// ignored directory.
func ignored(rel string) bool {
	for part := range strings.SplitSeq(rel, "/") {
		if ignoreDirs[part] {
			return true
		}
	}

	return false
}
