// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is the quiet period used when Options.Quiet is not positive.
const DefaultQuiet = 400 * time.Millisecond

var (
	// ErrInvalidPattern is returned for include or ignore globs doublestar rejects.
	ErrInvalidPattern = errors.New("invalid watch pattern")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: already running")

	// ErrWatcherBroken wraps fsnotify errors the watcher cannot recover from.
	ErrWatcherBroken = errors.New("watch: watcher broken")
)

type (
	// TriggerFunc receives the sorted set of changed paths, relative to the root.
	TriggerFunc func(ctx context.Context, changed []string) error

	// Options configures a Watcher.
	Options struct {
		// Root is the directory watched recursively. Empty means the working directory.
		Root string
		// Include selects files by doublestar glob. Empty selects every file.
		Include []string
		// Ignore adds globs to BuiltinIgnores.
		Ignore []string
		// Skip lists root-relative files whose events are dropped, such as the
		// note a script writes into.
		Skip []string
		// Quiet is the time without events before Trigger runs.
		Quiet time.Duration
		// Trigger is invoked once per settled burst. Nil is a no-op.
		Trigger TriggerFunc
		// Logger defaults to slog.Default().
		Logger *slog.Logger
	}

	// Watcher watches a directory tree. Run may only be called once.
	Watcher struct {
		root    string
		filter  *filter
		quiet   time.Duration
		trigger TriggerFunc
		logger  *slog.Logger
		fsw     *fsnotify.Watcher
		started atomic.Bool

		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
		closed  bool
		busy    atomic.Bool

		// inflight counts fire calls past the closed check.
		inflight sync.WaitGroup
	}
)

// New validates the globs and registers every non-ignored directory under the root.
func New(opts Options) (*Watcher, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	skip := make([]string, 0, len(opts.Skip))
	for _, p := range opts.Skip {
		if filepath.IsAbs(p) {
			if rel, relErr := filepath.Rel(root, p); relErr == nil {
				p = rel
			}
		}
		skip = append(skip, p)
	}

	f, err := newFilter(opts.Include, opts.Ignore, skip)
	if err != nil {
		return nil, err
	}

	quiet := opts.Quiet
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		filter:  f,
		quiet:   quiet,
		trigger: opts.Trigger,
		logger:  logger.With("component", "watch"),
		fsw:     fsw,
		pending: make(map[string]struct{}),
	}
	if err := w.registerTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute watch root.
func (w *Watcher) Root() string { return w.root }

// Run processes events until ctx is done. It returns nil on cancellation and an
// error wrapping ErrWatcherBroken when fsnotify can no longer deliver events.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	// shutdown waits for a running trigger so callers may release what it uses.
	defer w.shutdown()

	w.logger.Debug("watching", "root", w.root, "dirs", len(w.fsw.WatchList()))

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("%w: event channel closed", ErrWatcherBroken)
			}
			w.handle(ctx, evt)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("%w: error channel closed", ErrWatcherBroken)
			}
			if isFatal(err) {
				return fmt.Errorf("%w: %w", ErrWatcherBroken, err)
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, evt fsnotify.Event) {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return
	}

	rel, err := filepath.Rel(w.root, evt.Name)
	if err != nil {
		return
	}

	if evt.Has(fsnotify.Create) {
		if info, statErr := os.Stat(evt.Name); statErr == nil && info.IsDir() {
			if regErr := w.registerTree(evt.Name); regErr != nil {
				w.logger.Warn("watch new directory", "path", rel, "err", regErr)
			}
			return
		}
	}

	if !w.filter.accepts(rel) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[filepath.ToSlash(rel)] = struct{}{}
	w.schedule(ctx)
}

// schedule (re)arms the quiet timer. Callers hold w.mu.
func (w *Watcher) schedule(ctx context.Context) {
	if w.timer != nil {
		w.timer.Reset(w.quiet)
		return
	}
	w.timer = time.AfterFunc(w.quiet, func() { w.fire(ctx) })
}

func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	if w.closed || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if !w.busy.CompareAndSwap(false, true) {
		w.logger.Debug("trigger still running, deferring")
		w.mu.Lock()
		if !w.closed {
			w.schedule(ctx)
		}
		w.mu.Unlock()
		return
	}
	defer w.busy.Store(false)

	w.mu.Lock()
	changed := slices.Sorted(maps.Keys(w.pending))
	clear(w.pending)
	w.mu.Unlock()

	if len(changed) == 0 || w.trigger == nil {
		return
	}
	w.logger.Debug("change settled", "files", changed)
	if err := w.trigger(ctx, changed); err != nil {
		w.logger.Error("trigger failed", "err", err)
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.inflight.Wait()
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("close watcher", "err", err)
	}
}

// registerTree adds dir and its non-ignored subdirectories. Unreadable
// subdirectories are logged and skipped.
func (w *Watcher) registerTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			w.logger.Warn("skip unreadable path", "path", path, "err", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return filepath.SkipDir
		}
		if rel != "." && w.filter.ignored(rel, true) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add %q: %w", path, addErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: register %q: %w", dir, err)
	}
	return nil
}
