// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs work when files under a directory tree change.
//
// A Watcher registers every non-ignored directory with fsnotify and
// coalesces events: after a quiet period the callback fires once with
// the sorted set of changed paths. Glob patterns narrow which files
// count as changes; a built-in ignore set drops VCS metadata, dependency
// caches, and editor noise.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last event before the
// callback fires.
const defaultDebounce = 500 * time.Millisecond

// alwaysIgnore drops paths that generate high-frequency noise no matter
// what the command declares.
var alwaysIgnore = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/__pycache__/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config parameterizes a Watcher.
	Config struct {
		// Dir is the directory tree to watch. Empty means the current
		// working directory.
		Dir string

		// Patterns narrows which changed files trigger the callback:
		// doublestar globs matched against paths relative to Dir. Empty
		// matches every non-ignored file.
		Patterns []string

		// Ignore adds glob patterns to the built-in ignore set.
		Ignore []string

		// Debounce overrides the quiet period. Zero or negative keeps
		// the default.
		Debounce time.Duration

		// ClearScreen clears the terminal before each callback.
		ClearScreen bool

		// OnChange receives the sorted changed paths, relative to Dir.
		// A returned error is logged and the watch keeps running.
		OnChange func(ctx context.Context, changed []string) error

		// Stdout receives the clear-screen sequence. nil means
		// os.Stdout.
		Stdout io.Writer
	}

	// Watcher owns one fsnotify session over a directory tree. Run may
	// be called exactly once.
	Watcher struct {
		fsw      *fsnotify.Watcher
		dir      string
		patterns []string
		ignore   []string
		debounce time.Duration
		clear    bool
		onChange func(ctx context.Context, changed []string) error
		stdout   io.Writer
		started  atomic.Bool
	}
)

// New resolves the configured directory, validates the patterns, and
// registers every non-ignored subdirectory for monitoring.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %q: %w", dir, err)
	}
	for _, pat := range cfg.Patterns {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: bad pattern %q", pat)
		}
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: bad ignore pattern %q", pat)
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: start fsnotify: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		dir:      abs,
		patterns: cfg.Patterns,
		ignore:   append(slices.Clone(alwaysIgnore), cfg.Ignore...),
		debounce: cfg.Debounce,
		clear:    cfg.ClearScreen,
		onChange: cfg.OnChange,
		stdout:   cfg.Stdout,
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. Cancellation is a clean
// nil return; an unrecoverable fsnotify failure is an error. The
// callback runs on the event loop goroutine, so events raised while it
// executes queue up and coalesce into the next batch.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			log.Warn("watch: close fsnotify", "err", err)
		}
	}()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, err := filepath.Rel(w.dir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if w.ignored(rel) {
				continue
			}
			// Register created directories before pattern filtering:
			// a new directory rarely matches a file pattern, but files
			// created inside it later must still be seen.
			if evt.Has(fsnotify.Create) {
				w.addCreated(evt.Name, rel)
			}
			if !w.selected(rel) {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.fire(ctx, pending)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: %w", err)
			}
			log.Warn("watch: fsnotify error", "err", err)
		}
	}
}

// fire drains the pending set into the callback.
func (w *Watcher) fire(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	changed := slices.Sorted(maps.Keys(pending))
	clear(pending)
	if w.clear {
		fmt.Fprint(w.stdout, "\033[2J\033[H")
	}
	if w.onChange == nil {
		return
	}
	if err := w.onChange(ctx, changed); err != nil {
		log.Warn("watch: run failed", "err", err)
	}
}

// addTree registers root and every non-ignored directory below it.
// Inaccessible paths are logged and skipped so one unreadable subtree
// does not block the watch.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn("watch: skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.dir, path)
		if err != nil {
			return nil
		}
		if w.ignored(rel) || w.ignored(rel+"/") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: register %q: %w", path, err)
		}
		return nil
	})
}

// addCreated extends the watch to directories created after the initial
// walk. The caller has already screened rel against the ignore set.
func (w *Watcher) addCreated(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if w.ignored(rel + "/") {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		log.Warn("watch: register new directory", "path", path, "err", err)
	}
}

// ignored reports whether rel matches the ignore set.
func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignore, rel)
}

// selected reports whether rel triggers the callback. No patterns means
// every file does.
func (w *Watcher) selected(rel string) bool {
	return len(w.patterns) == 0 || matchAny(w.patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	slashed := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(alwaysIgnore)
}
