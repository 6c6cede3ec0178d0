// Package inbox imports export files dropped into a watched directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kazz187/kanban/internal/board"
)

const (
	DefaultDebounce = 500 * time.Millisecond

	ImportedSuffix = ".imported"
	RejectedSuffix = ".rejected"
)

type Option interface {
	apply(*Watcher)
}

type optionFunc func(*Watcher)

func (o optionFunc) apply(w *Watcher) {
	o(w)
}

// WithDebounce sets how long a file must stay quiet before it is imported.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(w *Watcher) {
		w.debounce = d
	})
}

func WithImportOptions(opts ...board.ImportOption) Option {
	return optionFunc(func(w *Watcher) {
		w.importOpts = append(w.importOpts, opts...)
	})
}

// Watcher imports every *.json file that appears in dir. Imported files are
// renamed with ImportedSuffix, rejected ones with RejectedSuffix.
type Watcher struct {
	dir        string
	store      *board.Store
	debounce   time.Duration
	importOpts []board.ImportOption

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewWatcher(dir string, store *board.Store, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		store:    store,
		debounce: DefaultDebounce,
		timers:   map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt.apply(w)
	}
	return w
}

// Run watches the directory until ctx is done. Files already present when
// Run starts are imported too.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", w.dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	slog.InfoContext(ctx, "watching inbox", "dir", w.dir)

	ready := make(chan string, 16)
	defer w.stopTimers()

	existing, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", w.dir, err)
	}
	for _, path := range existing {
		w.schedule(ctx, path, ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isCandidate(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.schedule(ctx, event.Name, ready)
		case path := <-ready:
			w.Process(ctx, path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "fsnotify error", "error", err)
		}
	}
}

func isCandidate(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}

// schedule (re)starts the debounce timer of path.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// Process imports a single file and moves it out of the way.
func (w *Watcher) Process(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to read inbox file", "path", path, "error", err)
		return
	}

	suffix := ImportedSuffix
	if _, err := w.store.ImportData(raw, w.importOpts...); err != nil {
		suffix = RejectedSuffix
		slog.WarnContext(ctx, "inbox file rejected", "path", path, "error", err)
	} else {
		slog.InfoContext(ctx, "inbox file imported", "path", path)
	}
	if err := os.Rename(path, path+suffix); err != nil {
		slog.ErrorContext(ctx, "failed to rename inbox file", "path", path, "error", err)
	}
}
