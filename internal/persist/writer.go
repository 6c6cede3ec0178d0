// Package persist saves store snapshots in the background. Writes are fire
// and forget: the store never waits for them and failures are only logged.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/kanban/internal/board"
	"github.com/kazz187/kanban/pkg/panicerr"
)

const defaultWriteTimeout = 10 * time.Second

type Option interface {
	apply(*Writer)
}

type optionFunc func(*Writer)

func (o optionFunc) apply(w *Writer) {
	o(w)
}

// WithWriteTimeout bounds each save. Non-positive values keep the default.
func WithWriteTimeout(d time.Duration) Option {
	return optionFunc(func(w *Writer) {
		if d > 0 {
			w.timeout = d
		}
	})
}

// WithErrorHandler is called for every failed write, after it is logged.
func WithErrorHandler(fn func(key string, err error)) Option {
	return optionFunc(func(w *Writer) {
		w.onError = fn
	})
}

// Writer observes a board.Store and persists the latest document and label
// registry. Bursts of changes collapse into a single write of the newest
// snapshot.
type Writer struct {
	repo    board.Repository
	timeout time.Duration
	onError func(key string, err error)

	mu          sync.Mutex
	data        *board.AppData
	labels      []board.Label
	labelsDirty bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        conc.WaitGroup
}

func NewWriter(repo board.Repository, opts ...Option) *Writer {
	w := &Writer{
		repo:    repo,
		timeout: defaultWriteTimeout,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(w)
	}
	w.wg.Go(w.loop)
	return w
}

// OnChange queues whatever part of the snapshot the change touched.
func (w *Writer) OnChange(c board.Change) {
	w.mu.Lock()
	if c.DataChanged {
		w.data = c.Next.Data
	}
	if c.LabelsChanged {
		w.labels = c.Next.Labels
		w.labelsDirty = true
	}
	w.mu.Unlock()
	if c.DataChanged || c.LabelsChanged {
		w.kick()
	}
}

// Enqueue queues the whole snapshot, e.g. the defaults of a first run.
func (w *Writer) Enqueue(st *board.State) {
	w.mu.Lock()
	w.data = st.Data
	w.labels = st.Labels
	w.labelsDirty = true
	w.mu.Unlock()
	w.kick()
}

func (w *Writer) kick() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Close writes anything still pending and stops the background goroutine.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
}

func (w *Writer) loop() {
	for {
		select {
		case <-w.notify:
			w.flush()
		case <-w.done:
			w.flush()
			return
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	data, labels, labelsDirty := w.data, w.labels, w.labelsDirty
	w.data, w.labels, w.labelsDirty = nil, nil, false
	w.mu.Unlock()

	if data != nil {
		w.save(board.DataKey, func(ctx context.Context) error {
			return w.repo.SaveData(ctx, data)
		})
	}
	if labelsDirty {
		w.save(board.LabelsKey, func(ctx context.Context) error {
			return w.repo.SaveLabels(ctx, labels)
		})
	}
}

func (w *Writer) save(key string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := panicerr.TryContext(ctx, fn); err != nil {
		slog.Error("failed to persist snapshot", "key", key, "error", err)
		if w.onError != nil {
			w.onError(key, err)
		}
	}
}
