package board

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Change describes one committed state transition.
type Change struct {
	Op            string
	ResourceID    string
	Prev          *State
	Next          *State
	DataChanged   bool
	LabelsChanged bool
}

// Observer is notified after every committed change, in commit order.
// OnChange runs while the store is locked: it must not block and must not
// call back into the store.
type Observer interface {
	OnChange(c Change)
}

type ObserverFunc func(c Change)

func (f ObserverFunc) OnChange(c Change) {
	f(c)
}

type Option interface {
	apply(*Store)
}

type optionFunc func(*Store)

func (o optionFunc) apply(s *Store) {
	o(s)
}

// WithClock replaces time.Now, which stamps Task.CreatedAt and drives the
// derived views.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(s *Store) {
		s.now = now
	})
}

// WithIDGenerator replaces the UUID v4 generator used for new entities.
func WithIDGenerator(newID func() string) Option {
	return optionFunc(func(s *Store) {
		s.newID = newID
	})
}

func WithObserver(o Observer) Option {
	return optionFunc(func(s *Store) {
		s.observers = append(s.observers, o)
	})
}

// Store owns the document, the label registry and the current board pointer
// as one consistent unit. Every operation either applies fully or leaves the
// state untouched; targets that do not exist are silently ignored.
type Store struct {
	mu        sync.Mutex
	state     *State
	now       func() time.Time
	newID     func() string
	observers []Observer
}

// NewStore creates a store starting from initial. A nil initial state means
// the default document and label registry.
func NewStore(initial *State, opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	if initial == nil {
		initial = NewDefaultState(s.newID)
	}
	if initial.Data == nil {
		initial.Data = NewDefaultData(s.newID)
	}
	initial.Data.normalize()
	initial.Labels = normalizeLabels(initial.Labels)
	if _, ok := initial.Data.Boards[initial.CurrentBoardID]; !ok {
		initial.CurrentBoardID = firstBoardID(initial.Data)
	}
	s.state = initial
	return s
}

// Subscribe registers an observer for subsequent changes.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// State returns the current snapshot. Callers must treat it as read-only.
func (s *Store) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) ignore(op, resourceID string) *State {
	slog.Debug("ignored mutation on missing target", "op", op, "resource_id", resourceID)
	return s.state
}

func (s *Store) commit(op, resourceID string, next *State, dataChanged, labelsChanged bool) *State {
	c := Change{
		Op:            op,
		ResourceID:    resourceID,
		Prev:          s.state,
		Next:          next,
		DataChanged:   dataChanged,
		LabelsChanged: labelsChanged,
	}
	s.state = next
	for _, o := range s.observers {
		o.OnChange(c)
	}
	return next
}

// commitData replaces the document, keeping the label registry.
func (s *Store) commitData(op, resourceID string, data *AppData, currentBoardID string) *State {
	next := &State{
		Data:           data,
		Labels:         s.state.Labels,
		CurrentBoardID: currentBoardID,
	}
	return s.commit(op, resourceID, next, true, false)
}

// ownerOf returns the first board in BoardOrder that holds every given column.
func ownerOf(d *AppData, columnIDs ...string) (*Board, bool) {
	for _, boardID := range d.BoardOrder {
		b, ok := d.Boards[boardID]
		if !ok {
			continue
		}
		all := true
		for _, cid := range columnIDs {
			if _, ok := b.Columns[cid]; !ok {
				all = false
				break
			}
		}
		if all {
			return b, true
		}
	}
	return nil, false
}

// withBoard returns a shallow copy of d with b stored under its id.
func (d *AppData) withBoard(b *Board) *AppData {
	nd := *d
	nd.Boards = cloneMap(d.Boards)
	nd.Boards[b.ID] = b
	return &nd
}

func (b *Board) clone() *Board {
	nb := *b
	nb.Columns = cloneMap(b.Columns)
	nb.ColumnOrder = cloneSlice(b.ColumnOrder)
	return &nb
}

func (b *Board) withColumn(c *Column) *Board {
	nb := *b
	nb.Columns = cloneMap(b.Columns)
	nb.Columns[c.ID] = c
	return &nb
}

// cloneMap and cloneSlice never return nil so the result can be written to.
func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	return append(make([]T, 0, len(s)+1), s...)
}

// insertAt inserts v at index i, clamping i into [0, len(s)].
func insertAt[T any](s []T, i int, v T) []T {
	i = max(0, min(i, len(s)))
	out := make([]T, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	return append(out, s[i:]...)
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s))
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func removeValue[T comparable](s []T, v T) []T {
	out := make([]T, 0, len(s))
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
