package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/kanban/internal/board"
	"github.com/kazz187/kanban/internal/board/repositoryimpl"
	"github.com/kazz187/kanban/pkg/storage"
)

func TestWriter_PersistsLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewJSONRepository(storage.NewMemoryStorage())
	w := NewWriter(repo)

	s := board.NewStore(nil, board.WithObserver(w))
	for i := range 20 {
		s.AddBoard("board")
		if i%5 == 0 {
			s.AddLabel("l", "#abcdef")
		}
	}
	want := s.State()
	w.Close()

	data, err := repo.LoadData(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Data.BoardOrder, data.BoardOrder)

	labels, err := repo.LoadLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Labels, labels)
}

func TestWriter_EnqueueInitialState(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	s, err := board.Open(ctx, repo)
	require.NoError(t, err)

	w := NewWriter(repo)
	w.Enqueue(s.State())
	w.Close()

	reopened, err := board.Open(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, s.State().Data, reopened.State().Data)
	assert.Equal(t, s.State().Labels, reopened.State().Labels)
}

type failingRepo struct {
	board.Repository
	panicOnLabels bool
}

func (r failingRepo) SaveData(context.Context, *board.AppData) error {
	return errors.New("disk full")
}

func (r failingRepo) SaveLabels(context.Context, []board.Label) error {
	if r.panicOnLabels {
		panic("boom")
	}
	return nil
}

func TestWriter_FailuresAreNotSurfaced(t *testing.T) {
	var (
		mu     sync.Mutex
		failed = map[string]error{}
	)
	w := NewWriter(failingRepo{panicOnLabels: true}, WithErrorHandler(func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed[key] = err
	}))

	s := board.NewStore(nil, board.WithObserver(w))
	st := s.AddBoard("x")
	st2 := s.AddLabel("y", "#000000")
	w.Close()

	assert.Len(t, st.Data.BoardOrder, 2)
	assert.Len(t, st2.Labels, 5)
	mu.Lock()
	defer mu.Unlock()
	assert.ErrorContains(t, failed[board.DataKey], "disk full")
	assert.ErrorContains(t, failed[board.LabelsKey], "boom")
}

type blockingRepo struct {
	board.Repository
}

func (blockingRepo) SaveData(ctx context.Context, _ *board.AppData) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingRepo) SaveLabels(context.Context, []board.Label) error {
	return nil
}

func TestWriter_WriteTimeout(t *testing.T) {
	errCh := make(chan error, 1)
	w := NewWriter(blockingRepo{},
		WithWriteTimeout(20*time.Millisecond),
		WithErrorHandler(func(key string, err error) {
			if key == board.DataKey {
				errCh <- err
			}
		}),
	)
	defer w.Close()

	w.Enqueue(board.NewStore(nil).State())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("save was not cut off by the write timeout")
	}
}

func TestWriter_CloseIsIdempotent(t *testing.T) {
	w := NewWriter(repositoryimpl.NewJSONRepository(storage.NewMemoryStorage()))
	w.Close()
	w.Close()
}
