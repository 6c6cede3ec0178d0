package inbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/kanban/internal/board"
)

const validExport = `{"data":{"tasks":{},"boards":{"b1":{"id":"b1","title":"Inbox","columns":{},"columnOrder":[]}},"boardOrder":["b1"]},"labels":[]}`

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestWatcher_Process(t *testing.T) {
	dir := t.TempDir()
	s := board.NewStore(nil)
	w := NewWatcher(dir, s)

	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte(validExport), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"data":{}}`), 0o644))

	w.Process(context.Background(), good)
	assert.True(t, exists(good+ImportedSuffix))
	assert.False(t, exists(good))
	assert.Equal(t, "b1", s.State().CurrentBoardID)

	before := s.State()
	w.Process(context.Background(), bad)
	assert.True(t, exists(bad+RejectedSuffix))
	assert.Same(t, before, s.State())

	// Already handled files are skipped quietly.
	w.Process(context.Background(), good)
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	s := board.NewStore(nil)
	w := NewWatcher(dir, s, WithDebounce(20*time.Millisecond))

	preexisting := filepath.Join(dir, "early.json")
	require.NoError(t, os.WriteFile(preexisting, []byte(validExport), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return exists(preexisting + ImportedSuffix)
	}, 5*time.Second, 20*time.Millisecond)

	dropped := filepath.Join(dir, "later.json")
	require.NoError(t, os.WriteFile(dropped, []byte(`not json`), 0o644))
	require.Eventually(t, func() bool {
		return exists(dropped + RejectedSuffix)
	}, 5*time.Second, 20*time.Millisecond)

	ignored := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(ignored, []byte(`{}`), 0o644))

	cancel()
	require.NoError(t, <-errCh)
	assert.True(t, exists(ignored))
}

func TestWatcher_StrictImport(t *testing.T) {
	dir := t.TempDir()
	s := board.NewStore(nil)
	w := NewWatcher(dir, s, WithImportOptions(board.WithStrict()))

	// Structurally present but the board has no id.
	path := filepath.Join(dir, "loose.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":{"tasks":{},"boards":{"b1":{"title":"x"}},"boardOrder":["b1"]},"labels":[]}`), 0o644))

	w.Process(context.Background(), path)
	assert.True(t, exists(path+RejectedSuffix))
}
