package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/kanban/internal/duedate"
)

func TestComputeStatistics(t *testing.T) {
	s := newTestStore(t)
	s.AddLabel("l5", "#000001")
	s.AddLabel("l6", "#000002")
	st := s.State()
	cols := currentColumns(t, st)
	todo, done := cols[0], cols[2]
	l := st.Labels

	yesterday := duedate.New(2025, time.June, 14)
	today := duedate.New(2025, time.June, 15)

	s.AddTask(todo, TaskInput{Title: "overdue", DueDate: &yesterday, Priority: PriorityHigh, Labels: []string{l[1].ID, l[2].ID}})
	s.AddTask(todo, TaskInput{Title: "due today", DueDate: &today, Labels: []string{l[1].ID}})
	s.AddTask(done, TaskInput{Title: "done late", DueDate: &yesterday, Priority: PriorityHigh})
	st = s.AddTask(done, TaskInput{Title: "done", Labels: []string{"deleted"}})

	stats := ComputeStatistics(st, testNow)
	require.NotNil(t, stats)
	assert.Equal(t, 4, stats.TotalTasks)
	assert.Equal(t, 2, stats.CompletedTasks)
	assert.Equal(t, 50, stats.CompletionRate)
	assert.Equal(t, 1, stats.OverdueTasks)
	assert.Equal(t, 1, stats.HighPriorityTasks)

	require.Len(t, stats.TopLabels, 5)
	got := make([]string, 0, len(stats.TopLabels))
	for _, u := range stats.TopLabels {
		got = append(got, u.ID)
	}
	assert.Equal(t, []string{l[1].ID, l[2].ID, l[0].ID, l[3].ID, l[4].ID}, got)
	assert.Equal(t, 2, stats.TopLabels[0].Count)
	assert.Equal(t, 0, stats.TopLabels[4].Count)
}

func TestComputeStatistics_Rounding(t *testing.T) {
	s := newTestStore(t)
	cols := currentColumns(t, s.State())
	addTask(s, cols[0], "a")
	addTask(s, cols[1], "b")
	st := s.AddTask(cols[2], TaskInput{Title: "c"})

	stats := ComputeStatistics(st, testNow)
	assert.Equal(t, 33, stats.CompletionRate)
}

func TestComputeStatistics_EmptyBoard(t *testing.T) {
	s := newTestStore(t)
	stats := ComputeStatistics(s.State(), testNow)
	require.NotNil(t, stats)
	assert.Zero(t, stats.TotalTasks)
	assert.Zero(t, stats.CompletionRate)

	st := s.DeleteBoard(s.State().CurrentBoardID)
	assert.Nil(t, ComputeStatistics(st, testNow))
}
