package board

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/kanban/internal/duedate"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func seqID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithIDGenerator(seqID()),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewStore(nil, opts...)
}

func requireConsistent(t *testing.T, st *State) {
	t.Helper()
	require.NoError(t, st.Data.Validate())
	if len(st.Data.BoardOrder) == 0 {
		require.Empty(t, st.CurrentBoardID)
		return
	}
	_, ok := st.CurrentBoard()
	require.True(t, ok, "current board %q must exist", st.CurrentBoardID)
}

func currentColumns(t *testing.T, st *State) []string {
	t.Helper()
	b, ok := st.CurrentBoard()
	require.True(t, ok)
	return b.ColumnOrder
}

func addTask(s *Store, columnID, title string) string {
	before := s.State().Data.Tasks
	st := s.AddTask(columnID, TaskInput{Title: title, Priority: PriorityMedium, Labels: []string{}})
	for id := range st.Data.Tasks {
		if _, ok := before[id]; !ok {
			return id
		}
	}
	return ""
}

func TestNewStore_Defaults(t *testing.T) {
	s := newTestStore(t)
	st := s.State()
	requireConsistent(t, st)

	require.Len(t, st.Data.BoardOrder, 1)
	b, ok := st.CurrentBoard()
	require.True(t, ok)
	assert.Equal(t, "メインボード", b.Title)
	assert.Empty(t, st.Data.Tasks)

	titles := make([]string, 0, len(b.ColumnOrder))
	for _, cid := range b.ColumnOrder {
		titles = append(titles, b.Columns[cid].Title)
		assert.Empty(t, b.Columns[cid].TaskIDs)
	}
	assert.Equal(t, []string{"未着手", "進行中", "完了"}, titles)
	assert.Len(t, st.Labels, 4)
}

func TestStore_AddTask(t *testing.T) {
	s := newTestStore(t)
	todo := currentColumns(t, s.State())[0]

	st := s.AddTask(todo, TaskInput{
		Title:    "X",
		Priority: PriorityMedium,
		Labels:   []string{},
	})
	requireConsistent(t, st)

	require.Len(t, st.Data.Tasks, 1)
	var task *Task
	for _, v := range st.Data.Tasks {
		task = v
	}
	assert.Equal(t, todo, task.ColumnID)
	assert.Equal(t, "X", task.Title)
	assert.Nil(t, task.DueDate)
	assert.Nil(t, task.Assignee)
	assert.Equal(t, testNow.UnixMilli(), task.CreatedAt)
	assert.True(t, testNow.Equal(task.CreatedTime()))

	b, _ := st.CurrentBoard()
	ids := b.Columns[todo].TaskIDs
	require.Len(t, ids, 1)
	assert.Equal(t, task.ID, ids[len(ids)-1])
}

func TestStore_AddTaskDefaultsPriority(t *testing.T) {
	s := newTestStore(t)
	todo := currentColumns(t, s.State())[0]
	id := addTask(s, todo, "a")
	st := s.AddTask(todo, TaskInput{Title: "b"})
	for tid, task := range st.Data.Tasks {
		if tid != id {
			assert.Equal(t, PriorityMedium, task.Priority)
			assert.NotNil(t, task.Labels)
		}
	}
}

func TestStore_NotFoundIsNoop(t *testing.T) {
	s := newTestStore(t)
	before := s.State()

	ops := map[string]func() *State{
		"updateBoard":  func() *State { return s.UpdateBoard("missing", "x") },
		"deleteBoard":  func() *State { return s.DeleteBoard("missing") },
		"switchBoard":  func() *State { return s.SwitchBoard("missing") },
		"addColumn":    func() *State { return s.AddColumn("missing", "x") },
		"updateColumn": func() *State { return s.UpdateColumn(before.CurrentBoardID, "missing", "x") },
		"deleteColumn": func() *State { return s.DeleteColumn("missing", "missing") },
		"addTask":      func() *State { return s.AddTask("missing", TaskInput{Title: "x"}) },
		"updateTask":   func() *State { return s.UpdateTask("missing", TaskPatch{Title: Set("x")}) },
		"deleteTask":   func() *State { return s.DeleteTask("missing") },
		"moveTask":     func() *State { return s.MoveTask("missing", "a", "b", 0, 0) },
		"moveColumn":   func() *State { return s.MoveColumn("missing", 0, 1) },
		"updateLabel":  func() *State { return s.UpdateLabel("missing", "x", "#000000") },
		"deleteLabel":  func() *State { return s.DeleteLabel("missing") },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.Same(t, before, op())
			assert.Same(t, before, s.State())
		})
	}
}

func TestStore_SwitchBoard(t *testing.T) {
	s := newTestStore(t)
	first := s.State().CurrentBoardID

	st := s.AddBoard("second")
	assert.Equal(t, first, st.CurrentBoardID)
	second := st.Data.BoardOrder[1]

	assert.Same(t, st, s.SwitchBoard(first))
	assert.Same(t, st, s.SwitchBoard("missing"))

	switched := s.SwitchBoard(second)
	assert.Equal(t, second, switched.CurrentBoardID)
	assert.Same(t, st.Data, switched.Data)
}

func TestStore_AddBoardBecomesCurrentWhenNoneIs(t *testing.T) {
	s := newTestStore(t)
	st := s.DeleteBoard(s.State().CurrentBoardID)
	assert.Empty(t, st.Data.BoardOrder)
	assert.Empty(t, st.CurrentBoardID)
	requireConsistent(t, st)

	st = s.AddBoard("fresh")
	require.Len(t, st.Data.BoardOrder, 1)
	assert.Equal(t, st.Data.BoardOrder[0], st.CurrentBoardID)
	requireConsistent(t, st)
}

func TestStore_DeleteBoardCascade(t *testing.T) {
	s := newTestStore(t)
	firstCols := currentColumns(t, s.State())
	first := s.State().CurrentBoardID

	st := s.AddBoard("other")
	other := st.Data.BoardOrder[1]
	otherCol := st.Data.Boards[other].ColumnOrder[0]

	var doomed []string
	for i, cid := range firstCols {
		doomed = append(doomed, addTask(s, cid, fmt.Sprintf("t%d", i)))
	}
	doomed = append(doomed, addTask(s, firstCols[0], "extra"))
	kept := addTask(s, otherCol, "kept")

	st = s.DeleteBoard(first)
	requireConsistent(t, st)
	for _, id := range doomed {
		assert.NotContains(t, st.Data.Tasks, id)
	}
	assert.Contains(t, st.Data.Tasks, kept)
	assert.Len(t, st.Data.Tasks, 1)
	assert.Equal(t, []string{other}, st.Data.BoardOrder)
	assert.Equal(t, other, st.CurrentBoardID)
}

func TestStore_Columns(t *testing.T) {
	s := newTestStore(t)
	boardID := s.State().CurrentBoardID
	cols := currentColumns(t, s.State())

	st := s.AddColumn(boardID, "レビュー")
	requireConsistent(t, st)
	b := st.Data.Boards[boardID]
	require.Len(t, b.ColumnOrder, 4)
	added := b.ColumnOrder[3]
	assert.Equal(t, "レビュー", b.Columns[added].Title)
	assert.Empty(t, b.Columns[added].TaskIDs)

	st = s.UpdateColumn(boardID, added, "検証")
	assert.Equal(t, "検証", st.Data.Boards[boardID].Columns[added].Title)

	t1 := addTask(s, cols[1], "a")
	t2 := addTask(s, cols[1], "b")
	t3 := addTask(s, cols[0], "c")

	st = s.DeleteColumn(boardID, cols[1])
	requireConsistent(t, st)
	b = st.Data.Boards[boardID]
	assert.NotContains(t, b.Columns, cols[1])
	assert.Equal(t, []string{cols[0], cols[2], added}, b.ColumnOrder)
	assert.NotContains(t, st.Data.Tasks, t1)
	assert.NotContains(t, st.Data.Tasks, t2)
	assert.Contains(t, st.Data.Tasks, t3)
}

func TestStore_MoveColumn(t *testing.T) {
	s := newTestStore(t)
	boardID := s.State().CurrentBoardID
	cols := currentColumns(t, s.State())

	st := s.MoveColumn(boardID, 0, 2)
	assert.Equal(t, []string{cols[1], cols[2], cols[0]}, st.Data.Boards[boardID].ColumnOrder)
	requireConsistent(t, st)

	st = s.MoveColumn(boardID, 2, -5)
	assert.Equal(t, cols, st.Data.Boards[boardID].ColumnOrder)

	assert.Same(t, st, s.MoveColumn(boardID, 1, 1))
	assert.Same(t, st, s.MoveColumn(boardID, 7, 0))
}

func TestStore_UpdateTask(t *testing.T) {
	s := newTestStore(t)
	todo := currentColumns(t, s.State())[0]
	who := "bob"
	st := s.AddTask(todo, TaskInput{Title: "old", Description: "keep", Assignee: &who, Priority: PriorityLow})
	var id string
	for k := range st.Data.Tasks {
		id = k
	}

	due := duedate.New(2025, time.July, 1)
	st = s.UpdateTask(id, TaskPatch{
		Title:    Set("new"),
		DueDate:  Set(&due),
		Assignee: Set[*string](nil),
	})
	requireConsistent(t, st)
	task := st.Data.Tasks[id]
	assert.Equal(t, "new", task.Title)
	assert.Equal(t, "keep", task.Description)
	assert.Equal(t, PriorityLow, task.Priority)
	assert.Equal(t, &due, task.DueDate)
	assert.Nil(t, task.Assignee)
	assert.Equal(t, todo, task.ColumnID)
	assert.Equal(t, id, task.ID)
}

func TestTaskPatch_UnmarshalJSON(t *testing.T) {
	var p TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","assignee":null,"dueDate":"2025-01-02"}`), &p))

	assert.True(t, p.Title.Set)
	assert.Equal(t, "t", p.Title.Value)
	assert.True(t, p.Assignee.Set)
	assert.Nil(t, p.Assignee.Value)
	require.True(t, p.DueDate.Set)
	assert.Equal(t, duedate.New(2025, time.January, 2), *p.DueDate.Value)
	assert.False(t, p.Description.Set)
	assert.False(t, p.Labels.Set)
}

func TestStore_UpdateTaskClearsDueDate(t *testing.T) {
	s := newTestStore(t)
	todo := currentColumns(t, s.State())[0]
	due := duedate.New(2025, time.June, 20)
	st := s.AddTask(todo, TaskInput{Title: "a", DueDate: &due})
	cur, _ := st.CurrentBoard()
	id := cur.Columns[todo].TaskIDs[0]
	require.NotNil(t, st.Data.Tasks[id].DueDate)

	var p TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":""}`), &p))
	require.True(t, p.DueDate.Set)

	st = s.UpdateTask(id, p)
	assert.Nil(t, st.Data.Tasks[id].DueDate)
}

func TestStore_DeleteTask(t *testing.T) {
	s := newTestStore(t)
	todo := currentColumns(t, s.State())[0]
	a := addTask(s, todo, "a")
	b := addTask(s, todo, "b")

	st := s.DeleteTask(a)
	requireConsistent(t, st)
	assert.NotContains(t, st.Data.Tasks, a)
	cur, _ := st.CurrentBoard()
	assert.Equal(t, []string{b}, cur.Columns[todo].TaskIDs)
}

func TestStore_MoveTask(t *testing.T) {
	type setup struct {
		s     *Store
		cols  []string
		tasks []string // a, b, c in cols[0]; d in cols[1]
	}
	prepare := func(t *testing.T) setup {
		s := newTestStore(t)
		cols := currentColumns(t, s.State())
		return setup{
			s:    s,
			cols: cols,
			tasks: []string{
				addTask(s, cols[0], "a"),
				addTask(s, cols[0], "b"),
				addTask(s, cols[0], "c"),
				addTask(s, cols[1], "d"),
			},
		}
	}
	columnIDs := func(st *State, cid string) []string {
		b, _ := st.CurrentBoard()
		return b.Columns[cid].TaskIDs
	}

	t.Run("between columns", func(t *testing.T) {
		x := prepare(t)
		a, b, c, d := x.tasks[0], x.tasks[1], x.tasks[2], x.tasks[3]
		st := x.s.MoveTask(b, x.cols[0], x.cols[1], 1, 0)
		requireConsistent(t, st)
		assert.Equal(t, []string{a, c}, columnIDs(st, x.cols[0]))
		assert.Equal(t, []string{b, d}, columnIDs(st, x.cols[1]))
		assert.Equal(t, x.cols[1], st.Data.Tasks[b].ColumnID)
	})

	t.Run("within a column", func(t *testing.T) {
		x := prepare(t)
		a, b, c := x.tasks[0], x.tasks[1], x.tasks[2]
		before := x.s.State()
		st := x.s.MoveTask(a, x.cols[0], x.cols[0], 0, 2)
		requireConsistent(t, st)
		assert.Equal(t, []string{b, c, a}, columnIDs(st, x.cols[0]))
		assert.Equal(t, x.cols[0], st.Data.Tasks[a].ColumnID)
		assert.Same(t, before.Data.Tasks[a], st.Data.Tasks[a])
	})

	t.Run("same position is a no-op", func(t *testing.T) {
		x := prepare(t)
		before := x.s.State()
		assert.Same(t, before, x.s.MoveTask(x.tasks[1], x.cols[0], x.cols[0], 1, 1))
	})

	t.Run("stale source index removes by id", func(t *testing.T) {
		x := prepare(t)
		a, b, c, d := x.tasks[0], x.tasks[1], x.tasks[2], x.tasks[3]
		st := x.s.MoveTask(c, x.cols[0], x.cols[1], 0, 1)
		requireConsistent(t, st)
		assert.Equal(t, []string{a, b}, columnIDs(st, x.cols[0]))
		assert.Equal(t, []string{d, c}, columnIDs(st, x.cols[1]))
	})

	t.Run("task not in source column", func(t *testing.T) {
		x := prepare(t)
		before := x.s.State()
		assert.Same(t, before, x.s.MoveTask(x.tasks[3], x.cols[0], x.cols[2], 0, 0))
	})

	t.Run("destination index is clamped", func(t *testing.T) {
		x := prepare(t)
		a := x.tasks[0]
		st := x.s.MoveTask(a, x.cols[0], x.cols[2], 0, 99)
		requireConsistent(t, st)
		assert.Equal(t, []string{a}, columnIDs(st, x.cols[2]))
	})

	t.Run("columns on different boards", func(t *testing.T) {
		x := prepare(t)
		st := x.s.AddBoard("other")
		otherCol := st.Data.Boards[st.Data.BoardOrder[1]].ColumnOrder[0]
		assert.Same(t, st, x.s.MoveTask(x.tasks[0], x.cols[0], otherCol, 0, 0))
	})
}

func TestStore_Labels(t *testing.T) {
	s := newTestStore(t)
	st := s.AddLabel("ドキュメント", "#0079bf")
	requireConsistent(t, st)
	require.Len(t, st.Labels, 5)
	added := st.Labels[4]
	assert.Equal(t, "ドキュメント", added.Name)

	st = s.UpdateLabel(added.ID, "docs", "#000000")
	assert.Equal(t, Label{ID: added.ID, Name: "docs", Color: "#000000"}, st.Labels[4])
}

func TestStore_DeleteLabelCascade(t *testing.T) {
	s := newTestStore(t)
	st := s.State()
	l, m := st.Labels[0].ID, st.Labels[1].ID
	todo := currentColumns(t, st)[0]
	st = s.AddTask(todo, TaskInput{Title: "T", Labels: []string{l, m}})
	var id string
	for k := range st.Data.Tasks {
		id = k
	}

	st = s.DeleteLabel(l)
	requireConsistent(t, st)
	assert.Equal(t, []string{m}, st.Data.Tasks[id].Labels)
	for _, label := range st.Labels {
		assert.NotEqual(t, l, label.ID)
	}
	assert.Len(t, st.Data.Tasks, 1)
}

func TestStore_PreviousSnapshotsAreNotMutated(t *testing.T) {
	s := newTestStore(t)
	cols := currentColumns(t, s.State())
	addTask(s, cols[0], "a")
	b := addTask(s, cols[0], "b")

	prev := s.State()
	golden, err := Export(prev)
	require.NoError(t, err)

	s.MoveTask(b, cols[0], cols[1], 1, 0)
	s.UpdateTask(b, TaskPatch{Title: Set("changed")})
	s.DeleteLabel(prev.Labels[0].ID)
	s.MoveColumn(prev.CurrentBoardID, 0, 2)
	s.AddColumn(prev.CurrentBoardID, "new")
	s.DeleteColumn(prev.CurrentBoardID, cols[0])
	s.AddBoard("another")

	after, err := Export(prev)
	require.NoError(t, err)
	assert.JSONEq(t, string(golden), string(after))
}

func TestStore_Observer(t *testing.T) {
	var changes []Change
	s := newTestStore(t, WithObserver(ObserverFunc(func(c Change) {
		changes = append(changes, c)
	})))
	first := s.State().CurrentBoardID

	s.AddLabel("x", "#111111")
	st := s.AddBoard("b")
	s.SwitchBoard(st.Data.BoardOrder[1])
	s.SwitchBoard("missing")

	require.Len(t, changes, 3)
	assert.Equal(t, "addLabel", changes[0].Op)
	assert.False(t, changes[0].DataChanged)
	assert.True(t, changes[0].LabelsChanged)

	assert.Equal(t, "addBoard", changes[1].Op)
	assert.Equal(t, st.Data.BoardOrder[1], changes[1].ResourceID)
	assert.True(t, changes[1].DataChanged)
	assert.Same(t, st, changes[1].Next)

	assert.Equal(t, "switchBoard", changes[2].Op)
	assert.Equal(t, first, changes[2].Prev.CurrentBoardID)
	assert.False(t, changes[2].DataChanged)
	assert.False(t, changes[2].LabelsChanged)
}

func TestNewStore_RepairsCurrentPointer(t *testing.T) {
	data := NewDefaultData(seqID())
	s := NewStore(&State{Data: data, CurrentBoardID: "gone"})
	assert.Equal(t, data.BoardOrder[0], s.State().CurrentBoardID)
	assert.NotNil(t, s.State().Labels)
}
