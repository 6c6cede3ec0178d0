package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterTasks(t *testing.T) {
	s := newTestStore(t)
	st := s.State()
	cols := currentColumns(t, st)
	bug, feature := st.Labels[1].ID, st.Labels[0].ID
	alice, bob := "alice", "bob"

	s.AddTask(cols[0], TaskInput{Title: "Fix Login", Priority: PriorityHigh, Labels: []string{bug}, Assignee: &alice})
	s.AddTask(cols[1], TaskInput{Title: "Signup page", Description: "login link", Priority: PriorityLow, Labels: []string{feature}, Assignee: &bob})
	st = s.AddTask(cols[2], TaskInput{Title: "Docs", Priority: PriorityHigh})
	b, _ := st.CurrentBoard()

	titles := func(tasks []*Task) []string {
		out := []string{}
		for _, t := range tasks {
			out = append(out, t.Title)
		}
		return out
	}

	cases := []struct {
		name   string
		filter TaskFilter
		want   []string
	}{
		{"no constraint", TaskFilter{Priority: FilterAll, Assignee: FilterAll}, []string{"Fix Login", "Signup page", "Docs"}},
		{"blank query", TaskFilter{Query: "   "}, []string{"Fix Login", "Signup page", "Docs"}},
		{"query matches title or description", TaskFilter{Query: "LOGIN"}, []string{"Fix Login", "Signup page"}},
		{"priority", TaskFilter{Priority: "high"}, []string{"Fix Login", "Docs"}},
		{"assignee", TaskFilter{Assignee: "bob"}, []string{"Signup page"}},
		{"any label", TaskFilter{LabelIDs: []string{bug, feature}}, []string{"Fix Login", "Signup page"}},
		{"predicates are ANDed", TaskFilter{Query: "login", Priority: "high"}, []string{"Fix Login"}},
		{"nothing", TaskFilter{Query: "zzz"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, titles(FilterTasks(st.Data, b, tc.filter)))
		})
	}
}

func TestAssignees(t *testing.T) {
	s := newTestStore(t)
	cols := currentColumns(t, s.State())
	zed, amy, empty := "zed", "amy", ""
	s.AddTask(cols[0], TaskInput{Title: "1", Assignee: &zed})
	s.AddTask(cols[1], TaskInput{Title: "2", Assignee: &amy})
	s.AddTask(cols[1], TaskInput{Title: "3", Assignee: &zed})
	s.AddTask(cols[2], TaskInput{Title: "4", Assignee: &empty})
	st := s.AddTask(cols[2], TaskInput{Title: "5"})

	b, _ := st.CurrentBoard()
	assert.Equal(t, []string{"amy", "zed"}, Assignees(st.Data, b))
}

func TestViews_NilBoard(t *testing.T) {
	st := newTestStore(t).State()
	assert.Empty(t, BoardTasks(st.Data, nil))
	assert.Empty(t, FilterTasks(st.Data, nil, TaskFilter{}))
	assert.Equal(t, []string{}, Assignees(st.Data, nil))
	assert.Equal(t, []*Task{}, ColumnTasks(st.Data, nil))
}

func TestColumnTasks_SkipsDangling(t *testing.T) {
	s := newTestStore(t)
	cols := currentColumns(t, s.State())
	id := addTask(s, cols[0], "a")
	st := s.State()

	c := *st.Data.Boards[st.CurrentBoardID].Columns[cols[0]]
	c.TaskIDs = []string{"ghost", id}
	tasks := ColumnTasks(st.Data, &c)
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
}

func TestResolveLabels(t *testing.T) {
	labels := []Label{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	got := ResolveLabels(labels, []string{"b", "gone", "a"})
	assert.Equal(t, []Label{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}}, got)
}
