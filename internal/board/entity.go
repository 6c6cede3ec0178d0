// Package board implements the kanban document: boards of ordered columns,
// columns of ordered tasks, and the label registry, together with the Store
// that applies every mutation to them as a copy-on-write state transition.
package board

import (
	"time"

	"github.com/kazz187/kanban/internal/duedate"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is owned by exactly one column. ColumnID must always agree with the
// column whose TaskIDs lists the task.
type Task struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	DueDate     *duedate.Date `json:"dueDate" yaml:"dueDate"`
	Priority    Priority      `json:"priority" yaml:"priority"`
	Labels      []string      `json:"labels" yaml:"labels"`
	Assignee    *string       `json:"assignee" yaml:"assignee"`
	ColumnID    string        `json:"columnId" yaml:"columnId"`
	CreatedAt   int64         `json:"createdAt" yaml:"createdAt"` // unix milliseconds
}

func (t *Task) CreatedTime() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

func (t *Task) HasLabel(labelID string) bool {
	for _, id := range t.Labels {
		if id == labelID {
			return true
		}
	}
	return false
}

type Column struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	TaskIDs []string `json:"taskIds" yaml:"taskIds"`
}

type Board struct {
	ID          string             `json:"id" yaml:"id"`
	Title       string             `json:"title" yaml:"title"`
	Columns     map[string]*Column `json:"columns" yaml:"columns"`
	ColumnOrder []string           `json:"columnOrder" yaml:"columnOrder"`
}

// AppData is the document root. Tasks are global across boards; ordering is
// carried by BoardOrder, ColumnOrder and TaskIDs, never by map iteration.
type AppData struct {
	Tasks      map[string]*Task  `json:"tasks" yaml:"tasks"`
	Boards     map[string]*Board `json:"boards" yaml:"boards"`
	BoardOrder []string          `json:"boardOrder" yaml:"boardOrder"`
}

type Label struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// State is one immutable snapshot of everything the store owns. A mutation
// never edits a State in place; it builds a new one, so pointer comparison
// is enough to detect change.
type State struct {
	Data           *AppData `json:"data"`
	Labels         []Label  `json:"labels"`
	CurrentBoardID string   `json:"currentBoardId"`
}

// CurrentBoard returns the board the current pointer references, if any.
func (s *State) CurrentBoard() (*Board, bool) {
	if s.CurrentBoardID == "" {
		return nil, false
	}
	b, ok := s.Data.Boards[s.CurrentBoardID]
	return b, ok
}

const (
	DefaultBoardTitle = "メインボード"

	ColumnTitleTodo       = "未着手"
	ColumnTitleInProgress = "進行中"
	ColumnTitleDone       = "完了"
)

// DefaultColumnTitles are the columns every new board starts with.
var DefaultColumnTitles = []string{ColumnTitleTodo, ColumnTitleInProgress, ColumnTitleDone}

func defaultLabels(newID func() string) []Label {
	return []Label{
		{ID: newID(), Name: "機能", Color: "#61bd4f"},
		{ID: newID(), Name: "バグ", Color: "#f2d600"},
		{ID: newID(), Name: "調査", Color: "#ff9f1a"},
		{ID: newID(), Name: "改善", Color: "#eb5a46"},
	}
}

func newBoard(newID func() string, title string) *Board {
	b := &Board{
		ID:          newID(),
		Title:       title,
		Columns:     make(map[string]*Column, len(DefaultColumnTitles)),
		ColumnOrder: make([]string, 0, len(DefaultColumnTitles)),
	}
	for _, t := range DefaultColumnTitles {
		c := &Column{ID: newID(), Title: t, TaskIDs: []string{}}
		b.Columns[c.ID] = c
		b.ColumnOrder = append(b.ColumnOrder, c.ID)
	}
	return b
}

// NewDefaultData returns the document a first run starts from: a single
// "メインボード" with the three default columns and no tasks.
func NewDefaultData(newID func() string) *AppData {
	b := newBoard(newID, DefaultBoardTitle)
	return &AppData{
		Tasks:      map[string]*Task{},
		Boards:     map[string]*Board{b.ID: b},
		BoardOrder: []string{b.ID},
	}
}

// NewDefaultState combines the default document with the default label registry.
func NewDefaultState(newID func() string) *State {
	data := NewDefaultData(newID)
	return &State{
		Data:           data,
		Labels:         defaultLabels(newID),
		CurrentBoardID: firstBoardID(data),
	}
}

// firstBoardID returns the first entry of BoardOrder that names an existing
// board, or "" when there is none.
func firstBoardID(d *AppData) string {
	for _, id := range d.BoardOrder {
		if _, ok := d.Boards[id]; ok {
			return id
		}
	}
	return ""
}

// normalize fills nil containers and drops nil entries so a decoded document
// can be edited without nil checks. It is only applied to freshly decoded data.
func (d *AppData) normalize() {
	if d.Tasks == nil {
		d.Tasks = map[string]*Task{}
	}
	if d.Boards == nil {
		d.Boards = map[string]*Board{}
	}
	if d.BoardOrder == nil {
		d.BoardOrder = []string{}
	}
	for id, t := range d.Tasks {
		if t == nil {
			delete(d.Tasks, id)
			continue
		}
		if t.Labels == nil {
			t.Labels = []string{}
		}
		t.DueDate = duedate.OrNil(t.DueDate)
	}
	for id, b := range d.Boards {
		if b == nil {
			delete(d.Boards, id)
			continue
		}
		if b.Columns == nil {
			b.Columns = map[string]*Column{}
		}
		if b.ColumnOrder == nil {
			b.ColumnOrder = []string{}
		}
		for cid, c := range b.Columns {
			if c == nil {
				delete(b.Columns, cid)
				continue
			}
			if c.TaskIDs == nil {
				c.TaskIDs = []string{}
			}
		}
	}
}

func normalizeLabels(labels []Label) []Label {
	if labels == nil {
		return []Label{}
	}
	return labels
}
