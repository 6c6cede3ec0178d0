package board

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/kazz187/kanban/internal/duedate"
)

// TaskInput holds the caller supplied fields of a new task.
type TaskInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueDate     *duedate.Date `json:"dueDate"`
	Priority    Priority      `json:"priority"`
	Labels      []string      `json:"labels"`
	Assignee    *string       `json:"assignee"`
}

// Field is an optional patch value. Set distinguishes "leave alone" from
// "set to the zero value", which matters for nullable fields.
type Field[T any] struct {
	Set   bool
	Value T
}

func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(b, []byte("null")) {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// TaskPatch is a partial update. Id and column membership cannot be patched;
// use MoveTask to change columns.
type TaskPatch struct {
	Title       Field[string]        `json:"title"`
	Description Field[string]        `json:"description"`
	DueDate     Field[*duedate.Date] `json:"dueDate"`
	Priority    Field[Priority]      `json:"priority"`
	Labels      Field[[]string]      `json:"labels"`
	Assignee    Field[*string]       `json:"assignee"`
}

func (p TaskPatch) apply(t *Task) {
	if p.Title.Set {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.DueDate.Set {
		t.DueDate = duedate.OrNil(p.DueDate.Value)
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	if p.Labels.Set {
		t.Labels = cloneSlice(p.Labels.Value)
	}
	if p.Assignee.Set {
		t.Assignee = p.Assignee.Value
	}
}

// AddTask appends a new task to the end of columnID. The owning board is the
// first one in BoardOrder that contains the column.
func (s *Store) AddTask(columnID string, in TaskInput) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := ownerOf(cur.Data, columnID)
	if !ok {
		return s.ignore("addTask", columnID)
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	t := &Task{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     duedate.OrNil(in.DueDate),
		Priority:    priority,
		Labels:      cloneSlice(in.Labels),
		Assignee:    in.Assignee,
		ColumnID:    columnID,
		CreatedAt:   s.now().UnixMilli(),
	}

	c := *b.Columns[columnID]
	c.TaskIDs = append(cloneSlice(c.TaskIDs), t.ID)

	next := cur.Data.withBoard(b.withColumn(&c))
	next.Tasks = cloneMap(cur.Data.Tasks)
	next.Tasks[t.ID] = t
	return s.commitData("addTask", t.ID, next, cur.CurrentBoardID)
}

func (s *Store) UpdateTask(taskID string, patch TaskPatch) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	t, ok := cur.Data.Tasks[taskID]
	if !ok {
		return s.ignore("updateTask", taskID)
	}
	nt := *t
	patch.apply(&nt)

	next := *cur.Data
	next.Tasks = cloneMap(cur.Data.Tasks)
	next.Tasks[taskID] = &nt
	return s.commitData("updateTask", taskID, &next, cur.CurrentBoardID)
}

// DeleteTask removes the task and its id from the owning column.
func (s *Store) DeleteTask(taskID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	t, ok := cur.Data.Tasks[taskID]
	if !ok {
		return s.ignore("deleteTask", taskID)
	}

	next := cur.Data
	if b, ok := ownerOf(cur.Data, t.ColumnID); ok {
		c := *b.Columns[t.ColumnID]
		c.TaskIDs = removeValue(c.TaskIDs, taskID)
		next = cur.Data.withBoard(b.withColumn(&c))
	} else {
		copied := *cur.Data
		next = &copied
	}
	next.Tasks = cloneMap(cur.Data.Tasks)
	delete(next.Tasks, taskID)
	return s.commitData("deleteTask", taskID, next, cur.CurrentBoardID)
}

// MoveTask takes taskID out of the source column and inserts it at
// destinationIndex of the destination column. Both columns must belong to the
// same board. sourceIndex is only a hint: the task is removed by id, so a
// stale index can never splice out a different task. Indices are clamped.
func (s *Store) MoveTask(taskID, sourceColumnID, destinationColumnID string, sourceIndex, destinationIndex int) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := ownerOf(cur.Data, sourceColumnID, destinationColumnID)
	if !ok {
		return s.ignore("moveTask", taskID)
	}
	src := b.Columns[sourceColumnID]
	pos := sourceIndex
	if pos < 0 || pos >= len(src.TaskIDs) || src.TaskIDs[pos] != taskID {
		pos = slices.Index(src.TaskIDs, taskID)
	}
	if pos < 0 {
		return s.ignore("moveTask", taskID)
	}
	srcIDs := removeAt(src.TaskIDs, pos)

	nb := b.clone()
	if sourceColumnID == destinationColumnID {
		ids := insertAt(srcIDs, destinationIndex, taskID)
		if slices.Equal(ids, src.TaskIDs) {
			return cur
		}
		nc := *src
		nc.TaskIDs = ids
		nb.Columns[sourceColumnID] = &nc
		return s.commitData("moveTask", taskID, cur.Data.withBoard(nb), cur.CurrentBoardID)
	}

	dst := b.Columns[destinationColumnID]
	ns := *src
	ns.TaskIDs = srcIDs
	nd := *dst
	nd.TaskIDs = insertAt(removeValue(dst.TaskIDs, taskID), destinationIndex, taskID)
	nb.Columns[sourceColumnID] = &ns
	nb.Columns[destinationColumnID] = &nd

	next := cur.Data.withBoard(nb)
	if t, ok := cur.Data.Tasks[taskID]; ok {
		nt := *t
		nt.ColumnID = destinationColumnID
		next.Tasks = cloneMap(cur.Data.Tasks)
		next.Tasks[taskID] = &nt
	}
	return s.commitData("moveTask", taskID, next, cur.CurrentBoardID)
}
