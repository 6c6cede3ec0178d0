package board

import "slices"

// AddBoard appends a new board with the three default columns. The board
// becomes current when no board was current before.
func (s *Store) AddBoard(title string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b := newBoard(s.newID, title)
	next := cur.Data.withBoard(b)
	next.BoardOrder = append(cloneSlice(cur.Data.BoardOrder), b.ID)

	currentID := cur.CurrentBoardID
	if currentID == "" {
		currentID = b.ID
	}
	return s.commitData("addBoard", b.ID, next, currentID)
}

func (s *Store) UpdateBoard(boardID, title string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := cur.Data.Boards[boardID]
	if !ok {
		return s.ignore("updateBoard", boardID)
	}
	nb := *b
	nb.Title = title
	return s.commitData("updateBoard", boardID, cur.Data.withBoard(&nb), cur.CurrentBoardID)
}

// DeleteBoard removes the board and every task that lives in one of its
// columns. If it was current, the first remaining board becomes current.
func (s *Store) DeleteBoard(boardID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := cur.Data.Boards[boardID]
	if !ok {
		return s.ignore("deleteBoard", boardID)
	}

	tasks := cloneMap(cur.Data.Tasks)
	for _, c := range b.Columns {
		for _, taskID := range c.TaskIDs {
			delete(tasks, taskID)
		}
	}
	for id, t := range tasks {
		if _, owned := b.Columns[t.ColumnID]; owned {
			delete(tasks, id)
		}
	}
	boards := cloneMap(cur.Data.Boards)
	delete(boards, boardID)

	next := &AppData{
		Tasks:      tasks,
		Boards:     boards,
		BoardOrder: removeValue(cur.Data.BoardOrder, boardID),
	}
	currentID := cur.CurrentBoardID
	if currentID == boardID {
		currentID = firstBoardID(next)
	}
	return s.commitData("deleteBoard", boardID, next, currentID)
}

// SwitchBoard moves the current pointer. Unknown ids and the already current
// id leave the state untouched.
func (s *Store) SwitchBoard(boardID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	if _, ok := cur.Data.Boards[boardID]; !ok {
		return s.ignore("switchBoard", boardID)
	}
	if cur.CurrentBoardID == boardID {
		return cur
	}
	next := &State{
		Data:           cur.Data,
		Labels:         cur.Labels,
		CurrentBoardID: boardID,
	}
	return s.commit("switchBoard", boardID, next, false, false)
}

func (s *Store) AddColumn(boardID, title string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := cur.Data.Boards[boardID]
	if !ok {
		return s.ignore("addColumn", boardID)
	}
	c := &Column{ID: s.newID(), Title: title, TaskIDs: []string{}}
	nb := b.withColumn(c)
	nb.ColumnOrder = append(cloneSlice(b.ColumnOrder), c.ID)
	return s.commitData("addColumn", c.ID, cur.Data.withBoard(nb), cur.CurrentBoardID)
}

func (s *Store) UpdateColumn(boardID, columnID, title string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := cur.Data.Boards[boardID]
	if !ok {
		return s.ignore("updateColumn", boardID)
	}
	c, ok := b.Columns[columnID]
	if !ok {
		return s.ignore("updateColumn", columnID)
	}
	nc := *c
	nc.Title = title
	return s.commitData("updateColumn", columnID, cur.Data.withBoard(b.withColumn(&nc)), cur.CurrentBoardID)
}

// DeleteColumn removes the column together with every task inside it.
func (s *Store) DeleteColumn(boardID, columnID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := cur.Data.Boards[boardID]
	if !ok {
		return s.ignore("deleteColumn", boardID)
	}
	c, ok := b.Columns[columnID]
	if !ok {
		return s.ignore("deleteColumn", columnID)
	}

	tasks := cloneMap(cur.Data.Tasks)
	for _, taskID := range c.TaskIDs {
		delete(tasks, taskID)
	}
	for id, t := range tasks {
		if t.ColumnID == columnID {
			delete(tasks, id)
		}
	}
	nb := b.clone()
	delete(nb.Columns, columnID)
	nb.ColumnOrder = removeValue(b.ColumnOrder, columnID)

	next := cur.Data.withBoard(nb)
	next.Tasks = tasks
	return s.commitData("deleteColumn", columnID, next, cur.CurrentBoardID)
}

// MoveColumn reorders a board's columns. An out of range source index is
// ignored; the destination index is clamped to the valid range.
func (s *Store) MoveColumn(boardID string, sourceIndex, destinationIndex int) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	b, ok := cur.Data.Boards[boardID]
	if !ok {
		return s.ignore("moveColumn", boardID)
	}
	if sourceIndex < 0 || sourceIndex >= len(b.ColumnOrder) {
		return s.ignore("moveColumn", boardID)
	}
	moved := b.ColumnOrder[sourceIndex]
	order := insertAt(removeAt(b.ColumnOrder, sourceIndex), destinationIndex, moved)
	if slices.Equal(order, b.ColumnOrder) {
		return cur
	}
	nb := *b
	nb.ColumnOrder = order
	return s.commitData("moveColumn", boardID, cur.Data.withBoard(&nb), cur.CurrentBoardID)
}

