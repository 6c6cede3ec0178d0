package board

import (
	"errors"
	"fmt"
)

// Validate reports every structural invariant the document violates. A nil
// result means the document is safe to hand to the Store.
func (d *AppData) Validate() error {
	var errs []error

	seenBoards := make(map[string]bool, len(d.BoardOrder))
	for _, id := range d.BoardOrder {
		if seenBoards[id] {
			errs = append(errs, fmt.Errorf("boardOrder: duplicate board %q", id))
			continue
		}
		seenBoards[id] = true
		if _, ok := d.Boards[id]; !ok {
			errs = append(errs, fmt.Errorf("boardOrder: board %q does not exist", id))
		}
	}
	for id, b := range d.Boards {
		if !seenBoards[id] {
			errs = append(errs, fmt.Errorf("board %q: missing from boardOrder", id))
		}
		if b.ID != id {
			errs = append(errs, fmt.Errorf("board %q: id field is %q", id, b.ID))
		}
	}

	columnOwner := map[string]string{}
	taskColumn := map[string]string{}
	for _, boardID := range d.BoardOrder {
		b, ok := d.Boards[boardID]
		if !ok {
			continue
		}
		seenCols := make(map[string]bool, len(b.ColumnOrder))
		for _, cid := range b.ColumnOrder {
			if seenCols[cid] {
				errs = append(errs, fmt.Errorf("board %q: duplicate column %q in columnOrder", boardID, cid))
				continue
			}
			seenCols[cid] = true
			if _, ok := b.Columns[cid]; !ok {
				errs = append(errs, fmt.Errorf("board %q: column %q in columnOrder does not exist", boardID, cid))
			}
		}
		for cid, c := range b.Columns {
			if !seenCols[cid] {
				errs = append(errs, fmt.Errorf("board %q: column %q missing from columnOrder", boardID, cid))
			}
			if owner, dup := columnOwner[cid]; dup {
				errs = append(errs, fmt.Errorf("column %q: shared by boards %q and %q", cid, owner, boardID))
			}
			columnOwner[cid] = boardID

			for _, tid := range c.TaskIDs {
				if prev, dup := taskColumn[tid]; dup {
					errs = append(errs, fmt.Errorf("task %q: listed in columns %q and %q", tid, prev, cid))
					continue
				}
				taskColumn[tid] = cid
				t, ok := d.Tasks[tid]
				if !ok {
					errs = append(errs, fmt.Errorf("column %q: task %q does not exist", cid, tid))
					continue
				}
				if t.ColumnID != cid {
					errs = append(errs, fmt.Errorf("task %q: columnId %q but listed in column %q", tid, t.ColumnID, cid))
				}
			}
		}
	}

	for id, t := range d.Tasks {
		if _, ok := taskColumn[id]; !ok {
			errs = append(errs, fmt.Errorf("task %q: not listed in any column", id))
		}
		if !t.Priority.Valid() {
			errs = append(errs, fmt.Errorf("task %q: invalid priority %q", id, t.Priority))
		}
	}
	return errors.Join(errs...)
}
