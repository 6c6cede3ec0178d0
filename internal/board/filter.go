package board

import (
	"slices"
	"strings"
)

// FilterAll is the selection value that imposes no constraint.
const FilterAll = "all"

// TaskFilter holds the task search predicates. They are ANDed together; an
// empty value (or FilterAll) matches everything.
type TaskFilter struct {
	Query    string
	Priority string
	Assignee string
	LabelIDs []string
}

func (f TaskFilter) Match(t *Task) bool {
	if strings.TrimSpace(f.Query) != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if f.Priority != "" && f.Priority != FilterAll && string(t.Priority) != f.Priority {
		return false
	}
	if len(f.LabelIDs) > 0 && !slices.ContainsFunc(f.LabelIDs, t.HasLabel) {
		return false
	}
	if f.Assignee != "" && f.Assignee != FilterAll {
		if t.Assignee == nil || *t.Assignee != f.Assignee {
			return false
		}
	}
	return true
}

// FilterTasks returns the tasks of b that match f, in board order.
func FilterTasks(d *AppData, b *Board, f TaskFilter) []*Task {
	var out []*Task
	for _, t := range BoardTasks(d, b) {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// BoardTasks lists the tasks of b column by column, in display order.
// Dangling task ids are skipped and a nil board has no tasks.
func BoardTasks(d *AppData, b *Board) []*Task {
	if b == nil {
		return nil
	}
	var out []*Task
	for _, cid := range b.ColumnOrder {
		c, ok := b.Columns[cid]
		if !ok {
			continue
		}
		out = append(out, ColumnTasks(d, c)...)
	}
	return out
}

func ColumnTasks(d *AppData, c *Column) []*Task {
	if c == nil {
		return []*Task{}
	}
	out := make([]*Task, 0, len(c.TaskIDs))
	for _, id := range c.TaskIDs {
		if t, ok := d.Tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Assignees returns the distinct non-empty assignees of b, sorted.
func Assignees(d *AppData, b *Board) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range BoardTasks(d, b) {
		if t.Assignee == nil || *t.Assignee == "" || seen[*t.Assignee] {
			continue
		}
		seen[*t.Assignee] = true
		out = append(out, *t.Assignee)
	}
	slices.Sort(out)
	return out
}

// ResolveLabels maps label ids to registry entries, dropping ids whose label
// has been deleted.
func ResolveLabels(labels []Label, ids []string) []Label {
	out := make([]Label, 0, len(ids))
	for _, id := range ids {
		i := slices.IndexFunc(labels, func(l Label) bool { return l.ID == id })
		if i >= 0 {
			out = append(out, labels[i])
		}
	}
	return out
}
