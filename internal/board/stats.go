package board

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/kazz187/kanban/internal/duedate"
)

// CompletedMarker marks a column as "done" when it appears in its title.
const CompletedMarker = "完了"

const topLabelCount = 5

type LabelUsage struct {
	Label
	Count int `json:"count"`
}

type Statistics struct {
	TotalTasks        int          `json:"totalTasks"`
	CompletedTasks    int          `json:"completedTasks"`
	CompletionRate    int          `json:"completionRate"`
	OverdueTasks      int          `json:"overdueTasks"`
	HighPriorityTasks int          `json:"highPriorityTasks"`
	TopLabels         []LabelUsage `json:"topLabels"`
}

// ComputeStatistics summarizes the current board. It returns nil when no
// board is current.
func ComputeStatistics(st *State, now time.Time) *Statistics {
	b, ok := st.CurrentBoard()
	if !ok {
		return nil
	}
	return BoardStatistics(st, b, now)
}

// BoardStatistics summarizes the tasks of b. Top labels are ranked by usage
// with ties kept in registry order, and include unused labels.
func BoardStatistics(st *State, b *Board, now time.Time) *Statistics {
	completed := map[string]bool{}
	for _, cid := range b.ColumnOrder {
		if c, ok := b.Columns[cid]; ok && strings.Contains(c.Title, CompletedMarker) {
			completed[cid] = true
		}
	}

	tasks := BoardTasks(st.Data, b)
	usage := make(map[string]int, len(st.Labels))
	for _, l := range st.Labels {
		usage[l.ID] = 0
	}

	stats := &Statistics{TotalTasks: len(tasks)}
	for _, t := range tasks {
		if completed[t.ColumnID] {
			stats.CompletedTasks++
		} else {
			if duedate.IsOverdue(t.DueDate, now) {
				stats.OverdueTasks++
			}
			if t.Priority == PriorityHigh {
				stats.HighPriorityTasks++
			}
		}
		for _, id := range t.Labels {
			if _, ok := usage[id]; ok {
				usage[id]++
			}
		}
	}
	if stats.TotalTasks > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100))
	}

	top := make([]LabelUsage, 0, len(st.Labels))
	for _, l := range st.Labels {
		top = append(top, LabelUsage{Label: l, Count: usage[l.ID]})
	}
	slices.SortStableFunc(top, func(a, b LabelUsage) int {
		return b.Count - a.Count
	})
	if len(top) > topLabelCount {
		top = top[:topLabelCount]
	}
	stats.TopLabels = top
	return stats
}
