// Package template creates boards and labels from a TOML description.
//
//	[[boards]]
//	title = "開発"
//	columns = ["バックログ", "進行中", "レビュー", "完了"]
//
//	[[labels]]
//	name = "ドキュメント"
//	color = "#0079bf"
package template

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kazz187/kanban/internal/board"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Template struct {
	Boards []Board `toml:"boards"`
	Labels []Label `toml:"labels"`
}

// Board lists column titles in display order. An empty list keeps the
// default columns.
type Board struct {
	Title   string   `toml:"title"`
	Columns []string `toml:"columns"`
}

type Label struct {
	Name  string `toml:"name"`
	Color string `toml:"color"`
}

func Load(path string) (*Template, error) {
	t := &Template{}
	md, err := toml.DecodeFile(path, t)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown template keys", "path", path, "keys", fmt.Sprint(undecoded))
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", path, err)
	}
	return t, nil
}

func Parse(data string) (*Template, error) {
	t := &Template{}
	if _, err := toml.Decode(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) Validate() error {
	var errs []error
	for i, b := range t.Boards {
		if strings.TrimSpace(b.Title) == "" {
			errs = append(errs, fmt.Errorf("boards[%d]: title is required", i))
		}
		for j, c := range b.Columns {
			if strings.TrimSpace(c) == "" {
				errs = append(errs, fmt.Errorf("boards[%d].columns[%d]: title is required", i, j))
			}
		}
	}
	for i, l := range t.Labels {
		if strings.TrimSpace(l.Name) == "" {
			errs = append(errs, fmt.Errorf("labels[%d]: name is required", i))
		}
		if !colorPattern.MatchString(l.Color) {
			errs = append(errs, fmt.Errorf("labels[%d]: color %q is not #rrggbb", i, l.Color))
		}
	}
	return errors.Join(errs...)
}

// Apply creates the template's boards and adds the labels whose names are not
// registered yet. Everything goes through regular store operations, so
// observers see each step.
func Apply(s *board.Store, t *Template) *board.State {
	st := s.State()
	for _, tb := range t.Boards {
		st = s.AddBoard(tb.Title)
		if len(tb.Columns) == 0 {
			continue
		}
		boardID := st.Data.BoardOrder[len(st.Data.BoardOrder)-1]
		defaults := st.Data.Boards[boardID].ColumnOrder
		for i, title := range tb.Columns {
			if i < len(defaults) {
				st = s.UpdateColumn(boardID, defaults[i], title)
				continue
			}
			st = s.AddColumn(boardID, title)
		}
		for _, extra := range defaults[min(len(tb.Columns), len(defaults)):] {
			st = s.DeleteColumn(boardID, extra)
		}
	}
	for _, tl := range t.Labels {
		if slices.ContainsFunc(st.Labels, func(l board.Label) bool { return l.Name == tl.Name }) {
			continue
		}
		st = s.AddLabel(tl.Name, tl.Color)
	}
	return st
}
