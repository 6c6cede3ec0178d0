package board

import (
	"context"
	"log/slog"

	"github.com/kazz187/kanban/pkg/cerr"
)

// Storage keys of the two persisted entries.
const (
	DataKey   = "kanbanData"
	LabelsKey = "kanbanLabels"
)

// Repository is the Persistence Gateway. The document and the label registry
// are stored independently; a missing entry is reported as cerr.NotFound.
type Repository interface {
	LoadData(ctx context.Context) (*AppData, error)
	SaveData(ctx context.Context, d *AppData) error
	LoadLabels(ctx context.Context) ([]Label, error)
	SaveLabels(ctx context.Context, labels []Label) error
}

// Open builds a Store from the last saved snapshot. Missing entries fall back
// to the defaults; any other load failure is returned.
func Open(ctx context.Context, repo Repository, opts ...Option) (*Store, error) {
	data, err := repo.LoadData(ctx)
	switch {
	case cerr.IsCode(err, cerr.NotFound):
		slog.InfoContext(ctx, "no saved document, starting with defaults")
		data = nil
	case err != nil:
		return nil, err
	}

	labels, err := repo.LoadLabels(ctx)
	switch {
	case cerr.IsCode(err, cerr.NotFound):
		labels = nil
	case err != nil:
		return nil, err
	}

	s := NewStore(&State{Data: data}, opts...)
	if labels == nil {
		labels = defaultLabels(s.newID)
	}
	s.state.Labels = normalizeLabels(labels)
	return s, nil
}
