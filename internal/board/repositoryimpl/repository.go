package repositoryimpl

import (
	"context"
	"fmt"

	"github.com/kazz187/kanban/internal/board"
	"github.com/kazz187/kanban/pkg/cerr"
	"github.com/kazz187/kanban/pkg/storage"
)

type codec struct {
	ext       string
	marshal   func(v any) ([]byte, error)
	unmarshal func(data []byte, v any) error
}

// kvRepository stores each entry as a single object under its fixed key.
type kvRepository struct {
	storage storage.Storage
	codec   codec
}

func (r *kvRepository) path(key string) string {
	return key + r.codec.ext
}

func (r *kvRepository) load(ctx context.Context, key string, v any) error {
	data, err := r.storage.Read(ctx, r.path(key))
	if err != nil {
		return cerr.WrapStorageReadError(key, err)
	}
	if err := r.codec.unmarshal(data, v); err != nil {
		return cerr.NewError(cerr.DataLoss, "saved data is corrupted", fmt.Errorf("failed to unmarshal %s: %w", key, err))
	}
	return nil
}

func (r *kvRepository) save(ctx context.Context, key string, v any) error {
	data, err := r.codec.marshal(v)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal %s: %w", key, err))
	}
	if err := r.storage.Write(ctx, r.path(key), data); err != nil {
		return cerr.WrapStorageWriteError(key, err)
	}
	return nil
}

func (r *kvRepository) LoadData(ctx context.Context) (*board.AppData, error) {
	var d board.AppData
	if err := r.load(ctx, board.DataKey, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *kvRepository) SaveData(ctx context.Context, d *board.AppData) error {
	return r.save(ctx, board.DataKey, d)
}

func (r *kvRepository) LoadLabels(ctx context.Context) ([]board.Label, error) {
	var labels []board.Label
	if err := r.load(ctx, board.LabelsKey, &labels); err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []board.Label{}
	}
	return labels, nil
}

func (r *kvRepository) SaveLabels(ctx context.Context, labels []board.Label) error {
	return r.save(ctx, board.LabelsKey, labels)
}
