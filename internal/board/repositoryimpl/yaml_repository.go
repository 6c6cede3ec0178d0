package repositoryimpl

import (
	"gopkg.in/yaml.v3"

	"github.com/kazz187/kanban/pkg/storage"
)

// YAMLRepository keeps the snapshot human editable on disk.
type YAMLRepository struct {
	kvRepository
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{kvRepository{
		storage: s,
		codec: codec{
			ext:       ".yaml",
			marshal:   yaml.Marshal,
			unmarshal: yaml.Unmarshal,
		},
	}}
}
