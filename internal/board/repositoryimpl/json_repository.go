package repositoryimpl

import (
	"encoding/json"

	"github.com/kazz187/kanban/pkg/storage"
)

// JSONRepository persists the snapshot in the export wire format.
type JSONRepository struct {
	kvRepository
}

func NewJSONRepository(s storage.Storage) *JSONRepository {
	return &JSONRepository{kvRepository{
		storage: s,
		codec: codec{
			ext:       ".json",
			marshal:   json.Marshal,
			unmarshal: json.Unmarshal,
		},
	}}
}
