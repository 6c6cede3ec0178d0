package board

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kazz187/kanban/pkg/cerr"
)

// ImportErrorMessage is shown to the user when an import is rejected.
const ImportErrorMessage = "インポートに失敗しました。データ形式が無効です。"

// ExportPayload is the export file layout.
type ExportPayload struct {
	Data   *AppData `json:"data"`
	Labels []Label  `json:"labels"`
}

// ExportFileName returns kanban_export_<YYYY-MM-DD>.json for the UTC date of now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("kanban_export_%s.json", now.UTC().Format(time.DateOnly))
}

// Export serializes the document and label registry of st as indented JSON.
func Export(st *State) ([]byte, error) {
	return json.MarshalIndent(ExportPayload{Data: st.Data, Labels: st.Labels}, "", "  ")
}

func (s *Store) ExportData() ([]byte, error) {
	return Export(s.State())
}

type importConfig struct {
	strict bool
}

type ImportOption interface {
	apply(*importConfig)
}

type importOptionFunc func(*importConfig)

func (o importOptionFunc) apply(c *importConfig) {
	o(c)
}

// WithStrict makes the import also reject payloads that fail the export
// schema or the document invariants.
func WithStrict() ImportOption {
	return importOptionFunc(func(c *importConfig) {
		c.strict = true
	})
}

// DecodeExport parses an export payload. Both "data" and "labels" must be
// present and non-null.
func DecodeExport(raw []byte) (*ExportPayload, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	for _, key := range []string{"data", "labels"} {
		v, ok := top[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("missing %q", key)
		}
	}
	p := &ExportPayload{}
	if err := json.Unmarshal(top["data"], &p.Data); err != nil {
		return nil, fmt.Errorf("failed to parse data: %w", err)
	}
	if err := json.Unmarshal(top["labels"], &p.Labels); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	p.Data.normalize()
	p.Labels = normalizeLabels(p.Labels)
	return p, nil
}

// ImportData replaces the document and the label registry with the payload in
// one step. The current board becomes the first imported board. On failure
// the state is left untouched and a *cerr.Error carrying ImportErrorMessage is
// returned; the cause is only logged.
func (s *Store) ImportData(raw []byte, opts ...ImportOption) (*State, error) {
	cfg := &importConfig{}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	p, err := DecodeExport(raw)
	if err == nil && cfg.strict {
		err = errors.Join(ValidateExport(raw), p.Data.Validate())
	}
	if err != nil {
		slog.Warn("import rejected", "error", err)
		return s.State(), cerr.NewError(cerr.InvalidArgument, ImportErrorMessage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := &State{
		Data:           p.Data,
		Labels:         p.Labels,
		CurrentBoardID: firstBoardID(p.Data),
	}
	return s.commit("importData", "", next, true, true), nil
}
