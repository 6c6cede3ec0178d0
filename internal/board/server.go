package board

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/kanban/pkg/cerr"
	"github.com/kazz187/kanban/pkg/clog"
)

const maxImportSize = 32 << 20

// Server exposes the Store over JSON. Mutations answer with the resulting
// state; a target that does not exist leaves it unchanged and is still 200.
type Server struct {
	store *Store
}

func NewServer(store *Store) *Server {
	return &Server{store: store}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/state", s.getState)
	r.Get("/stats", s.getStats)
	r.Get("/tasks", s.listTasks)
	r.Get("/assignees", s.listAssignees)
	r.Get("/export", s.exportData)
	r.Post("/import", s.importData)

	r.Post("/boards", s.addBoard)
	r.Route("/boards/{boardID}", func(r chi.Router) {
		r.Patch("/", s.updateBoard)
		r.Delete("/", s.deleteBoard)
		r.Post("/switch", s.switchBoard)
		r.Post("/columns", s.addColumn)
		r.Post("/columns/move", s.moveColumn)
		r.Patch("/columns/{columnID}", s.updateColumn)
		r.Delete("/columns/{columnID}", s.deleteColumn)
	})
	r.Post("/columns/{columnID}/tasks", s.addTask)
	r.Patch("/tasks/{taskID}", s.updateTask)
	r.Delete("/tasks/{taskID}", s.deleteTask)
	r.Post("/tasks/{taskID}/move", s.moveTask)

	r.Post("/labels", s.addLabel)
	r.Patch("/labels/{labelID}", s.updateLabel)
	r.Delete("/labels/{labelID}", s.deleteLabel)
}

type titleRequest struct {
	Title string `json:"title"`
}

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type moveColumnRequest struct {
	SourceIndex      int `json:"sourceIndex"`
	DestinationIndex int `json:"destinationIndex"`
}

type moveTaskRequest struct {
	SourceColumnID      string `json:"sourceColumnId"`
	DestinationColumnID string `json:"destinationColumnId"`
	SourceIndex         int    `json:"sourceIndex"`
	DestinationIndex    int    `json:"destinationIndex"`
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

func (s *Server) respond(r *http.Request, st *State) {
	cerr.SetJSONResponse(r.Context(), st)
}

// boardParam resolves ?board=, defaulting to the current board.
func (s *Server) boardParam(r *http.Request, st *State) (*Board, error) {
	id := r.URL.Query().Get("board")
	if id == "" {
		b, ok := st.CurrentBoard()
		if !ok {
			return nil, cerr.NewError(cerr.NotFound, "no current board", nil)
		}
		return b, nil
	}
	b, ok := st.Data.Boards[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "board not found", nil)
	}
	return b, nil
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.store.State())
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	b, err := s.boardParam(r, st)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), BoardStatistics(st, b, s.store.Now()))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	b, err := s.boardParam(r, st)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	q := r.URL.Query()
	tasks := FilterTasks(st.Data, b, TaskFilter{
		Query:    q.Get("q"),
		Priority: q.Get("priority"),
		Assignee: q.Get("assignee"),
		LabelIDs: q["label"],
	})
	if tasks == nil {
		tasks = []*Task{}
	}
	cerr.SetJSONResponse(r.Context(), tasks)
}

func (s *Server) listAssignees(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	b, err := s.boardParam(r, st)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), Assignees(st.Data, b))
}

func (s *Server) exportData(w http.ResponseWriter, r *http.Request) {
	raw, err := s.store.ExportData()
	if err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.Internal, "server error", err)
		return
	}
	cerr.MarkWritten(r.Context())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ExportFileName(s.store.Now())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		clog.AddError(r.Context(), err)
	}
}

func (s *Server) importData(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, ImportErrorMessage, err)
		return
	}
	var opts []ImportOption
	if strict, _ := strconv.ParseBool(r.URL.Query().Get("strict")); strict {
		opts = append(opts, WithStrict())
	}
	st, err := s.store.ImportData(raw, opts...)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, st)
}

func (s *Server) addBoard(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.AddBoard(req.Title))
}

func (s *Server) updateBoard(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.UpdateBoard(chi.URLParam(r, "boardID"), req.Title))
}

func (s *Server) deleteBoard(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.store.DeleteBoard(chi.URLParam(r, "boardID")))
}

func (s *Server) switchBoard(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.store.SwitchBoard(chi.URLParam(r, "boardID")))
}

func (s *Server) addColumn(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.AddColumn(chi.URLParam(r, "boardID"), req.Title))
}

func (s *Server) updateColumn(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.UpdateColumn(chi.URLParam(r, "boardID"), chi.URLParam(r, "columnID"), req.Title))
}

func (s *Server) deleteColumn(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.store.DeleteColumn(chi.URLParam(r, "boardID"), chi.URLParam(r, "columnID")))
}

func (s *Server) moveColumn(w http.ResponseWriter, r *http.Request) {
	var req moveColumnRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.MoveColumn(chi.URLParam(r, "boardID"), req.SourceIndex, req.DestinationIndex))
}

func (s *Server) addTask(w http.ResponseWriter, r *http.Request) {
	var req TaskInput
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if req.Priority != "" && !req.Priority.Valid() {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid priority", nil)
		return
	}
	s.respond(r, s.store.AddTask(chi.URLParam(r, "columnID"), req))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskPatch
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if req.Priority.Set && !req.Priority.Value.Valid() {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid priority", nil)
		return
	}
	s.respond(r, s.store.UpdateTask(chi.URLParam(r, "taskID"), req))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.store.DeleteTask(chi.URLParam(r, "taskID")))
}

func (s *Server) moveTask(w http.ResponseWriter, r *http.Request) {
	var req moveTaskRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.MoveTask(chi.URLParam(r, "taskID"), req.SourceColumnID, req.DestinationColumnID, req.SourceIndex, req.DestinationIndex))
}

func (s *Server) addLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.AddLabel(req.Name, req.Color))
}

func (s *Server) updateLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.store.UpdateLabel(chi.URLParam(r, "labelID"), req.Name, req.Color))
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.store.DeleteLabel(chi.URLParam(r, "labelID")))
}
