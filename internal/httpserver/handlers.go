package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcus/todosync/internal/merge"
	"github.com/marcus/todosync/internal/syncwire"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncwire.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.ListAllTodos()
	if err != nil {
		logFor(r.Context()).Error("list all todos", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list todos")
		return
	}

	resp := syncwire.State{SyncedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	for _, t := range todos {
		resp.Todos = append(resp.Todos, *merge.ToWireTodo(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelta(w http.ResponseWriter, r *http.Request) {
	sinceParam := r.URL.Query().Get("since")
	if sinceParam == "" {
		writeError(w, http.StatusBadRequest, syncwire.CodeBadRequest, "missing required query parameter: since")
		return
	}
	since, err := time.Parse(time.RFC3339, sinceParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, syncwire.CodeBadRequest, "invalid since timestamp: "+err.Error())
		return
	}

	todos, err := s.store.ListTodosUpdatedSince(since)
	if err != nil {
		logFor(r.Context()).Error("list todos updated since", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list todos")
		return
	}
	tombstones, err := s.store.ListTombstonesRecordedSince(since)
	if err != nil {
		logFor(r.Context()).Error("list tombstones recorded since", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list tombstones")
		return
	}

	resp := syncwire.DeltaResponse{SyncedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	for _, t := range todos {
		resp.Todos.Upserted = append(resp.Todos.Upserted, *merge.ToWireTodo(t))
	}
	for _, tomb := range tombstones {
		resp.Todos.Deleted = append(resp.Todos.Deleted, syncwire.WireTombstone{
			ServerID:  tomb.ServerID,
			DeletedAt: tomb.DeletedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	var req syncwire.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, syncwire.CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	now := time.Now().UTC()

	var conflicts []syncwire.Conflict
	var mappings []syncwire.Mapping
	err := s.store.WithTx(func(tx *sql.Tx) error {
		var err error
		conflicts, mappings, err = merge.ApplyPush(tx, user.ID, req, now)
		return err
	})
	if err != nil {
		logFor(r.Context()).Error("apply push", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to apply push")
		return
	}

	todos, err := s.store.ListAllTodos()
	if err != nil {
		logFor(r.Context()).Error("list all todos", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list todos")
		return
	}

	resp := syncwire.PushResponse{
		Conflicts: conflicts,
		Mappings:  mappings,
	}
	resp.State.SyncedAt = now.Format(time.RFC3339Nano)
	for _, t := range todos {
		resp.State.Todos = append(resp.State.Todos, *merge.ToWireTodo(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ResetAll()
	if err != nil {
		logFor(r.Context()).Error("reset all", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to reset store")
		return
	}

	resp := syncwire.ResetResponse{Success: true}
	resp.Deleted.Todos = n
	writeJSON(w, http.StatusOK, resp)
}
