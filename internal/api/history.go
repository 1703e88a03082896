package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/kiln/internal/store"
)

// historyEvent is a single journal row in the history response.
type historyEvent struct {
	Seq        int64  `json:"seq"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// historyResponse is the JSON response for GET /v1/executions/{id}/history.
type historyResponse struct {
	ExecutionID string         `json:"execution_id"`
	Events      []historyEvent `json:"events"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, "journal is not enabled")
		return
	}

	id := chi.URLParam(r, "id")

	rows, err := s.journal.Events(r.Context(), id)
	if err != nil {
		s.logger.Error("read journal events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}

	// The journal outlives the in-memory registry, so journaled events are
	// served even for evicted executions. Only an id neither side knows is a 404.
	if len(rows) == 0 {
		if _, err := s.store.Get(r.Context(), id); errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "execution not found")
			return
		} else if err != nil {
			s.logger.Error("get execution for history", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to get execution")
			return
		}
	}

	events := make([]historyEvent, len(rows))
	for i, ev := range rows {
		events[i] = historyEvent{
			Seq:        ev.Seq,
			Status:     ev.Status,
			Error:      ev.Error,
			RecordedAt: ev.RecordedAt.Format(time.RFC3339),
		}
	}

	s.writeJSON(w, http.StatusOK, historyResponse{
		ExecutionID: id,
		Events:      events,
	})
}
