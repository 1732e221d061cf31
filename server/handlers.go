package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/internal/export"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// threadSummary is one row of the thread listing: persisted metadata plus the
// decoded history size.
type threadSummary struct {
	ThreadID  string    `json:"thread_id"`
	Workflow  string    `json:"workflow"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.engine.Workflows())
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("server.threads.list_failed", "error", err.Error())
		Error(w, http.StatusInternalServerError, "failed to list threads")
		return
	}

	summaries := make([]threadSummary, 0, len(recs))
	for _, rec := range recs {
		count := 0
		if state, err := core.UnmarshalState(rec.State); err == nil {
			count = len(state.Messages())
		} else {
			s.logger.Warn("server.threads.decode_failed", "thread_id", rec.ThreadID, "error", err.Error())
		}

		summaries = append(summaries, threadSummary{
			ThreadID:  rec.ThreadID,
			Workflow:  rec.Workflow,
			Messages:  count,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	JSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrThreadNotFound) {
			Error(w, http.StatusNotFound, "thread not found")
			return
		}
		s.logger.Error("server.threads.get_failed", "thread_id", id, "error", err.Error())
		Error(w, http.StatusInternalServerError, "failed to load thread")
		return
	}

	thread, err := export.FromRecord(*rec)
	if err != nil {
		s.logger.Error("server.threads.decode_failed", "thread_id", id, "error", err.Error())
		Error(w, http.StatusInternalServerError, "failed to decode thread")
		return
	}

	JSON(w, http.StatusOK, thread)
}
