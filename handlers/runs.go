package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"places-sweep/storage"
)

// RunHandler serves the sweep log
type RunHandler struct {
	repo storage.SweepRunRepository
}

// NewRunHandler creates a new sweep run handler
func NewRunHandler(repo storage.SweepRunRepository) *RunHandler {
	return &RunHandler{repo: repo}
}

// ListRuns handles GET /api/runs?limit=N (default 20)
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 20, 1, 1000)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	runs, err := h.repo.GetRecentRuns(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load sweep runs", err)
		return
	}
	respondWithJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.repo.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Sweep run not found", err)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load sweep run", err)
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}
