package handlers

import (
	"net/http"

	"learnstack/internal/progress"
	"learnstack/internal/service"
)

// ProgressHandler serves the learner's dashboard, access checks and updates
type ProgressHandler struct {
	progressService *service.ProgressService
}

func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// Dashboard returns topics with effective statuses, stats, path and rank
func (h *ProgressHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	d, err := h.progressService.Dashboard(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// CheckAccess reports whether the caller may open an algorithm
func (h *ProgressHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	res, err := h.progressService.CheckAccess(r.Context(), user.ID, r.PathValue("topicId"), r.PathValue("algorithmId"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type progressRequest struct {
	Category  string         `json:"category"`
	Algorithm string         `json:"algorithm"`
	Data      progress.Delta `json:"data"`
}

// PostProgress applies a practice or visualization update
func (h *ProgressHandler) PostProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	res, err := h.progressService.PostProgress(r.Context(), user.ID, req.Category, req.Algorithm, req.Data)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
