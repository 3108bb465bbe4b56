package handlers

import (
	"net/http"

	"learnstack/internal/service"
)

// DoubtHandler serves learner question threads and the mentor queue
type DoubtHandler struct {
	doubtService *service.DoubtService
}

func NewDoubtHandler(doubtService *service.DoubtService) *DoubtHandler {
	return &DoubtHandler{doubtService: doubtService}
}

func (h *DoubtHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.doubtService.Subjects())
}

type askRequest struct {
	Subject string `json:"subject"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (h *DoubtHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	d, err := h.doubtService.Ask(r.Context(), GetUserFromContext(r.Context()), req.Subject, req.Title, req.Message)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *DoubtHandler) Mine(w http.ResponseWriter, r *http.Request) {
	doubts, err := h.doubtService.Mine(r.Context(), GetUserFromContext(r.Context()).ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, doubts)
}

// Queue lists open threads for mentors
func (h *DoubtHandler) Queue(w http.ResponseWriter, r *http.Request) {
	doubts, err := h.doubtService.OpenQueue(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, doubts)
}

func (h *DoubtHandler) Thread(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	d, err := h.doubtService.Get(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

type replyRequest struct {
	Message string `json:"message"`
}

func (h *DoubtHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	d, err := h.doubtService.Reply(r.Context(), GetUserFromContext(r.Context()), id, req.Message)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *DoubtHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	d, err := h.doubtService.Close(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}
