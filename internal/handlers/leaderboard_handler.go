package handlers

import (
	"net/http"

	"learnstack/internal/models"
	"learnstack/internal/service"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

func (h *LeaderboardHandler) AllTime(w http.ResponseWriter, r *http.Request) {
	h.board(w, r, models.LeaderboardAllTime)
}

func (h *LeaderboardHandler) DailyPractice(w http.ResponseWriter, r *http.Request) {
	h.board(w, r, models.LeaderboardDailyPractice)
}

func (h *LeaderboardHandler) board(w http.ResponseWriter, r *http.Request, kind models.LeaderboardKind) {
	board, err := h.leaderboardService.Get(r.Context(), kind)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// MyRank reports the caller's position. ?board= selects the board.
func (h *LeaderboardHandler) MyRank(w http.ResponseWriter, r *http.Request) {
	kind, err := service.ParseKind(r.URL.Query().Get("board"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	rank, err := h.leaderboardService.MyRank(r.Context(), user.ID, kind)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rank)
}

// Regenerate rebuilds both boards now
func (h *LeaderboardHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if err := h.leaderboardService.RegenerateAll(r.Context()); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Leaderboards regenerated.")
}
