package handlers

import (
	"net/http"

	"learnstack/internal/models"
	"learnstack/internal/service"
)

// AchievementHandler serves the achievement catalog and its admin management
type AchievementHandler struct {
	achievementService *service.AchievementService
}

func NewAchievementHandler(achievementService *service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService}
}

type achievementRequest struct {
	ID            string                     `json:"id"`
	Name          string                     `json:"name"`
	Description   string                     `json:"description"`
	Icon          string                     `json:"icon"`
	Category      models.AchievementCategory `json:"category"`
	Rarity        models.Rarity              `json:"rarity"`
	Points        int                        `json:"points"`
	CriteriaType  models.CriteriaType        `json:"criteriaType"`
	CriteriaValue int                        `json:"criteriaValue"`
	IsActive      *bool                      `json:"isActive"`
}

// achievement builds the template; omitted isActive means active
func (req *achievementRequest) achievement() *models.Achievement {
	a := &models.Achievement{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		Icon:          req.Icon,
		Category:      req.Category,
		Rarity:        req.Rarity,
		Points:        req.Points,
		CriteriaType:  req.CriteriaType,
		CriteriaValue: req.CriteriaValue,
		IsActive:      true,
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	return a
}

// Available lists the achievements learners can currently earn
func (h *AchievementHandler) Available(w http.ResponseWriter, r *http.Request) {
	list, err := h.achievementService.Active(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.achievementService.List(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *AchievementHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.achievementService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *AchievementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req achievementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	a := req.achievement()
	if err := h.achievementService.Create(r.Context(), a); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *AchievementHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req achievementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	a := req.achievement()
	a.ID = r.PathValue("id")
	if err := h.achievementService.Update(r.Context(), a); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// Delete removes a template and revokes it from every user
func (h *AchievementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.achievementService.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
