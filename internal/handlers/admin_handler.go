package handlers

import (
	"fmt"
	"net/http"
	"time"

	"learnstack/internal/models"
	"learnstack/internal/service"
)

// maxBackupBytes bounds an uploaded backup
const maxBackupBytes = 32 << 20

// AdminHandler handles admin-specific routes
type AdminHandler struct {
	adminService   *service.AdminService
	catalogService *service.CatalogService
	backupService  *service.BackupService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, catalogService *service.CatalogService, backupService *service.BackupService) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		catalogService: catalogService,
		backupService:  backupService,
	}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

type roleRequest struct {
	Role models.Role `json:"role"`
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	actor := GetUserFromContext(r.Context())
	if err := h.adminService.UpdateRole(r.Context(), actor.ID, id, req.Role); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Role updated.")
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	actor := GetUserFromContext(r.Context())
	if err := h.adminService.DeleteUser(r.Context(), actor.ID, id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "User deleted.")
}

// TopicStatuses returns the stored and effective topic statuses of a user
func (h *AdminHandler) TopicStatuses(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	statuses, err := h.adminService.TopicStatuses(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statuses)
}

func (h *AdminHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.catalogService.AllTopics(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, topics)
}

func (h *AdminHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var topic models.Topic
	if err := decodeJSON(w, r, &topic); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.catalogService.CreateTopic(r.Context(), &topic); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, topic)
}

func (h *AdminHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	var topic models.Topic
	if err := decodeJSON(w, r, &topic); err != nil {
		respondWithError(w, r, err)
		return
	}
	topic.ID = r.PathValue("id")
	if err := h.catalogService.UpdateTopic(r.Context(), &topic); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, topic)
}

func (h *AdminHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteTopic(r.Context(), r.PathValue("id")); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Topic deleted.")
}

// LockTopic locks a topic for every user who has not passed it
func (h *AdminHandler) LockTopic(w http.ResponseWriter, r *http.Request) {
	res, err := h.adminService.LockTopicGlobally(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) UnlockTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.UnlockTopicGlobally(r.Context(), r.PathValue("id")); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Topic unlocked.")
}

func (h *AdminHandler) LockAlgorithm(w http.ResponseWriter, r *http.Request) {
	h.setAlgorithmLock(w, r, true)
}

func (h *AdminHandler) UnlockAlgorithm(w http.ResponseWriter, r *http.Request) {
	h.setAlgorithmLock(w, r, false)
}

func (h *AdminHandler) setAlgorithmLock(w http.ResponseWriter, r *http.Request, locked bool) {
	if err := h.adminService.SetAlgorithmGlobalLock(r.Context(), r.PathValue("id"), r.PathValue("algoId"), locked); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, lockMessage("Algorithm", locked))
}

func (h *AdminHandler) LockUserTopic(w http.ResponseWriter, r *http.Request) {
	h.setUserTopicLock(w, r, true)
}

func (h *AdminHandler) UnlockUserTopic(w http.ResponseWriter, r *http.Request) {
	h.setUserTopicLock(w, r, false)
}

func (h *AdminHandler) setUserTopicLock(w http.ResponseWriter, r *http.Request, locked bool) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	statuses, err := h.adminService.SetUserTopicLock(r.Context(), id, r.PathValue("topicId"), locked)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statuses)
}

func (h *AdminHandler) LockUserAlgorithm(w http.ResponseWriter, r *http.Request) {
	h.setUserAlgorithmLock(w, r, true)
}

func (h *AdminHandler) UnlockUserAlgorithm(w http.ResponseWriter, r *http.Request) {
	h.setUserAlgorithmLock(w, r, false)
}

func (h *AdminHandler) setUserAlgorithmLock(w http.ResponseWriter, r *http.Request, locked bool) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.adminService.SetUserAlgorithmLock(r.Context(), id, r.PathValue("topicId"), r.PathValue("algoId"), locked); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, lockMessage("Algorithm", locked))
}

// Recompute recalculates stats for every user
func (h *AdminHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	res, err := h.adminService.RecomputeAll(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ExportDatabase streams a JSON backup as a download
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().Format("20060102_150405")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=learnstack_backup_%s.json", timestamp))

	if err := h.backupService.Export(r.Context(), w); err != nil {
		// headers may already be sent; the log is what matters here
		requestLogger(r).Error("backup export failed", "error", err)
		return
	}
	requestLogger(r).Info("database exported")
}

// ImportDatabase restores a JSON backup posted as the request body
func (h *AdminHandler) ImportDatabase(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBytes)
	summary, err := h.backupService.Import(r.Context(), r.Body)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func lockMessage(what string, locked bool) string {
	if locked {
		return what + " locked."
	}
	return what + " unlocked."
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
