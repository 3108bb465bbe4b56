package handlers

import (
	"net/http"

	"learnstack/internal/models"
	"learnstack/internal/service"
)

// DailyHandler serves daily problems to learners and mentors
type DailyHandler struct {
	dailyService *service.DailyService
}

func NewDailyHandler(dailyService *service.DailyService) *DailyHandler {
	return &DailyHandler{dailyService: dailyService}
}

func (h *DailyHandler) Active(w http.ResponseWriter, r *http.Request) {
	p, err := h.dailyService.ActiveProblem(r.Context(), r.PathValue("subject"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *DailyHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "problemId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	d, err := h.dailyService.Details(r.Context(), user.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *DailyHandler) MyAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "problemId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	a, err := h.dailyService.MyAttempt(r.Context(), user.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type submitRequest struct {
	ProblemID     int64  `json:"problemId"`
	SubmittedCode string `json:"submittedCode"`
}

// Submit runs the caller's code against the hidden test cases
func (h *DailyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	res, err := h.dailyService.Submit(r.Context(), user.ID, req.ProblemID, req.SubmittedCode)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type testCaseRequest struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

type problemRequest struct {
	Subject             string            `json:"subject"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	BoilerplateCode     string            `json:"boilerplateCode"`
	SolutionCode        string            `json:"solutionCode"`
	Language            string            `json:"language"`
	PointsFirstAttempt  *int              `json:"pointsFirstAttempt"`
	PointsSecondAttempt *int              `json:"pointsSecondAttempt"`
	PointsOnFailure     *int              `json:"pointsOnFailure"`
	TestCases           []testCaseRequest `json:"testCases"`
}

// CreateProblem stores a new inactive problem authored by the caller
func (h *DailyHandler) CreateProblem(w http.ResponseWriter, r *http.Request) {
	var req problemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	p := &models.DailyProblem{
		Subject:             req.Subject,
		Title:               req.Title,
		Description:         req.Description,
		BoilerplateCode:     req.BoilerplateCode,
		SolutionCode:        req.SolutionCode,
		Language:            req.Language,
		PointsFirstAttempt:  pointsOr(req.PointsFirstAttempt, models.DefaultPointsFirstAttempt),
		PointsSecondAttempt: pointsOr(req.PointsSecondAttempt, models.DefaultPointsSecondAttempt),
		PointsOnFailure:     pointsOr(req.PointsOnFailure, models.DefaultPointsOnFailure),
	}
	for _, tc := range req.TestCases {
		p.TestCases = append(p.TestCases, models.TestCase{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput})
	}

	mentor := GetUserFromContext(r.Context())
	created, err := h.dailyService.CreateProblem(r.Context(), mentor.ID, p)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *DailyHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.dailyService.Activate(r.Context(), id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Problem activated.")
}

func (h *DailyHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	attempts, err := h.dailyService.ListAttempts(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, attempts)
}

type feedbackRequest struct {
	AttemptID int64  `json:"attemptId"`
	Feedback  string `json:"feedback"`
}

func (h *DailyHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.dailyService.SetFeedback(r.Context(), req.AttemptID, req.Feedback); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Feedback saved.")
}

// pointsOr uses def only when the tier was omitted; an explicit 0 is kept
func pointsOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
