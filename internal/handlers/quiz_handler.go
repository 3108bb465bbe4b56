package handlers

import (
	"net/http"

	"learnstack/internal/models"
	"learnstack/internal/quiz"
	"learnstack/internal/service"
)

// QuizHandler serves mentor test authoring and learner test taking
type QuizHandler struct {
	quizService *service.QuizService
}

func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

type createTestRequest struct {
	Title    string `json:"title"`
	Password string `json:"password"`
}

type questionRequest struct {
	QuestionType       models.QuestionType `json:"questionType"`
	Text               string              `json:"text"`
	Options            []string            `json:"options"`
	CorrectAnswerIndex *int                `json:"correctAnswerIndex"`
	ShortAnswers       []string            `json:"shortAnswers"`
	TimeLimit          int                 `json:"timeLimit"`
}

func (req *questionRequest) question() *models.Question {
	q := &models.Question{
		Type:          req.QuestionType,
		Text:          req.Text,
		Options:       models.StringList(req.Options),
		CorrectOption: -1,
		ShortAnswers:  models.StringList(req.ShortAnswers),
		TimeLimit:     req.TimeLimit,
	}
	if req.CorrectAnswerIndex != nil {
		q.CorrectOption = *req.CorrectAnswerIndex
	}
	return q
}

type unlockRequest struct {
	UserID    int64 `json:"userId"`
	AttemptID int64 `json:"attemptId"`
}

type startTestRequest struct {
	Password string `json:"password"`
}

type submitTestRequest struct {
	Answers []quiz.Answer `json:"answers"`
}

func (h *QuizHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	mentor := GetUserFromContext(r.Context())
	tests, err := h.quizService.ListMine(r.Context(), mentor.ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tests)
}

func (h *QuizHandler) CreateTest(w http.ResponseWriter, r *http.Request) {
	var req createTestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	t, err := h.quizService.CreateTest(r.Context(), mentor.ID, req.Title, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// GetTest returns one of the caller's tests with answer keys
func (h *QuizHandler) GetTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	t, err := h.quizService.GetOwnedTest(r.Context(), mentor.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (h *QuizHandler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	if err := h.quizService.DeleteTest(r.Context(), mentor.ID, id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Test deleted.")
}

func (h *QuizHandler) ToggleTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	t, err := h.quizService.ToggleTest(r.Context(), mentor.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (h *QuizHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	q, err := h.quizService.AddQuestion(r.Context(), mentor.ID, id, req.question())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

func (h *QuizHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "questionId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	q, err := h.quizService.GetQuestion(r.Context(), mentor.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *QuizHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "questionId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	q, err := h.quizService.UpdateQuestion(r.Context(), mentor.ID, id, req.question())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *QuizHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	testID, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	questionID, err := pathID(r, "questionId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	if err := h.quizService.DeleteQuestion(r.Context(), mentor.ID, testID, questionID); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Question deleted.")
}

func (h *QuizHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	attempts, err := h.quizService.Attempts(r.Context(), mentor.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, attempts)
}

func (h *QuizHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	board, err := h.quizService.Leaderboard(r.Context(), mentor.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// Unlock reopens a learner's attempt locked by proctoring strikes
func (h *QuizHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	mentor := GetUserFromContext(r.Context())
	a, err := h.quizService.UnlockAttempt(r.Context(), mentor.ID, req.UserID, req.AttemptID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *QuizHandler) ActiveTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.quizService.ActiveTests(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tests)
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var req startTestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	session, err := h.quizService.Start(r.Context(), user.ID, id, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Strike records a proctoring violation reported by the client
func (h *QuizHandler) Strike(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	a, err := h.quizService.Strike(r.Context(), user.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var req submitTestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	a, err := h.quizService.Submit(r.Context(), user.ID, id, req.Answers)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *QuizHandler) MyAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "testId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	user := GetUserFromContext(r.Context())
	a, err := h.quizService.MyAttempt(r.Context(), user.ID, id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
