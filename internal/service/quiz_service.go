package service

import (
	"context"
	"strings"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/quiz"
	"learnstack/internal/repository"
	"learnstack/internal/security"
)

const maxTestTitle = 200

// QuizService manages mentor tests and learner attempts at them. Mentors only
// see and edit their own tests; another mentor's test reads as not found.
type QuizService struct {
	log     *logger.Logger
	db      *database.DB
	quizzes *repository.QuizRepository
	now     func() time.Time
}

// NewQuizService creates a new quiz service
func NewQuizService(log *logger.Logger, db *database.DB) *QuizService {
	return &QuizService{
		log:     log.With("service", "QuizService"),
		db:      db,
		quizzes: repository.NewQuizRepository(db),
		now:     time.Now,
	}
}

// ListMine returns the mentor's tests, newest first
func (s *QuizService) ListMine(ctx context.Context, mentorID int64) ([]models.QuizTest, error) {
	tests, err := s.quizzes.ListTestsByCreator(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []models.QuizTest{}
	}
	return tests, nil
}

// CreateTest stores an inactive test guarded by password
func (s *QuizService) CreateTest(ctx context.Context, mentorID int64, title, password string) (*models.QuizTest, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTestTitle {
		return nil, apperr.Validationf("title must be 1 to %d characters", maxTestTitle).WithCode("title")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apperr.New(apperr.Validation, "password is required").WithCode("password")
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	t := &models.QuizTest{Title: title, PasswordHash: hash, CreatedBy: mentorID}
	if err := s.quizzes.CreateTest(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("test created", "test_id", t.ID, "mentor_id", mentorID)
	return t, nil
}

// GetOwnedTest returns one of the mentor's tests with its questions
func (s *QuizService) GetOwnedTest(ctx context.Context, mentorID, testID int64) (*models.QuizTest, error) {
	t, err := s.quizzes.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if t == nil || t.CreatedBy != mentorID {
		return nil, apperr.NotFoundf("test %d not found", testID)
	}
	return t, nil
}

// DeleteTest removes a test with its questions and attempts
func (s *QuizService) DeleteTest(ctx context.Context, mentorID, testID int64) error {
	if _, err := s.GetOwnedTest(ctx, mentorID, testID); err != nil {
		return err
	}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewQuizRepository(tx).DeleteTest(ctx, testID)
	})
	if err != nil {
		return err
	}
	s.log.Info("test deleted", "test_id", testID, "mentor_id", mentorID)
	return nil
}

// ToggleTest flips whether learners can take the test. A test needs at least
// one question to be activated.
func (s *QuizService) ToggleTest(ctx context.Context, mentorID, testID int64) (*models.QuizTest, error) {
	t, err := s.GetOwnedTest(ctx, mentorID, testID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive && len(t.Questions) == 0 {
		return nil, apperr.New(apperr.Validation, "add at least one question before activating the test")
	}
	t.IsActive = !t.IsActive
	if err := s.quizzes.SetTestActive(ctx, testID, t.IsActive); err != nil {
		return nil, err
	}
	s.log.Info("test toggled", "test_id", testID, "active", t.IsActive)
	return t, nil
}

// AddQuestion validates q and appends it to the mentor's test
func (s *QuizService) AddQuestion(ctx context.Context, mentorID, testID int64, q *models.Question) (*models.Question, error) {
	if _, err := s.GetOwnedTest(ctx, mentorID, testID); err != nil {
		return nil, err
	}
	if err := quiz.ValidateQuestion(q); err != nil {
		return nil, err
	}
	q.TestID = testID
	q.CreatedBy = mentorID
	if err := s.quizzes.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestion returns a question on one of the mentor's tests
func (s *QuizService) GetQuestion(ctx context.Context, mentorID, questionID int64) (*models.Question, error) {
	q, err := s.quizzes.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q == nil || q.CreatedBy != mentorID {
		return nil, apperr.NotFoundf("question %d not found", questionID)
	}
	return q, nil
}

// UpdateQuestion replaces the content of a question, keeping its test and
// position
func (s *QuizService) UpdateQuestion(ctx context.Context, mentorID, questionID int64, q *models.Question) (*models.Question, error) {
	existing, err := s.GetQuestion(ctx, mentorID, questionID)
	if err != nil {
		return nil, err
	}
	if err := quiz.ValidateQuestion(q); err != nil {
		return nil, err
	}
	q.ID = existing.ID
	q.TestID = existing.TestID
	q.Position = existing.Position
	q.CreatedBy = existing.CreatedBy
	q.CreatedAt = existing.CreatedAt
	if err := s.quizzes.UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, mentorID, testID, questionID int64) error {
	if _, err := s.GetOwnedTest(ctx, mentorID, testID); err != nil {
		return err
	}
	ok, err := s.quizzes.DeleteQuestion(ctx, testID, questionID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFoundf("question %d not found", questionID)
	}
	return nil
}

// Attempts lists every attempt at the mentor's test
func (s *QuizService) Attempts(ctx context.Context, mentorID, testID int64) ([]models.TestAttemptWithUser, error) {
	if _, err := s.GetOwnedTest(ctx, mentorID, testID); err != nil {
		return nil, err
	}
	attempts, err := s.quizzes.ListAttempts(ctx, testID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []models.TestAttemptWithUser{}
	}
	return attempts, nil
}

// Leaderboard ranks the completed attempts at the mentor's test
func (s *QuizService) Leaderboard(ctx context.Context, mentorID, testID int64) (*models.TestLeaderboard, error) {
	t, err := s.GetOwnedTest(ctx, mentorID, testID)
	if err != nil {
		return nil, err
	}
	done, err := s.quizzes.CompletedAttempts(ctx, testID)
	if err != nil {
		return nil, err
	}
	board := &models.TestLeaderboard{
		TestID:    t.ID,
		TestTitle: t.Title,
		Entries:   make([]models.TestLeaderboardEntry, 0, len(done)),
	}
	for i, a := range done {
		board.Entries = append(board.Entries, models.TestLeaderboardEntry{
			Position:    i + 1,
			UserID:      a.UserID,
			Username:    a.Username,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			CompletedAt: a.CompletedAt,
		})
	}
	return board, nil
}

// UnlockAttempt reopens a learner's locked attempt on the mentor's test
func (s *QuizService) UnlockAttempt(ctx context.Context, mentorID, userID, attemptID int64) (*models.TestAttempt, error) {
	var out *models.TestAttempt
	err := withRetry(ctx, func() error {
		a, err := s.quizzes.GetAttemptByID(ctx, attemptID)
		if err != nil {
			return err
		}
		if a == nil || a.UserID != userID {
			return apperr.NotFoundf("attempt %d not found", attemptID)
		}
		t, err := s.quizzes.GetTest(ctx, a.TestID)
		if err != nil {
			return err
		}
		if t == nil || t.CreatedBy != mentorID {
			return apperr.New(apperr.AccessDenied, "you can only unlock attempts on your own tests")
		}
		prevStatus, prevStrikes := a.Status, a.Strikes
		if err := quiz.Unlock(a, s.now().UTC()); err != nil {
			return err
		}
		if err := s.quizzes.UpdateAttempt(ctx, a, prevStatus, prevStrikes); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("test attempt unlocked", "attempt_id", attemptID, "user_id", userID, "mentor_id", mentorID)
	return out, nil
}

// ActiveTests lists the tests learners can start
func (s *QuizService) ActiveTests(ctx context.Context) ([]models.QuizTest, error) {
	tests, err := s.quizzes.ListActiveTests(ctx)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []models.QuizTest{}
	}
	return tests, nil
}

// Start opens the learner's single attempt at an active test, or resumes it
// while it is in progress. Questions are returned without their answers.
func (s *QuizService) Start(ctx context.Context, userID, testID int64, password string) (*models.QuizSession, error) {
	t, err := s.quizzes.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.IsActive {
		return nil, apperr.NotFoundf("test %d not found", testID)
	}
	if !security.CheckPassword(password, t.PasswordHash) {
		return nil, apperr.New(apperr.AccessDenied, "incorrect test password").WithCode("password")
	}

	a, err := s.quizzes.GetAttempt(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = &models.TestAttempt{UserID: userID, TestID: testID, StartedAt: s.now().UTC()}
		if err := s.quizzes.CreateAttempt(ctx, a); err != nil {
			// a concurrent start may have won the unique pair
			existing, getErr := s.quizzes.GetAttempt(ctx, userID, testID)
			if getErr != nil || existing == nil {
				return nil, err
			}
			a = existing
		} else {
			s.log.Info("test started", "test_id", testID, "user_id", userID)
		}
	}
	switch a.Status {
	case models.AttemptLocked:
		return nil, apperr.New(apperr.AccessDenied, "this test is locked, ask your mentor to unlock it").WithCode("locked")
	case models.AttemptCompleted:
		return nil, apperr.New(apperr.AlreadyTerminal, "you have already completed this test")
	}

	questions := make([]models.PublicQuestion, 0, len(t.Questions))
	for i := range t.Questions {
		questions = append(questions, t.Questions[i].Public())
	}
	return &models.QuizSession{
		Attempt:   a,
		Title:     t.Title,
		Questions: questions,
		Deadline:  quiz.Deadline(a, t),
	}, nil
}

// Strike records a proctoring violation; the third locks the attempt
func (s *QuizService) Strike(ctx context.Context, userID, testID int64) (*models.TestAttempt, error) {
	a, err := s.mutateAttempt(ctx, userID, testID, func(a *models.TestAttempt, _ *models.QuizTest) error {
		return quiz.Strike(a)
	})
	if err != nil {
		return nil, err
	}
	if a.Status == models.AttemptLocked {
		s.log.Warn("test attempt locked", "test_id", testID, "user_id", userID, "strikes", a.Strikes)
	}
	return a, nil
}

// Submit grades the answers and completes the attempt
func (s *QuizService) Submit(ctx context.Context, userID, testID int64, answers []quiz.Answer) (*models.TestAttempt, error) {
	a, err := s.mutateAttempt(ctx, userID, testID, func(a *models.TestAttempt, t *models.QuizTest) error {
		return quiz.Complete(a, t, answers, s.now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("test submitted", "test_id", testID, "user_id", userID, "score", a.Score, "max_score", a.MaxScore)
	return a, nil
}

// MyAttempt returns the learner's attempt at a test
func (s *QuizService) MyAttempt(ctx context.Context, userID, testID int64) (*models.TestAttempt, error) {
	a, err := s.quizzes.GetAttempt(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFoundf("no attempt at test %d", testID)
	}
	return a, nil
}

// mutateAttempt applies fn to the learner's attempt and saves it if nobody
// changed it in between, retrying on conflict
func (s *QuizService) mutateAttempt(ctx context.Context, userID, testID int64, fn func(*models.TestAttempt, *models.QuizTest) error) (*models.TestAttempt, error) {
	var out *models.TestAttempt
	err := withRetry(ctx, func() error {
		t, err := s.quizzes.GetTest(ctx, testID)
		if err != nil {
			return err
		}
		if t == nil {
			return apperr.NotFoundf("test %d not found", testID)
		}
		a, err := s.MyAttempt(ctx, userID, testID)
		if err != nil {
			return err
		}
		prevStatus, prevStrikes := a.Status, a.Strikes
		if err := fn(a, t); err != nil {
			return err
		}
		if err := s.quizzes.UpdateAttempt(ctx, a, prevStatus, prevStrikes); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
