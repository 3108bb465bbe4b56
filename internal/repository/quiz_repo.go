package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/database"
	"learnstack/internal/models"
)

const quizTestColumns = `id, title, password_hash, created_by, is_active, created_at, updated_at`

const questionColumns = `id, test_id, position, question_type, text, options, correct_option,
	short_answers, time_limit, created_by, created_at, updated_at`

const testAttemptColumns = `id, user_id, test_id, status, strikes, score, max_score,
	started_at, completed_at, updated_at`

// QuizRepository stores mentor tests, their questions and learner attempts
type QuizRepository struct {
	db database.DBTX
}

func NewQuizRepository(db database.DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

// CreateTest inserts a test without questions
func (r *QuizRepository) CreateTest(ctx context.Context, t *models.QuizTest) error {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO quiz_tests (title, password_hash, created_by, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Title, t.PasswordHash, t.CreatedBy, t.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetTest returns a test with its questions in order, or nil when absent
func (r *QuizRepository) GetTest(ctx context.Context, id int64) (*models.QuizTest, error) {
	t := &models.QuizTest{}
	err := r.db.GetContext(ctx, t, "SELECT "+quizTestColumns+" FROM quiz_tests WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	err = r.db.SelectContext(ctx, &t.Questions,
		"SELECT "+questionColumns+" FROM quiz_questions WHERE test_id = ? ORDER BY position, id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return t, nil
}

// ListTestsByCreator returns a mentor's tests, newest first, without questions
func (r *QuizRepository) ListTestsByCreator(ctx context.Context, mentorID int64) ([]models.QuizTest, error) {
	var tests []models.QuizTest
	err := r.db.SelectContext(ctx, &tests,
		"SELECT "+quizTestColumns+" FROM quiz_tests WHERE created_by = ? ORDER BY created_at DESC, id DESC", mentorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

// ListActiveTests returns every active test, newest first, without questions
func (r *QuizRepository) ListActiveTests(ctx context.Context) ([]models.QuizTest, error) {
	var tests []models.QuizTest
	err := r.db.SelectContext(ctx, &tests,
		"SELECT "+quizTestColumns+" FROM quiz_tests WHERE is_active = ? ORDER BY created_at DESC, id DESC", true)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tests: %w", err)
	}
	return tests, nil
}

func (r *QuizRepository) SetTestActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE quiz_tests SET is_active = ?, updated_at = ? WHERE id = ?", active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	return nil
}

// DeleteTest removes a test with its questions and attempts. Run inside a
// transaction.
func (r *QuizRepository) DeleteTest(ctx context.Context, id int64) error {
	for _, stmt := range []string{
		"DELETE FROM quiz_attempts WHERE test_id = ?",
		"DELETE FROM quiz_questions WHERE test_id = ?",
		"DELETE FROM quiz_tests WHERE id = ?",
	} {
		if _, err := r.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete test: %w", err)
		}
	}
	return nil
}

// CreateQuestion appends a question to its test
func (r *QuizRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	var next int
	err := r.db.GetContext(ctx, &next,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM quiz_questions WHERE test_id = ?", q.TestID)
	if err != nil {
		return fmt.Errorf("failed to read question position: %w", err)
	}

	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO quiz_questions (test_id, position, question_type, text, options, correct_option,
			short_answers, time_limit, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.TestID, next, q.Type, q.Text, q.Options, q.CorrectOption,
		q.ShortAnswers, q.TimeLimit, q.CreatedBy, now, now)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	q.ID = id
	q.Position = next
	q.CreatedAt = now
	q.UpdatedAt = now
	return nil
}

// GetQuestion returns a question by id, or nil
func (r *QuizRepository) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	q := &models.Question{}
	err := r.db.GetContext(ctx, q, "SELECT "+questionColumns+" FROM quiz_questions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

// UpdateQuestion rewrites a question's content, keeping its test and position
func (r *QuizRepository) UpdateQuestion(ctx context.Context, q *models.Question) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE quiz_questions
		SET question_type = ?, text = ?, options = ?, correct_option = ?, short_answers = ?,
			time_limit = ?, updated_at = ?
		WHERE id = ?
	`, q.Type, q.Text, q.Options, q.CorrectOption, q.ShortAnswers, q.TimeLimit, now, q.ID)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	q.UpdatedAt = now
	return nil
}

// DeleteQuestion removes a question from a test and reports whether it existed
func (r *QuizRepository) DeleteQuestion(ctx context.Context, testID, questionID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM quiz_questions WHERE id = ? AND test_id = ?", questionID, testID)
	if err != nil {
		return false, fmt.Errorf("failed to delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

func (r *QuizRepository) getAttempt(ctx context.Context, where string, args ...interface{}) (*models.TestAttempt, error) {
	a := &models.TestAttempt{}
	err := r.db.GetContext(ctx, a, "SELECT "+testAttemptColumns+" FROM quiz_attempts WHERE "+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test attempt: %w", err)
	}
	return a, nil
}

// GetAttempt returns the user's attempt at a test, or nil when none exists
func (r *QuizRepository) GetAttempt(ctx context.Context, userID, testID int64) (*models.TestAttempt, error) {
	return r.getAttempt(ctx, "user_id = ? AND test_id = ?", userID, testID)
}

// GetAttemptByID returns an attempt by id, or nil
func (r *QuizRepository) GetAttemptByID(ctx context.Context, id int64) (*models.TestAttempt, error) {
	return r.getAttempt(ctx, "id = ?", id)
}

// CreateAttempt inserts an in-progress attempt. The (user, test) pair is
// unique, so a concurrent start for the same pair fails here.
func (r *QuizRepository) CreateAttempt(ctx context.Context, a *models.TestAttempt) error {
	now := time.Now().UTC()
	if a.Status == "" {
		a.Status = models.AttemptInProgress
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = now
	}
	id, err := r.db.ExecReturningID(ctx, `
		INSERT INTO quiz_attempts (user_id, test_id, status, strikes, score, max_score, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.UserID, a.TestID, a.Status, a.Strikes, a.Score, a.MaxScore, a.StartedAt, now)
	if err != nil {
		return fmt.Errorf("failed to create test attempt: %w", err)
	}
	a.ID = id
	a.UpdatedAt = now
	return nil
}

// UpdateAttempt writes a's state if the stored row still has the status and
// strike count it was read with. Otherwise it returns an apperr.Conflict.
func (r *QuizRepository) UpdateAttempt(ctx context.Context, a *models.TestAttempt, prevStatus models.AttemptStatus, prevStrikes int) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE quiz_attempts
		SET status = ?, strikes = ?, score = ?, max_score = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND strikes = ?
	`, a.Status, a.Strikes, a.Score, a.MaxScore, a.StartedAt, a.CompletedAt, now,
		a.ID, prevStatus, prevStrikes)
	if err != nil {
		return fmt.Errorf("failed to update test attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.Conflict, "test attempt was modified concurrently, please retry")
	}
	a.UpdatedAt = now
	return nil
}

// ListAttempts returns every attempt at a test with the learner's username,
// most recently started first
func (r *QuizRepository) ListAttempts(ctx context.Context, testID int64) ([]models.TestAttemptWithUser, error) {
	var attempts []models.TestAttemptWithUser
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT a.id, a.user_id, a.test_id, a.status, a.strikes, a.score, a.max_score,
			a.started_at, a.completed_at, a.updated_at, u.username
		FROM quiz_attempts a
		JOIN users u ON u.id = a.user_id
		WHERE a.test_id = ?
		ORDER BY a.started_at DESC, a.id DESC
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list test attempts: %w", err)
	}
	return attempts, nil
}

// CompletedAttempts returns finished attempts ranked by score, earliest
// finish first on ties
func (r *QuizRepository) CompletedAttempts(ctx context.Context, testID int64) ([]models.TestAttemptWithUser, error) {
	var attempts []models.TestAttemptWithUser
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT a.id, a.user_id, a.test_id, a.status, a.strikes, a.score, a.max_score,
			a.started_at, a.completed_at, a.updated_at, u.username
		FROM quiz_attempts a
		JOIN users u ON u.id = a.user_id
		WHERE a.test_id = ? AND a.status = ?
		ORDER BY a.score DESC, a.completed_at ASC, a.id ASC
	`, testID, models.AttemptCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed attempts: %w", err)
	}
	return attempts, nil
}
