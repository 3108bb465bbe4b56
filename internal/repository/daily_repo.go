package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnstack/internal/database"
	"learnstack/internal/models"
)

const problemColumns = `id, subject, title, description, boilerplate_code, solution_code, language,
	points_first_attempt, points_second_attempt, points_on_failure, created_by, is_active,
	created_at, updated_at`

const attemptColumns = `id, user_id, problem_id, run_count, is_locked, passed, points_awarded,
	last_submitted_code, last_results, mentor_feedback, created_at, updated_at`

// DailyRepository stores daily problems, their test cases and user attempts
type DailyRepository struct {
	db database.DBTX
}

func NewDailyRepository(db database.DBTX) *DailyRepository {
	return &DailyRepository{db: db}
}

// CreateProblem inserts a problem with its test cases. Run inside a transaction.
func (r *DailyRepository) CreateProblem(ctx context.Context, p *models.DailyProblem) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO daily_problems (subject, title, description, boilerplate_code, solution_code,
			language, points_first_attempt, points_second_attempt, points_on_failure,
			created_by, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		p.Subject, p.Title, p.Description, p.BoilerplateCode, p.SolutionCode,
		p.Language, p.PointsFirstAttempt, p.PointsSecondAttempt, p.PointsOnFailure,
		p.CreatedBy, p.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create daily problem: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now

	tcQuery := `
		INSERT INTO daily_problem_test_cases (problem_id, position, input, expected_output)
		VALUES (?, ?, ?, ?)
	`
	for i := range p.TestCases {
		tc := &p.TestCases[i]
		tc.ProblemID = id
		tc.Position = i
		tcID, err := r.db.ExecReturningID(ctx, tcQuery, id, i, tc.Input, tc.ExpectedOutput)
		if err != nil {
			return fmt.Errorf("failed to insert test case %d: %w", i+1, err)
		}
		tc.ID = tcID
	}
	return nil
}

func (r *DailyRepository) getProblem(ctx context.Context, where string, args ...interface{}) (*models.DailyProblem, error) {
	p := &models.DailyProblem{}
	err := r.db.GetContext(ctx, p, "SELECT "+problemColumns+" FROM daily_problems WHERE "+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily problem: %w", err)
	}

	err = r.db.SelectContext(ctx, &p.TestCases, `
		SELECT id, problem_id, position, input, expected_output
		FROM daily_problem_test_cases
		WHERE problem_id = ?
		ORDER BY position
	`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}
	return p, nil
}

// GetProblem returns a problem with its test cases, or nil when absent
func (r *DailyRepository) GetProblem(ctx context.Context, id int64) (*models.DailyProblem, error) {
	return r.getProblem(ctx, "id = ?", id)
}

// GetActiveProblem returns the newest active problem for a subject, or nil
func (r *DailyRepository) GetActiveProblem(ctx context.Context, subject string) (*models.DailyProblem, error) {
	return r.getProblem(ctx, "subject = ? AND is_active = ? ORDER BY created_at DESC, id DESC LIMIT 1", subject, true)
}

// ActivateProblem makes a problem the only active one for its subject
func (r *DailyRepository) ActivateProblem(ctx context.Context, id int64, subject string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE daily_problems SET is_active = ?, updated_at = ? WHERE subject = ? AND id <> ?
	`, false, now, subject, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate problems: %w", err)
	}
	_, err = r.db.ExecContext(ctx, "UPDATE daily_problems SET is_active = ?, updated_at = ? WHERE id = ?", true, now, id)
	if err != nil {
		return fmt.Errorf("failed to activate problem: %w", err)
	}
	return nil
}

// GetAttempt returns the user's attempt for a problem, or nil when none exists
func (r *DailyRepository) GetAttempt(ctx context.Context, userID, problemID int64) (*models.DailyProblemAttempt, error) {
	a := &models.DailyProblemAttempt{}
	err := r.db.GetContext(ctx, a,
		"SELECT "+attemptColumns+" FROM daily_problem_attempts WHERE user_id = ? AND problem_id = ?",
		userID, problemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return a, nil
}

// SaveAttempt inserts a new attempt (ID 0) or updates an existing one
func (r *DailyRepository) SaveAttempt(ctx context.Context, a *models.DailyProblemAttempt) error {
	now := time.Now().UTC()
	if a.ID == 0 {
		query := `
			INSERT INTO daily_problem_attempts (user_id, problem_id, run_count, is_locked, passed,
				points_awarded, last_submitted_code, last_results, mentor_feedback, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := r.db.ExecReturningID(ctx, query,
			a.UserID, a.ProblemID, a.RunCount, a.IsLocked, a.Passed,
			a.PointsAwarded, a.LastSubmittedCode, a.LastResults, a.MentorFeedback, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		a.ID = id
		a.CreatedAt = now
		a.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE daily_problem_attempts
		SET run_count = ?, is_locked = ?, passed = ?, points_awarded = ?,
			last_submitted_code = ?, last_results = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		a.RunCount, a.IsLocked, a.Passed, a.PointsAwarded,
		a.LastSubmittedCode, a.LastResults, now, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	a.UpdatedAt = now
	return nil
}

// ListAttempts returns every attempt on a problem with the submitter's username
func (r *DailyRepository) ListAttempts(ctx context.Context, problemID int64) ([]models.AttemptWithUser, error) {
	var attempts []models.AttemptWithUser
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT a.id, a.user_id, a.problem_id, a.run_count, a.is_locked, a.passed, a.points_awarded,
			a.last_submitted_code, a.last_results, a.mentor_feedback, a.created_at, a.updated_at,
			u.username
		FROM daily_problem_attempts a
		JOIN users u ON u.id = a.user_id
		WHERE a.problem_id = ?
		ORDER BY a.updated_at DESC, a.id DESC
	`, problemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// GetAttemptByID returns an attempt by its id, or nil
func (r *DailyRepository) GetAttemptByID(ctx context.Context, id int64) (*models.DailyProblemAttempt, error) {
	a := &models.DailyProblemAttempt{}
	err := r.db.GetContext(ctx, a, "SELECT "+attemptColumns+" FROM daily_problem_attempts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return a, nil
}

// SetFeedback stores mentor feedback on an attempt
func (r *DailyRepository) SetFeedback(ctx context.Context, attemptID int64, feedback string) error {
	query := "UPDATE daily_problem_attempts SET mentor_feedback = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, feedback, time.Now().UTC(), attemptID); err != nil {
		return fmt.Errorf("failed to set feedback: %w", err)
	}
	return nil
}
