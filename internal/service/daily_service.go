package service

import (
	"context"
	"strings"

	"learnstack/internal/apperr"
	"learnstack/internal/daily"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/repository"
)

var errAttemptChanged = apperr.New(apperr.Conflict, "attempt changed by a concurrent submission")

// supportedLanguages are the languages the execution service accepts
var supportedLanguages = map[string]bool{
	"c": true, "cpp": true, "python": true, "java": true, "javascript": true,
}

// SubmitResult is the outcome returned to the learner after a run
type SubmitResult struct {
	Passed        bool   `json:"passed"`
	IsLocked      bool   `json:"isLocked"`
	RunCount      int    `json:"runCount"`
	PointsAwarded int    `json:"pointsAwarded"`
	PointsEarned  int    `json:"pointsEarned"`
	LastResults   string `json:"lastResults"`
	SolutionCode  string `json:"solutionCode,omitempty"`
}

// ProblemDetails is a problem as a learner sees it with their attempt
type ProblemDetails struct {
	Problem *models.DailyProblem        `json:"problem"`
	Attempt *models.DailyProblemAttempt `json:"attempt"`
}

// DailyService runs the daily problem cycle for learners and mentors
type DailyService struct {
	log      *logger.Logger
	db       *database.DB
	problems *repository.DailyRepository
	tracker  *daily.Tracker
	progress *ProgressService
}

// NewDailyService creates a new daily problem service
func NewDailyService(log *logger.Logger, db *database.DB, tracker *daily.Tracker, progress *ProgressService) *DailyService {
	return &DailyService{
		log:      log.With("service", "DailyService"),
		db:       db,
		problems: repository.NewDailyRepository(db),
		tracker:  tracker,
		progress: progress,
	}
}

// ActiveProblem returns the active problem for a subject without its
// solution or test cases
func (s *DailyService) ActiveProblem(ctx context.Context, subject string) (*models.DailyProblem, error) {
	p, err := s.problems.GetActiveProblem(ctx, subject)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFoundf("no active problem for %q", subject)
	}
	return learnerView(p, false), nil
}

// Details returns a problem with the caller's attempt. The solution is shown
// once the attempt is terminal.
func (s *DailyService) Details(ctx context.Context, userID, problemID int64) (*ProblemDetails, error) {
	p, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.MyAttempt(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	return &ProblemDetails{Problem: learnerView(p, attempt.Terminal()), Attempt: attempt}, nil
}

// MyAttempt returns the caller's attempt, or a fresh one with no runs
func (s *DailyService) MyAttempt(ctx context.Context, userID, problemID int64) (*models.DailyProblemAttempt, error) {
	a, err := s.problems.GetAttempt(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = &models.DailyProblemAttempt{UserID: userID, ProblemID: problemID}
	}
	return a, nil
}

// Submit runs code against the problem's test cases. The attempt and the
// points credit are written in one transaction.
func (s *DailyService) Submit(ctx context.Context, userID, problemID int64, code string) (*SubmitResult, error) {
	p, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.New(apperr.Validation, "this problem is no longer active")
	}
	attempt, err := s.MyAttempt(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	startRuns := attempt.RunCount

	sub, err := s.tracker.Submit(ctx, p, attempt, code)
	if err != nil {
		if k := apperr.KindOf(err); k == apperr.ExternalService || k == apperr.ExecutionTimeout {
			s.log.Warn("code execution failed", "user_id", userID, "problem_id", problemID, "error", err)
		}
		return nil, err
	}

	cat, err := s.progress.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	templates := s.progress.templates(ctx)

	err = withRetry(ctx, func() error {
		return s.db.WithTx(ctx, func(tx *database.Tx) error {
			problems := repository.NewDailyRepository(tx)
			current, err := problems.GetAttempt(ctx, userID, problemID)
			if err != nil {
				return err
			}
			currentRuns := 0
			if current != nil {
				currentRuns = current.RunCount
			}
			if currentRuns != startRuns {
				return errAttemptChanged
			}

			saved := sub.Attempt
			if err := problems.SaveAttempt(ctx, &saved); err != nil {
				return err
			}
			if sub.PointsEarned == 0 {
				sub.Attempt = saved
				return nil
			}

			repo := repository.NewProgressRepository(tx)
			agg, err := s.progress.load(ctx, repo, userID, cat)
			if err != nil {
				return err
			}
			daily.Award(agg, sub.PointsEarned)
			s.progress.settle(agg, templates)
			if err := repo.Save(ctx, agg); err != nil {
				return err
			}
			sub.Attempt = saved
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	a := sub.Attempt
	s.log.Info("daily submission", "user_id", userID, "problem_id", problemID,
		"run", a.RunCount, "passed", a.Passed, "points", sub.PointsEarned)
	return &SubmitResult{
		Passed:        a.Passed,
		IsLocked:      a.IsLocked,
		RunCount:      a.RunCount,
		PointsAwarded: a.PointsAwarded,
		PointsEarned:  sub.PointsEarned,
		LastResults:   a.LastResults,
		SolutionCode:  sub.SolutionCode,
	}, nil
}

// CreateProblem stores a mentor-authored problem. It starts inactive. Point
// tiers are stored as given; 0 is a valid tier.
func (s *DailyService) CreateProblem(ctx context.Context, mentorID int64, p *models.DailyProblem) (*models.DailyProblem, error) {
	p.Subject = strings.TrimSpace(p.Subject)
	p.Title = strings.TrimSpace(p.Title)
	p.Language = strings.ToLower(strings.TrimSpace(p.Language))
	switch {
	case p.Subject == "":
		return nil, apperr.Validationf("subject is required").WithCode("subject")
	case p.Title == "":
		return nil, apperr.Validationf("title is required").WithCode("title")
	case !supportedLanguages[p.Language]:
		return nil, apperr.Validationf("unsupported language %q", p.Language).WithCode("language")
	case len(p.TestCases) == 0:
		return nil, apperr.Validationf("at least one test case is required").WithCode("testCases")
	case p.PointsFirstAttempt < 0 || p.PointsSecondAttempt < 0 || p.PointsOnFailure < 0:
		return nil, apperr.Validationf("points must not be negative").WithCode("points")
	}
	p.CreatedBy = mentorID
	p.IsActive = false

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewDailyRepository(tx).CreateProblem(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("daily problem created", "problem_id", p.ID, "subject", p.Subject, "mentor_id", mentorID)
	return p, nil
}

// Activate makes the problem the only active one for its subject
func (s *DailyService) Activate(ctx context.Context, problemID int64) error {
	p, err := s.getProblem(ctx, problemID)
	if err != nil {
		return err
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewDailyRepository(tx).ActivateProblem(ctx, p.ID, p.Subject)
	})
	if err != nil {
		return err
	}
	s.log.Info("daily problem activated", "problem_id", p.ID, "subject", p.Subject)
	return nil
}

func (s *DailyService) ListAttempts(ctx context.Context, problemID int64) ([]models.AttemptWithUser, error) {
	if _, err := s.getProblem(ctx, problemID); err != nil {
		return nil, err
	}
	attempts, err := s.problems.ListAttempts(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []models.AttemptWithUser{}
	}
	return attempts, nil
}

// SetFeedback stores mentor feedback on an attempt
func (s *DailyService) SetFeedback(ctx context.Context, attemptID int64, feedback string) error {
	a, err := s.problems.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if a == nil {
		return apperr.NotFoundf("attempt %d not found", attemptID)
	}
	return s.problems.SetFeedback(ctx, attemptID, strings.TrimSpace(feedback))
}

func (s *DailyService) getProblem(ctx context.Context, id int64) (*models.DailyProblem, error) {
	p, err := s.problems.GetProblem(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFoundf("problem %d not found", id)
	}
	return p, nil
}

// learnerView copies p without test cases, keeping the solution only when
// revealed
func learnerView(p *models.DailyProblem, reveal bool) *models.DailyProblem {
	out := *p
	out.TestCases = nil
	if !reveal {
		out.SolutionCode = ""
	}
	return &out
}
