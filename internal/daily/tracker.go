// Package daily implements the two-run daily problem attempt cycle.
package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/models"
)

// Submission is the outcome of one accepted submit
type Submission struct {
	Attempt      models.DailyProblemAttempt
	PointsEarned int
	SolutionCode string
}

// Tracker evaluates submissions against a problem's hidden test cases
type Tracker struct {
	executor Executor
	timeout  time.Duration
}

// NewTracker creates a tracker. timeout bounds each test case run.
func NewTracker(executor Executor, timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Tracker{executor: executor, timeout: timeout}
}

// Submit runs code for the attempt and advances it. Terminal attempts are
// rejected with AlreadyTerminal. When the execution service fails the attempt
// is left untouched and an ExternalService or ExecutionTimeout error is
// returned. Otherwise the run is consumed, the attempt locks on a pass or on
// the last run, and points are awarded once on lock.
func (t *Tracker) Submit(ctx context.Context, problem *models.DailyProblem, attempt *models.DailyProblemAttempt, code string) (*Submission, error) {
	if attempt.Terminal() {
		if attempt.Passed {
			return nil, apperr.New(apperr.AlreadyTerminal, "you have already solved this problem")
		}
		return nil, apperr.New(apperr.AlreadyTerminal, "you have no more attempts for this problem")
	}
	if attempt.RunCount >= models.MaxDailyRuns {
		return nil, apperr.New(apperr.AlreadyTerminal, "run limit reached for this problem")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperr.New(apperr.Validation, "submitted code is required")
	}
	if len(problem.TestCases) == 0 {
		return nil, apperr.New(apperr.Validation, "problem has no test cases")
	}

	passed, results, err := t.evaluate(ctx, problem, code)
	if err != nil {
		return nil, err
	}

	attempt.RunCount++
	attempt.LastSubmittedCode = code
	attempt.LastResults = results
	attempt.Passed = passed

	points := 0
	switch {
	case passed:
		attempt.IsLocked = true
		if attempt.PointsAwarded == 0 {
			if attempt.RunCount == 1 {
				points = problem.PointsFirstAttempt
			} else {
				points = problem.PointsSecondAttempt
			}
		}
	case attempt.RunCount >= models.MaxDailyRuns:
		attempt.IsLocked = true
		if attempt.PointsAwarded == 0 {
			points = problem.PointsOnFailure
		}
	}
	if points > 0 {
		attempt.PointsAwarded = points
	}

	sub := &Submission{Attempt: *attempt, PointsEarned: points}
	if attempt.IsLocked {
		sub.SolutionCode = problem.SolutionCode
	}
	return sub, nil
}

// evaluate runs test cases in order and stops at the first error or failure
func (t *Tracker) evaluate(ctx context.Context, problem *models.DailyProblem, code string) (bool, string, error) {
	fileName := FileName(problem.Language)
	total := len(problem.TestCases)

	var (
		lines  strings.Builder
		passes int
	)
	for i, tc := range problem.TestCases {
		n := i + 1
		res, err := t.run(ctx, problem.Language, tc.Input, fileName, code)
		if err != nil {
			return false, "", err
		}

		if res.Exception != "" || res.Stderr != "" {
			msg := res.Exception
			if msg == "" {
				msg = res.Stderr
			}
			if strings.Contains(msg, "is the same as output file") {
				msg = "Compilation Error: A file naming conflict occurred."
			}
			lines.WriteString(fmt.Sprintf("Test Case %d Error: %s\n", n, msg))
			return false, lines.String(), nil
		}

		got := strings.TrimSpace(res.Stdout)
		want := strings.TrimSpace(tc.ExpectedOutput)
		if got != want {
			lines.WriteString(fmt.Sprintf("Test Case %d: Failed\n  Expected: \"%s\"\n  Got: \"%s\"\n", n, want, got))
			return false, header(passes, total) + lines.String(), nil
		}
		passes++
		lines.WriteString(fmt.Sprintf("Test Case %d: Passed\n", n))
	}
	return true, header(passes, total) + lines.String(), nil
}

func (t *Tracker) run(ctx context.Context, language, stdin, fileName, code string) (ExecutionResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.executor.Run(runCtx, language, stdin, fileName, code)
	if err == nil {
		return res, nil
	}
	if apperr.Is(err, apperr.ExecutionTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return ExecutionResult{}, apperr.Wrap(apperr.ExecutionTimeout, "code execution timed out", err)
	}
	return ExecutionResult{}, apperr.Wrap(apperr.ExternalService, "error connecting to code execution service", err)
}

func header(passed, total int) string {
	return fmt.Sprintf("[%d / %d Test Cases Passed]\n\n", passed, total)
}

// Award credits daily points to both the rank and the daily-practice totals
func Award(p *models.UserProgress, points int) {
	if points <= 0 {
		return
	}
	p.Stats.Rank.Points += points
	p.Stats.DailyProblemPoints += points
}
