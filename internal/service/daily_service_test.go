package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/apperr"
	"learnstack/internal/models"
)

func createProblem(t *testing.T, f *fixture, mentorID int64) *models.DailyProblem {
	t.Helper()
	p, err := f.daily.CreateProblem(context.Background(), mentorID, &models.DailyProblem{
		Subject:             "Arrays",
		Title:               "Sum two numbers",
		Language:            "Python",
		SolutionCode:        "print(sum(map(int, input().split())))",
		PointsFirstAttempt:  models.DefaultPointsFirstAttempt,
		PointsSecondAttempt: models.DefaultPointsSecondAttempt,
		PointsOnFailure:     models.DefaultPointsOnFailure,
		TestCases: []models.TestCase{
			{Input: "1 2", ExpectedOutput: "3"},
			{Input: "5 5", ExpectedOutput: "10"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.daily.Activate(context.Background(), p.ID))
	return p
}

func TestCreateProblemDefaults(t *testing.T) {
	f := newFixture(t)
	mentor := f.newUser(t, "mentor", models.RoleMentor)

	p := createProblem(t, f, mentor.ID)
	assert.Equal(t, "python", p.Language)
	assert.Equal(t, models.DefaultPointsFirstAttempt, p.PointsFirstAttempt)

	zero, err := f.daily.CreateProblem(context.Background(), mentor.ID, &models.DailyProblem{
		Subject: "Arrays", Title: "No consolation", Language: "python",
		PointsFirstAttempt: 20, PointsSecondAttempt: 15, PointsOnFailure: 0,
		TestCases: []models.TestCase{{Input: "1", ExpectedOutput: "1"}},
	})
	require.NoError(t, err)
	stored, err := f.daily.getProblem(context.Background(), zero.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.PointsOnFailure, "a zero tier is kept")

	_, err = f.daily.CreateProblem(context.Background(), mentor.ID, &models.DailyProblem{
		Subject: "Arrays", Title: "x", Language: "python", PointsOnFailure: -1,
		TestCases: []models.TestCase{{Input: "1"}},
	})
	assert.True(t, apperr.Is(err, apperr.Validation), "negative tiers are rejected")

	_, err = f.daily.CreateProblem(context.Background(), mentor.ID, &models.DailyProblem{Subject: "Arrays", Title: "x", Language: "python"})
	assert.True(t, apperr.Is(err, apperr.Validation), "test cases are required")

	_, err = f.daily.CreateProblem(context.Background(), mentor.ID, &models.DailyProblem{
		Subject: "Arrays", Title: "x", Language: "cobol", TestCases: []models.TestCase{{Input: "1"}},
	})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestActiveProblemHidesSolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mentor := f.newUser(t, "mentor", models.RoleMentor)
	created := createProblem(t, f, mentor.ID)

	p, err := f.daily.ActiveProblem(ctx, "Arrays")
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)
	assert.Empty(t, p.SolutionCode)
	assert.Empty(t, p.TestCases)

	_, err = f.daily.ActiveProblem(ctx, "Graphs")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	// activating another problem of the subject retires the first
	second := createProblem(t, f, mentor.ID)
	p, err = f.daily.ActiveProblem(ctx, "Arrays")
	require.NoError(t, err)
	assert.Equal(t, second.ID, p.ID)
}

func TestSubmitPassCreditsAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mentor := f.newUser(t, "mentor", models.RoleMentor)
	learner := f.newUser(t, "alice", "")
	prob := createProblem(t, f, mentor.ID)
	f.exec.answers = map[string]string{"1 2": "3", "5 5": "10"}

	res, err := f.daily.Submit(ctx, learner.ID, prob.ID, "print(...)")
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, res.IsLocked)
	assert.Equal(t, 1, res.RunCount)
	assert.Equal(t, 20, res.PointsAwarded)
	assert.Equal(t, prob.SolutionCode, res.SolutionCode)

	p, err := f.progress.Get(ctx, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, p.Stats.DailyProblemPoints)
	assert.Equal(t, 20, p.Stats.Rank.Points)

	_, err = f.daily.Submit(ctx, learner.ID, prob.ID, "print(...)")
	assert.True(t, apperr.Is(err, apperr.AlreadyTerminal))

	details, err := f.daily.Details(ctx, learner.ID, prob.ID)
	require.NoError(t, err)
	assert.Equal(t, prob.SolutionCode, details.Problem.SolutionCode)
}

func TestSubmitFailTwiceAwardsConsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mentor := f.newUser(t, "mentor", models.RoleMentor)
	learner := f.newUser(t, "alice", "")
	prob := createProblem(t, f, mentor.ID)
	f.exec.answers = map[string]string{"1 2": "4"}

	res, err := f.daily.Submit(ctx, learner.ID, prob.ID, "wrong")
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.False(t, res.IsLocked)
	assert.Empty(t, res.SolutionCode)

	details, err := f.daily.Details(ctx, learner.ID, prob.ID)
	require.NoError(t, err)
	assert.Empty(t, details.Problem.SolutionCode)
	assert.Equal(t, 1, details.Attempt.RunCount)

	res, err = f.daily.Submit(ctx, learner.ID, prob.ID, "still wrong")
	require.NoError(t, err)
	assert.True(t, res.IsLocked)
	assert.Equal(t, 10, res.PointsAwarded)

	p, err := f.progress.Get(ctx, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stats.DailyProblemPoints)
}

func TestSubmitExecutorFailureKeepsRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mentor := f.newUser(t, "mentor", models.RoleMentor)
	learner := f.newUser(t, "alice", "")
	prob := createProblem(t, f, mentor.ID)
	f.exec.err = errors.New("connection refused")

	_, err := f.daily.Submit(ctx, learner.ID, prob.ID, "print(...)")
	assert.True(t, apperr.Is(err, apperr.ExternalService))
	assert.True(t, apperr.Retryable(err))

	a, err := f.daily.MyAttempt(ctx, learner.ID, prob.ID)
	require.NoError(t, err)
	assert.Zero(t, a.RunCount)
}

func TestMentorReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mentor := f.newUser(t, "mentor", models.RoleMentor)
	learner := f.newUser(t, "alice", "")
	prob := createProblem(t, f, mentor.ID)
	f.exec.answers = map[string]string{"1 2": "3", "5 5": "10"}

	_, err := f.daily.Submit(ctx, learner.ID, prob.ID, "print(...)")
	require.NoError(t, err)

	attempts, err := f.daily.ListAttempts(ctx, prob.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "alice", attempts[0].Username)

	require.NoError(t, f.daily.SetFeedback(ctx, attempts[0].ID, "  tidy solution "))
	a, err := f.daily.MyAttempt(ctx, learner.ID, prob.ID)
	require.NoError(t, err)
	assert.Equal(t, "tidy solution", a.MentorFeedback)

	assert.True(t, apperr.Is(f.daily.SetFeedback(ctx, 9999, "x"), apperr.NotFound))
	_, err = f.daily.ListAttempts(ctx, 9999)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
