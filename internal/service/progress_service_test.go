package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/apperr"
	"learnstack/internal/models"
	"learnstack/internal/progress"
	"learnstack/internal/repository"
)

func complete(t *testing.T, f *fixture, userID int64, topicID, algorithmID string) *ProgressUpdate {
	t.Helper()
	res, err := f.progress.PostProgress(context.Background(), userID, topicID, algorithmID, progress.Delta{
		TimeSpentPractice: intPtr(90),
		AccuracyPractice:  func() *float64 { v := 80.0; return &v }(),
		PointsPractice:    intPtr(10),
		Completed:         boolPtr(true),
	})
	require.NoError(t, err)
	return res
}

func TestPostProgressUnlocksNextTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "alice", "")

	res := complete(t, f, u.ID, "arrays", "traversal")
	assert.Equal(t, models.StatusInProgress, res.UpdatedTopicStatus)
	assert.Equal(t, 50, res.UpdatedTopicCompletion)
	assert.True(t, res.UpdatedAlgorithmProgress.Completed)

	res = complete(t, f, u.ID, "arrays", "insertion")
	assert.Equal(t, models.StatusCompleted, res.UpdatedTopicStatus)
	assert.Equal(t, 100, res.UpdatedTopicCompletion)
	assert.Equal(t, "searching", res.UpdatedLearningPath.CurrentTopic)
	assert.Equal(t, []string{"arrays"}, res.UpdatedLearningPath.CompletedTopics)
	assert.Equal(t, 20, res.UpdatedStats.Rank.Points)
	assert.Equal(t, 2, res.UpdatedStats.AlgorithmsCompleted)

	access, err := f.progress.CheckAccess(ctx, u.ID, "searching", "linearSearch")
	require.NoError(t, err)
	assert.True(t, access.HasAccess)

	access, err = f.progress.CheckAccess(ctx, u.ID, "sorting", "bubbleSort")
	require.NoError(t, err)
	assert.False(t, access.HasAccess)
	assert.Equal(t, progress.AccessLockedTopic, access.Status)
}

func TestPostProgressOnLockedTopicIsDenied(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "alice", "")

	_, err := f.progress.PostProgress(context.Background(), u.ID, "sorting", "bubbleSort", progress.Delta{TimeSpentViz: intPtr(30)})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.AccessDenied, ae.Kind)
	assert.Equal(t, progress.AccessLockedTopic, ae.Code)
}

func TestPostProgressUnknownAlgorithm(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "alice", "")

	_, err := f.progress.PostProgress(context.Background(), u.ID, "arrays", "nope", progress.Delta{TimeSpentViz: intPtr(30)})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = f.progress.CheckAccess(context.Background(), u.ID, "nope", "traversal")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestPostProgressRetriesStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "alice", "")
	repo := repository.NewProgressRepository(f.db)

	bumped := false
	_, err := f.progress.Mutate(ctx, u.ID, func(p *models.UserProgress, _ progress.Catalog) error {
		if !bumped {
			// a concurrent writer saves first
			other, err := repo.Get(ctx, u.ID)
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, other))
			bumped = true
		}
		p.Stats.Rank.Points += 5
		return nil
	})
	require.NoError(t, err)

	p, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stats.Rank.Points)
	assert.Equal(t, int64(3), p.Version)
}

func TestLoadResyncsTopicOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "alice", "")

	require.NoError(t, f.catalog.CreateTopic(ctx, &models.Topic{
		ID: "graphs", Name: "Graphs", Order: 0, IsActive: true,
		Algorithms: []models.Algorithm{{ID: "bfs", Name: "BFS", Points: 10}},
	}))

	p, err := f.progress.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"graphs", "arrays", "searching", "sorting"}, p.LearningPath.TopicOrder)
	require.Contains(t, p.Topics, "graphs")
	assert.Equal(t, models.StatusAvailable, p.Topics["graphs"].Status)
}

func TestCheckAccessAgreesWithPostOnNewGatedTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "alice", "")

	require.NoError(t, f.catalog.CreateTopic(ctx, &models.Topic{
		ID: "graphs", Name: "Graphs", Order: 4, IsActive: true, Prerequisites: models.StringList{"sorting"},
		Algorithms: []models.Algorithm{{ID: "bfs", Name: "BFS", Points: 10}},
	}))
	require.NoError(t, f.catalog.CreateTopic(ctx, &models.Topic{
		ID: "strings", Name: "Strings", Order: 5, IsActive: true,
		Algorithms: []models.Algorithm{{ID: "reverse", Name: "Reverse", Points: 10}},
	}))

	access, err := f.progress.CheckAccess(ctx, u.ID, "graphs", "bfs")
	require.NoError(t, err)
	assert.False(t, access.HasAccess)
	assert.Equal(t, progress.AccessLockedTopic, access.Status)

	_, err = f.progress.PostProgress(ctx, u.ID, "graphs", "bfs", progress.Delta{TimeSpentViz: intPtr(30)})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, progress.AccessLockedTopic, ae.Code)

	access, err = f.progress.CheckAccess(ctx, u.ID, "graphs", "bfs")
	require.NoError(t, err)
	assert.False(t, access.HasAccess, "verdict is stable after a denied post")

	access, err = f.progress.CheckAccess(ctx, u.ID, "strings", "reverse")
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
	_, err = f.progress.PostProgress(ctx, u.ID, "strings", "reverse", progress.Delta{TimeSpentViz: intPtr(30)})
	assert.NoError(t, err)
}

func TestRecomputeAfterAlgorithmRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "alice", "")
	complete(t, f, u.ID, "arrays", "traversal")

	arrays, err := f.catalog.GetTopic(ctx, "arrays")
	require.NoError(t, err)
	arrays.Algorithms = arrays.Algorithms[:1]
	require.NoError(t, f.catalog.UpdateTopic(ctx, arrays))

	res, err := f.admin.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	p, err := f.progress.Get(ctx, u.ID)
	require.NoError(t, err)
	tp := p.Topics["arrays"]
	require.Contains(t, tp.Algorithms, "insertion", "entries are never deleted")
	assert.True(t, tp.Algorithms["insertion"].Retired)
	assert.Equal(t, 100, tp.Completion)
	assert.Equal(t, models.StatusCompleted, tp.Status)
	assert.Equal(t, "searching", p.LearningPath.CurrentTopic)
	assert.Equal(t, models.StatusAvailable, p.Topics["searching"].Status)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "alice", "")
	f.newUser(t, "bob", "")
	complete(t, f, u.ID, "arrays", "traversal")

	d, err := f.progress.Dashboard(ctx, u.ID)
	require.NoError(t, err)

	require.Len(t, d.Topics, 3)
	assert.Equal(t, models.StatusInProgress, d.Topics[0].Status)
	assert.Equal(t, 50, d.Topics[0].Completion)
	assert.Equal(t, models.StatusAvailable, d.Topics[0].Algorithms[0].Status)
	assert.True(t, d.Topics[0].Algorithms[0].Completed)
	assert.Equal(t, models.StatusLocked, d.Topics[1].Status)
	assert.Equal(t, models.StatusLocked, d.Topics[1].Algorithms[0].Status, "a locked topic locks its algorithms")

	require.Len(t, d.Leaderboard, 2)
	assert.Equal(t, u.ID, d.Leaderboard[0].UserID)
	assert.Equal(t, 1, d.MyPosition)
	assert.Equal(t, 10, d.Stats.Rank.Points)
}

func TestMutateCreatesMissingAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := repository.NewUserRepository(f.db).CreateUser(ctx, &models.User{Username: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)

	require.NoError(t, f.progress.RecordLogin(ctx, u.ID))
	p, err := f.progress.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "arrays", p.LearningPath.CurrentTopic)
	assert.Equal(t, 1, p.Stats.Streak.Current)
}
