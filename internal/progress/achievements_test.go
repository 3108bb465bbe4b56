package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/models"
)

func template(id string, c models.CriteriaType, value, points int) models.Achievement {
	return models.Achievement{
		ID: id, Name: id, Category: models.CategoryLearning, Rarity: models.RarityCommon,
		CriteriaType: c, CriteriaValue: value, Points: points, IsActive: true,
	}
}

func TestAwardAchievementSkipsDuplicates(t *testing.T) {
	p := models.NewUserProgress(1)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tmpl := template("first-steps", models.CriteriaAlgorithmsCompleted, 1, 25)

	assert.True(t, AwardAchievement(p, &tmpl, now))
	assert.False(t, AwardAchievement(p, &tmpl, now.Add(time.Hour)))

	require.Len(t, p.Achievements, 1)
	assert.Equal(t, now, p.Achievements[0].EarnedAt)
	assert.Equal(t, 25, p.Stats.Rank.Points, "points are credited once")
}

func TestAwardAchievementsThresholds(t *testing.T) {
	c := testCatalog()
	p := newUser(c)
	p.Stats.AlgorithmsCompleted = 2
	p.Stats.Streak.Longest = 3
	p.LearningPath.CompletedTopics = []string{"arrays"}

	templates := []models.Achievement{
		template("two-done", models.CriteriaAlgorithmsCompleted, 2, 10),
		template("five-done", models.CriteriaAlgorithmsCompleted, 5, 10),
		template("first-topic", models.CriteriaTopicsCompleted, 1, 0),
		template("week-streak", models.CriteriaStreakDays, 7, 10),
	}
	inactive := template("inactive", models.CriteriaAlgorithmsCompleted, 0, 100)
	inactive.IsActive = false
	templates = append(templates, inactive)

	earned := AwardAchievements(p, templates, time.Now())

	ids := make([]string, 0, len(earned))
	for _, e := range earned {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"two-done", "first-topic"}, ids)
	assert.Equal(t, 10, p.Stats.Rank.Points)

	assert.Empty(t, AwardAchievements(p, templates, time.Now()), "held achievements are not re-earned")
}

func TestAwardAchievementsChainsRankPoints(t *testing.T) {
	p := models.NewUserProgress(1)
	p.Stats.DailyProblemPoints = 20
	templates := []models.Achievement{
		template("hundred-points", models.CriteriaRankPoints, 100, 0),
		template("daily-regular", models.CriteriaDailyProblemPoints, 20, 100),
	}

	earned := AwardAchievements(p, templates, time.Now())

	assert.Len(t, earned, 2, "points from one award satisfy the rank threshold")
	assert.Equal(t, 100, p.Stats.Rank.Points)
}

func TestSummarizeAchievements(t *testing.T) {
	p := models.NewUserProgress(1)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		tmpl := template(string(rune('a'+i)), models.CriteriaRankPoints, 0, 0)
		AwardAchievement(p, &tmpl, base.Add(time.Duration(i)*time.Hour))
	}

	s := SummarizeAchievements(p, 12)

	assert.Equal(t, 8, s.Total)
	assert.Equal(t, 12, s.Available)
	require.Len(t, s.Recent, models.RecentAchievementsLimit)
	assert.Equal(t, "h", s.Recent[0].ID, "newest first")

	empty := SummarizeAchievements(models.NewUserProgress(2), 0)
	assert.NotNil(t, empty.Recent)
	assert.Zero(t, empty.Total)
}
