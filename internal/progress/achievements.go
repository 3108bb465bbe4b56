package progress

import (
	"sort"
	"time"

	"learnstack/internal/models"
)

// AwardAchievement records tmpl as earned and credits its points. It reports
// false when the achievement is already held.
func AwardAchievement(p *models.UserProgress, tmpl *models.Achievement, now time.Time) bool {
	if tmpl == nil || tmpl.ID == "" || p.HasAchievement(tmpl.ID) {
		return false
	}
	p.Achievements = append(p.Achievements, models.EarnedAchievement{
		ID:          tmpl.ID,
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Icon:        tmpl.Icon,
		Category:    tmpl.Category,
		Rarity:      tmpl.Rarity,
		Points:      tmpl.Points,
		EarnedAt:    now,
	})
	if tmpl.Points > 0 {
		p.Stats.Rank.Points += tmpl.Points
	}
	return true
}

// AwardAchievements grants every active template whose threshold p meets.
// Points from one award can satisfy a rank_points threshold, so it repeats
// until nothing new is earned. Derived stats must be current; the caller
// recomputes afterwards to refresh the rank level.
func AwardAchievements(p *models.UserProgress, templates []models.Achievement, now time.Time) []models.EarnedAchievement {
	var earned []models.EarnedAchievement
	for {
		awarded := false
		for i := range templates {
			tmpl := &templates[i]
			if !tmpl.IsActive || p.HasAchievement(tmpl.ID) {
				continue
			}
			if criteriaValue(p, tmpl.CriteriaType) < tmpl.CriteriaValue {
				continue
			}
			if AwardAchievement(p, tmpl, now) {
				earned = append(earned, p.Achievements[len(p.Achievements)-1])
				awarded = true
			}
		}
		if !awarded {
			return earned
		}
	}
}

func criteriaValue(p *models.UserProgress, c models.CriteriaType) int {
	switch c {
	case models.CriteriaAlgorithmsCompleted:
		return p.Stats.AlgorithmsCompleted
	case models.CriteriaTopicsCompleted:
		return len(p.LearningPath.CompletedTopics)
	case models.CriteriaStreakDays:
		return p.Stats.Streak.Longest
	case models.CriteriaRankPoints:
		return p.Stats.Rank.Points
	case models.CriteriaDailyProblemPoints:
		return p.Stats.DailyProblemPoints
	case models.CriteriaAverageAccuracy:
		return p.Stats.AverageAccuracy
	}
	return -1
}

// SummarizeAchievements builds the dashboard block: the newest earned
// entries first, the held count and the number of active templates.
func SummarizeAchievements(p *models.UserProgress, available int) models.AchievementSummary {
	recent := append([]models.EarnedAchievement(nil), p.Achievements...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].EarnedAt.After(recent[j].EarnedAt)
	})
	if len(recent) > models.RecentAchievementsLimit {
		recent = recent[:models.RecentAchievementsLimit]
	}
	if recent == nil {
		recent = []models.EarnedAchievement{}
	}
	return models.AchievementSummary{
		Recent:    recent,
		Total:     len(p.Achievements),
		Available: available,
	}
}
