package progress

import (
	"math"
	"sort"

	"learnstack/internal/models"
)

// Recalculate recomputes every derived field of p from its tracked entries,
// ignoring retired ones:
// topic completion and status transitions, overall progress, algorithms
// completed, average accuracy and rank level. It never fails; nil maps and
// entries are normalized. Calling it twice yields identical output.
func Recalculate(p *models.UserProgress) {
	normalize(p)

	var (
		completedTotal   int
		accuracySum      float64
		practiceCount    int
		completionSum    int
		activeTopicCount int
	)

	for _, topicID := range orderedTopicIDs(p) {
		tp := p.Topics[topicID]
		current := 0
		for _, ap := range tp.Algorithms {
			if !ap.Retired {
				current++
			}
		}
		if current == 0 {
			tp.Completion = 0
			continue
		}

		activeTopicCount++
		completed := 0
		for _, ap := range tp.Algorithms {
			if ap.Retired {
				continue
			}
			if ap.Completed {
				completed++
			}
			if ap.AttemptsPractice > 0 {
				accuracySum += ap.AccuracyPractice
				practiceCount++
			}
		}
		completedTotal += completed

		tp.Completion = percent(completed, current)
		completionSum += tp.Completion

		if tp.Status == models.StatusLocked {
			continue
		}
		switch {
		case tp.Completion == 100:
			tp.Status = models.StatusCompleted
			p.LearningPath.AddCompleted(topicID)
		case tp.Completion > 0 && tp.Status == models.StatusAvailable:
			tp.Status = models.StatusInProgress
		}
	}

	p.Stats.AlgorithmsCompleted = completedTotal
	p.Stats.OverallProgress = 0
	if activeTopicCount > 0 {
		p.Stats.OverallProgress = int(math.Round(float64(completionSum) / float64(activeTopicCount)))
	}
	p.Stats.AverageAccuracy = 0
	if practiceCount > 0 {
		p.Stats.AverageAccuracy = int(math.Round(accuracySum / float64(practiceCount)))
	}
	p.Stats.Rank.Level = RankForPoints(p.Stats.Rank.Points)
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

func normalize(p *models.UserProgress) {
	if p.Topics == nil {
		p.Topics = make(map[string]*models.TopicProgress)
	}
	for id, tp := range p.Topics {
		if tp == nil {
			delete(p.Topics, id)
			continue
		}
		if tp.Algorithms == nil {
			tp.Algorithms = make(map[string]*models.AlgorithmProgress)
		}
		for algoID, ap := range tp.Algorithms {
			if ap == nil {
				delete(tp.Algorithms, algoID)
				continue
			}
			if ap.AccuracyPractice < 0 || math.IsNaN(ap.AccuracyPractice) {
				ap.AccuracyPractice = 0
			}
		}
	}
	if p.LearningPath.CompletedTopics == nil {
		p.LearningPath.CompletedTopics = []string{}
	}
	if p.LearningPath.TopicOrder == nil {
		p.LearningPath.TopicOrder = []string{}
	}
	if p.DailyActivity == nil {
		p.DailyActivity = []models.DailyActivity{}
	}
	if p.Achievements == nil {
		p.Achievements = []models.EarnedAchievement{}
	}
	if p.Stats.Rank.Points < 0 {
		p.Stats.Rank.Points = 0
	}
	if p.Stats.DailyProblemPoints < 0 {
		p.Stats.DailyProblemPoints = 0
	}
}

// orderedTopicIDs lists topic keys in learning-path order, then the rest
// alphabetically, so completed topics are appended deterministically.
func orderedTopicIDs(p *models.UserProgress) []string {
	pos := make(map[string]int, len(p.LearningPath.TopicOrder))
	for i, id := range p.LearningPath.TopicOrder {
		if _, seen := pos[id]; !seen {
			pos[id] = i
		}
	}
	ids := make([]string, 0, len(p.Topics))
	for id := range p.Topics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, iok := pos[ids[i]]
		pj, jok := pos[ids[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}
