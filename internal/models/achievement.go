package models

import "time"

type AchievementCategory string

const (
	CategoryLearning    AchievementCategory = "learning"
	CategoryPerformance AchievementCategory = "performance"
	CategoryConsistency AchievementCategory = "consistency"
	CategoryMastery     AchievementCategory = "mastery"
	CategorySpecial     AchievementCategory = "special"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// CriteriaType names the aggregate statistic an achievement threshold applies to
type CriteriaType string

const (
	CriteriaAlgorithmsCompleted CriteriaType = "algorithms_completed"
	CriteriaTopicsCompleted     CriteriaType = "topics_completed"
	CriteriaStreakDays          CriteriaType = "streak_days"
	CriteriaRankPoints          CriteriaType = "rank_points"
	CriteriaDailyProblemPoints  CriteriaType = "daily_problem_points"
	CriteriaAverageAccuracy     CriteriaType = "average_accuracy"
)

// RecentAchievementsLimit bounds the dashboard's recent achievements list
const RecentAchievementsLimit = 6

// Achievement is an admin-managed template
type Achievement struct {
	ID            string              `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	Description   string              `db:"description" json:"description"`
	Icon          string              `db:"icon" json:"icon"`
	Category      AchievementCategory `db:"category" json:"category"`
	Rarity        Rarity              `db:"rarity" json:"rarity"`
	Points        int                 `db:"points" json:"points"`
	CriteriaType  CriteriaType        `db:"criteria_type" json:"criteriaType"`
	CriteriaValue int                 `db:"criteria_value" json:"criteriaValue"`
	IsActive      bool                `db:"is_active" json:"isActive"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updatedAt"`
}

// EarnedAchievement is a snapshot of a template at the moment it was awarded
type EarnedAchievement struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Category    AchievementCategory `json:"category"`
	Rarity      Rarity              `json:"rarity"`
	Points      int                 `json:"points"`
	EarnedAt    time.Time           `json:"earnedAt"`
}

// AchievementSummary is the dashboard block
type AchievementSummary struct {
	Recent    []EarnedAchievement `json:"recent"`
	Total     int                 `json:"total"`
	Available int                 `json:"available"`
}

// ValidCategory reports whether c is a known category
func ValidCategory(c AchievementCategory) bool {
	switch c {
	case CategoryLearning, CategoryPerformance, CategoryConsistency, CategoryMastery, CategorySpecial:
		return true
	}
	return false
}

// ValidRarity reports whether r is a known rarity
func ValidRarity(r Rarity) bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// ValidCriteria reports whether c is a known criteria type
func ValidCriteria(c CriteriaType) bool {
	switch c {
	case CriteriaAlgorithmsCompleted, CriteriaTopicsCompleted, CriteriaStreakDays,
		CriteriaRankPoints, CriteriaDailyProblemPoints, CriteriaAverageAccuracy:
		return true
	}
	return false
}

// HasAchievement reports whether the aggregate already holds achievement id
func (p *UserProgress) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// RemoveAchievement drops achievement id and reports whether it was held
func (p *UserProgress) RemoveAchievement(id string) bool {
	for i, a := range p.Achievements {
		if a.ID == id {
			p.Achievements = append(p.Achievements[:i], p.Achievements[i+1:]...)
			return true
		}
	}
	return false
}
