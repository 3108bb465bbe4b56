package models

import "time"

// Status is the per-user state of a topic or algorithm. Algorithms use
// locked, available and completed only.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusAvailable  Status = "available"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// RankLevel is derived from rank points
type RankLevel string

const (
	RankBronze   RankLevel = "Bronze"
	RankSilver   RankLevel = "Silver"
	RankGold     RankLevel = "Gold"
	RankPlatinum RankLevel = "Platinum"
	RankDiamond  RankLevel = "Diamond"
)

// DateLayout is the calendar-day format used for streaks and daily activity
const DateLayout = "2006-01-02"

// DailyActivityRetentionDays bounds how many day records a user keeps
const DailyActivityRetentionDays = 90

// AlgorithmProgress tracks one user's work on one algorithm.
// Times are in seconds. BestTimePractice is nil until the first timed attempt.
// Retired marks an entry whose algorithm left its topic in the catalog; it is
// kept but excluded from derived stats.
type AlgorithmProgress struct {
	Status              Status     `json:"status"`
	Completed           bool       `json:"completed"`
	TimeSpentViz        int        `json:"timeSpentViz"`
	LastAttemptViz      *time.Time `json:"lastAttemptViz,omitempty"`
	AccuracyPractice    float64    `json:"accuracyPractice"`
	TimeSpentPractice   int        `json:"timeSpentPractice"`
	AttemptsPractice    int        `json:"attemptsPractice"`
	PointsPractice      int        `json:"pointsPractice"`
	LastAttemptPractice *time.Time `json:"lastAttemptPractice,omitempty"`
	BestTimePractice    *int       `json:"bestTimePractice,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	Retired             bool       `json:"retired,omitempty"`
}

// TopicProgress tracks one user's progress through a topic.
// Completion is derived and rewritten on every recompute.
type TopicProgress struct {
	Status     Status                        `json:"status"`
	Completion int                           `json:"completion"`
	Algorithms map[string]*AlgorithmProgress `json:"algorithms"`
}

// EnsureAlgorithm returns the entry for id, creating an available one if missing
func (tp *TopicProgress) EnsureAlgorithm(id string) *AlgorithmProgress {
	if tp.Algorithms == nil {
		tp.Algorithms = make(map[string]*AlgorithmProgress)
	}
	ap, ok := tp.Algorithms[id]
	if !ok || ap == nil {
		ap = &AlgorithmProgress{Status: StatusAvailable}
		tp.Algorithms[id] = ap
	}
	return ap
}

type Rank struct {
	Level  RankLevel `json:"level"`
	Points int       `json:"points"`
}

type Streak struct {
	Current        int    `json:"current"`
	Longest        int    `json:"longest"`
	LastActiveDate string `json:"lastActiveDate,omitempty"`
}

// TimeSpent is in minutes
type TimeSpent struct {
	Today int `json:"today"`
	Total int `json:"total"`
}

type Stats struct {
	OverallProgress     int       `json:"overallProgress"`
	AverageAccuracy     int       `json:"averageAccuracy"`
	AlgorithmsCompleted int       `json:"algorithmsCompleted"`
	Rank                Rank      `json:"rank"`
	Streak              Streak    `json:"streak"`
	DailyProblemPoints  int       `json:"dailyProblemPoints"`
	TimeSpent           TimeSpent `json:"timeSpent"`
}

// LearningPath is the user's position in the topic sequence.
// CompletedTopics has set semantics.
type LearningPath struct {
	CurrentTopic    string   `json:"currentTopic"`
	CompletedTopics []string `json:"completedTopics"`
	TopicOrder      []string `json:"topicOrder"`
}

// HasCompleted reports whether topicID is in CompletedTopics
func (lp *LearningPath) HasCompleted(topicID string) bool {
	for _, id := range lp.CompletedTopics {
		if id == topicID {
			return true
		}
	}
	return false
}

// AddCompleted appends topicID if absent and reports whether it was added
func (lp *LearningPath) AddCompleted(topicID string) bool {
	if lp.HasCompleted(topicID) {
		return false
	}
	lp.CompletedTopics = append(lp.CompletedTopics, topicID)
	return true
}

// DailyActivity aggregates one calendar day of study. TimeSpent is in minutes.
type DailyActivity struct {
	Date                string   `json:"date"`
	TimeSpent           int      `json:"timeSpent"`
	AlgorithmsAttempted int      `json:"algorithmsAttempted"`
	AlgorithmsCompleted int      `json:"algorithmsCompleted"`
	PointsEarned        int      `json:"pointsEarned"`
	TopicsStudied       []string `json:"topicsStudied"`
}

// UserProgress is the per-user aggregate persisted as one versioned document
type UserProgress struct {
	UserID        int64                     `json:"userId"`
	Version       int64                     `json:"version"`
	Topics        map[string]*TopicProgress `json:"topics"`
	LearningPath  LearningPath              `json:"learningPath"`
	Stats         Stats                     `json:"stats"`
	DailyActivity []DailyActivity           `json:"dailyActivity"`
	Achievements  []EarnedAchievement       `json:"achievements"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
}

// NewUserProgress returns an empty aggregate with initialized maps
func NewUserProgress(userID int64) *UserProgress {
	return &UserProgress{
		UserID: userID,
		Topics: make(map[string]*TopicProgress),
		LearningPath: LearningPath{
			CompletedTopics: []string{},
			TopicOrder:      []string{},
		},
		Stats:         Stats{Rank: Rank{Level: RankBronze}},
		DailyActivity: []DailyActivity{},
		Achievements:  []EarnedAchievement{},
	}
}

// EnsureTopic returns the entry for id, creating it with status def if missing
func (p *UserProgress) EnsureTopic(id string, def Status) *TopicProgress {
	if p.Topics == nil {
		p.Topics = make(map[string]*TopicProgress)
	}
	tp, ok := p.Topics[id]
	if !ok || tp == nil {
		tp = &TopicProgress{Status: def, Algorithms: make(map[string]*AlgorithmProgress)}
		p.Topics[id] = tp
	}
	return tp
}

// AccessView is the partial aggregate read used for access checks
type AccessView struct {
	Topics       map[string]*TopicProgress `json:"topics"`
	LearningPath LearningPath              `json:"learningPath"`
}
