package models

import "time"

// LeaderboardKind selects which accumulator a board ranks by
type LeaderboardKind string

const (
	LeaderboardAllTime       LeaderboardKind = "all-time"
	LeaderboardDailyPractice LeaderboardKind = "daily-practice"
)

// LeaderboardSize is the number of entries kept per board
const LeaderboardSize = 100

type LeaderboardEntry struct {
	Position  int       `db:"-" json:"position"`
	UserID    int64     `db:"user_id" json:"userId"`
	Username  string    `db:"username" json:"username"`
	RankLevel RankLevel `db:"rank_level" json:"rankLevel"`
	Score     int       `db:"score" json:"score"`
}

// Leaderboard is a generated snapshot of one board
type Leaderboard struct {
	Kind        LeaderboardKind    `json:"kind"`
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// Stale reports whether the snapshot is older than ttl at now
func (l *Leaderboard) Stale(now time.Time, ttl time.Duration) bool {
	return l.GeneratedAt.IsZero() || now.Sub(l.GeneratedAt) > ttl
}

// MyRank is a user's standing on a board. Position is 0 when unranked.
type MyRank struct {
	Kind     LeaderboardKind `json:"kind"`
	Position int             `json:"position"`
	Score    int             `json:"score"`
}

// PlatformStats summarizes the platform for the admin dashboard
type PlatformStats struct {
	TotalUsers          int `db:"total_users" json:"totalUsers"`
	VerifiedUsers       int `db:"verified_users" json:"verifiedUsers"`
	Mentors             int `db:"mentors" json:"mentors"`
	Admins              int `db:"admins" json:"admins"`
	Topics              int `db:"topics" json:"topics"`
	ActiveDailyProblems int `db:"active_daily_problems" json:"activeDailyProblems"`
	OpenDoubts          int `db:"open_doubts" json:"openDoubts"`
	QuizTests           int `db:"quiz_tests" json:"quizTests"`
	TotalAchievements   int `db:"total_achievements" json:"totalAchievements"`
}
