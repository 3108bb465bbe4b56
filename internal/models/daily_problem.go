package models

import "time"

// Default point tiers for a daily problem
const (
	DefaultPointsFirstAttempt  = 20
	DefaultPointsSecondAttempt = 15
	DefaultPointsOnFailure     = 10
)

// MaxDailyRuns is the number of runs before an attempt locks
const MaxDailyRuns = 2

type TestCase struct {
	ID             int64  `db:"id" json:"-"`
	ProblemID      int64  `db:"problem_id" json:"-"`
	Position       int    `db:"position" json:"-"`
	Input          string `db:"input" json:"input"`
	ExpectedOutput string `db:"expected_output" json:"expectedOutput"`
}

// DailyProblem is a mentor-authored coding problem with hidden test cases
type DailyProblem struct {
	ID                  int64      `db:"id" json:"id"`
	Subject             string     `db:"subject" json:"subject"`
	Title               string     `db:"title" json:"title"`
	Description         string     `db:"description" json:"description"`
	BoilerplateCode     string     `db:"boilerplate_code" json:"boilerplateCode"`
	SolutionCode        string     `db:"solution_code" json:"solutionCode,omitempty"`
	Language            string     `db:"language" json:"language"`
	PointsFirstAttempt  int        `db:"points_first_attempt" json:"pointsFirstAttempt"`
	PointsSecondAttempt int        `db:"points_second_attempt" json:"pointsSecondAttempt"`
	PointsOnFailure     int        `db:"points_on_failure" json:"pointsOnFailure"`
	CreatedBy           int64      `db:"created_by" json:"createdBy"`
	IsActive            bool       `db:"is_active" json:"isActive"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
	TestCases           []TestCase `db:"-" json:"testCases,omitempty"`
}

// DailyProblemAttempt is one user's two-run submission cycle for a problem
type DailyProblemAttempt struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"userId"`
	ProblemID         int64     `db:"problem_id" json:"problemId"`
	RunCount          int       `db:"run_count" json:"runCount"`
	IsLocked          bool      `db:"is_locked" json:"isLocked"`
	Passed            bool      `db:"passed" json:"passed"`
	PointsAwarded     int       `db:"points_awarded" json:"pointsAwarded"`
	LastSubmittedCode string    `db:"last_submitted_code" json:"lastSubmittedCode"`
	LastResults       string    `db:"last_results" json:"lastResults"`
	MentorFeedback    string    `db:"mentor_feedback" json:"mentorFeedback"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Terminal reports whether no further submissions are accepted
func (a *DailyProblemAttempt) Terminal() bool {
	return a.IsLocked || a.Passed
}

// AttemptWithUser is an attempt joined with the submitter's username for mentor review
type AttemptWithUser struct {
	DailyProblemAttempt
	Username string `db:"username" json:"username"`
}
