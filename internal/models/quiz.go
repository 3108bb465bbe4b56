package models

import "time"

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionShortAnswer QuestionType = "short_answer"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "inprogress"
	AttemptLocked     AttemptStatus = "locked"
	AttemptCompleted  AttemptStatus = "completed"
)

// MaxStrikes is the number of proctoring strikes that locks an attempt
const MaxStrikes = 3

// MinQuestionTimeLimit is the shortest per-question time limit in seconds
const MinQuestionTimeLimit = 10

// SubmitGrace is added to a test's total time limit before a submission is late
const SubmitGrace = 30 * time.Second

// QuizTest is a password-protected, mentor-authored test
type QuizTest struct {
	ID           int64      `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedBy    int64      `db:"created_by" json:"createdBy"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
	Questions    []Question `db:"-" json:"questions,omitempty"`
}

// TimeLimit is the sum of the question time limits
func (t *QuizTest) TimeLimit() time.Duration {
	var total int
	for _, q := range t.Questions {
		total += q.TimeLimit
	}
	return time.Duration(total) * time.Second
}

// Question is one test item. CorrectOption indexes Options for mcq questions;
// ShortAnswers lists accepted answers for short_answer questions.
type Question struct {
	ID            int64        `db:"id" json:"id"`
	TestID        int64        `db:"test_id" json:"testId"`
	Position      int          `db:"position" json:"position"`
	Type          QuestionType `db:"question_type" json:"questionType"`
	Text          string       `db:"text" json:"text"`
	Options       StringList   `db:"options" json:"options"`
	CorrectOption int          `db:"correct_option" json:"correctAnswerIndex"`
	ShortAnswers  StringList   `db:"short_answers" json:"shortAnswers"`
	TimeLimit     int          `db:"time_limit" json:"timeLimit"`
	CreatedBy     int64        `db:"created_by" json:"createdBy"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
}

// PublicQuestion is a question as shown to a test taker
type PublicQuestion struct {
	ID        int64        `json:"id"`
	Type      QuestionType `json:"questionType"`
	Text      string       `json:"text"`
	Options   []string     `json:"options,omitempty"`
	TimeLimit int          `json:"timeLimit"`
}

// Public strips the answer key
func (q *Question) Public() PublicQuestion {
	pq := PublicQuestion{ID: q.ID, Type: q.Type, Text: q.Text, TimeLimit: q.TimeLimit}
	if q.Type == QuestionMCQ {
		pq.Options = append([]string(nil), q.Options...)
	}
	return pq
}

// TestAttempt is one learner's single attempt at a test
type TestAttempt struct {
	ID          int64         `db:"id" json:"attemptId"`
	UserID      int64         `db:"user_id" json:"userId"`
	TestID      int64         `db:"test_id" json:"testId"`
	Status      AttemptStatus `db:"status" json:"status"`
	Strikes     int           `db:"strikes" json:"strikes"`
	Score       int           `db:"score" json:"score"`
	MaxScore    int           `db:"max_score" json:"maxScore"`
	StartedAt   time.Time     `db:"started_at" json:"startedAt"`
	CompletedAt *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
	UpdatedAt   time.Time     `db:"updated_at" json:"-"`
}

// TestAttemptWithUser joins an attempt with the learner's username
type TestAttemptWithUser struct {
	TestAttempt
	Username string `db:"username" json:"username"`
}

// QuizSession is what a learner receives when starting or resuming a test
type QuizSession struct {
	Attempt   *TestAttempt     `json:"attempt"`
	Title     string           `json:"title"`
	Questions []PublicQuestion `json:"questions"`
	Deadline  time.Time        `json:"deadline"`
}

// TestLeaderboardEntry ranks completed attempts of one test
type TestLeaderboardEntry struct {
	Position    int        `json:"position"`
	UserID      int64      `json:"userId"`
	Username    string     `json:"username"`
	Score       int        `json:"score"`
	MaxScore    int        `json:"maxScore"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type TestLeaderboard struct {
	TestID    int64                  `json:"testId"`
	TestTitle string                 `json:"testTitle"`
	Entries   []TestLeaderboardEntry `json:"leaderboard"`
}
