// Package quiz implements mentor-authored test questions, grading and the
// proctoring strike lock on test attempts.
package quiz

import (
	"strings"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/models"
)

// Answer is a learner's response to one question. Option is used for mcq
// questions and Text for short_answer ones.
type Answer struct {
	QuestionID int64  `json:"questionId"`
	Option     *int   `json:"selectedOption,omitempty"`
	Text       string `json:"answer,omitempty"`
}

// ValidateQuestion normalizes q and rejects incomplete questions. Mcq questions
// need at least two options and an in-range correct index; short_answer
// questions need at least one accepted answer.
func ValidateQuestion(q *models.Question) error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return apperr.New(apperr.Validation, "question text is required").WithCode("text")
	}
	if q.TimeLimit < models.MinQuestionTimeLimit {
		return apperr.Validationf("time limit must be at least %d seconds", models.MinQuestionTimeLimit).WithCode("timeLimit")
	}

	switch q.Type {
	case models.QuestionMCQ:
		opts := make(models.StringList, 0, len(q.Options))
		for _, o := range q.Options {
			if o = strings.TrimSpace(o); o != "" {
				opts = append(opts, o)
			}
		}
		if len(opts) < 2 {
			return apperr.New(apperr.Validation, "multiple choice questions need at least two options").WithCode("options")
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(opts) {
			return apperr.New(apperr.Validation, "correct answer index is out of range").WithCode("correctAnswerIndex")
		}
		q.Options = opts
		q.ShortAnswers = models.StringList{}
	case models.QuestionShortAnswer:
		answers := make(models.StringList, 0, len(q.ShortAnswers))
		for _, a := range q.ShortAnswers {
			if a = strings.TrimSpace(a); a != "" {
				answers = append(answers, a)
			}
		}
		if len(answers) == 0 {
			return apperr.New(apperr.Validation, "short answer questions need at least one accepted answer").WithCode("shortAnswers")
		}
		q.ShortAnswers = answers
		q.Options = models.StringList{}
		q.CorrectOption = -1
	default:
		return apperr.Validationf("unknown question type %q", q.Type).WithCode("questionType")
	}
	return nil
}

// Correct reports whether a answers q. Short answers match case-insensitively
// after trimming.
func Correct(q *models.Question, a Answer) bool {
	switch q.Type {
	case models.QuestionMCQ:
		return a.Option != nil && *a.Option == q.CorrectOption
	case models.QuestionShortAnswer:
		got := strings.TrimSpace(a.Text)
		if got == "" {
			return false
		}
		for _, want := range q.ShortAnswers {
			if strings.EqualFold(got, strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

// Grade scores one point per correctly answered question. Unknown question
// ids are ignored and only the first answer per question counts.
func Grade(questions []models.Question, answers []Answer) (score, total int) {
	byID := make(map[int64]Answer, len(answers))
	for _, a := range answers {
		if _, seen := byID[a.QuestionID]; !seen {
			byID[a.QuestionID] = a
		}
	}
	for i := range questions {
		q := &questions[i]
		if a, ok := byID[q.ID]; ok && Correct(q, a) {
			score++
		}
	}
	return score, len(questions)
}

// Deadline is when a submission for a stops being accepted for credit
func Deadline(a *models.TestAttempt, t *models.QuizTest) time.Time {
	return a.StartedAt.Add(t.TimeLimit() + models.SubmitGrace)
}

// Strike records one proctoring violation. The attempt locks at MaxStrikes.
func Strike(a *models.TestAttempt) error {
	if err := requireInProgress(a); err != nil {
		return err
	}
	a.Strikes++
	if a.Strikes >= models.MaxStrikes {
		a.Status = models.AttemptLocked
	}
	return nil
}

// Unlock reopens a locked attempt with its strikes cleared and a fresh time
// window.
func Unlock(a *models.TestAttempt, now time.Time) error {
	if a.Status != models.AttemptLocked {
		return apperr.New(apperr.Validation, "test is not locked")
	}
	a.Status = models.AttemptInProgress
	a.Strikes = 0
	a.StartedAt = now
	return nil
}

// Complete finishes the attempt. A submission after the deadline is accepted
// but scores zero.
func Complete(a *models.TestAttempt, t *models.QuizTest, answers []Answer, now time.Time) error {
	if err := requireInProgress(a); err != nil {
		return err
	}
	score, total := Grade(t.Questions, answers)
	if now.After(Deadline(a, t)) {
		score = 0
	}
	a.Status = models.AttemptCompleted
	a.Score = score
	a.MaxScore = total
	a.CompletedAt = &now
	return nil
}

func requireInProgress(a *models.TestAttempt) error {
	switch a.Status {
	case models.AttemptCompleted:
		return apperr.New(apperr.AlreadyTerminal, "you have already completed this test")
	case models.AttemptLocked:
		return apperr.New(apperr.AccessDenied, "this test is locked, ask your mentor to unlock it").WithCode("locked")
	}
	return nil
}
