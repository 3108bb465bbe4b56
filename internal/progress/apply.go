package progress

import (
	"math"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/models"
)

// Delta is a client-reported progress increment. Nil fields are absent.
// Times are in seconds. Practice fields apply only when TimeSpentPractice is set.
type Delta struct {
	TimeSpentViz      *int     `json:"timeSpentViz,omitempty"`
	TimeSpentPractice *int     `json:"timeSpentPractice,omitempty"`
	AccuracyPractice  *float64 `json:"accuracyPractice,omitempty"`
	AttemptsPractice  *int     `json:"attemptsPractice,omitempty"`
	PointsPractice    *int     `json:"pointsPractice,omitempty"`
	Completed         *bool    `json:"completed,omitempty"`
}

// Validate rejects negative counters and out-of-range accuracy
func (d Delta) Validate() error {
	for name, v := range map[string]*int{
		"timeSpentViz":      d.TimeSpentViz,
		"timeSpentPractice": d.TimeSpentPractice,
		"attemptsPractice":  d.AttemptsPractice,
		"pointsPractice":    d.PointsPractice,
	} {
		if v != nil && *v < 0 {
			return apperr.Validationf("%s must not be negative", name)
		}
	}
	if d.AccuracyPractice != nil {
		a := *d.AccuracyPractice
		if math.IsNaN(a) || a < 0 || a > 100 {
			return apperr.Validationf("accuracyPractice must be between 0 and 100")
		}
	}
	return nil
}

// UpdateResult describes the state after ApplyUpdate
type UpdateResult struct {
	Algorithm       *models.AlgorithmProgress
	TopicStatus     models.Status
	TopicCompletion int
	CompletedNow    bool
}

// ApplyUpdate records a progress delta for (topicID, algorithmID), then
// runs the unlock advance when this update finished the topic, and recomputes
// derived stats. The action must pass CheckAccess.
func ApplyUpdate(p *models.UserProgress, catalog Catalog, topicID, algorithmID string, d Delta, now time.Time) (*UpdateResult, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	topic, ok := catalog.Topic(topicID)
	if !ok {
		return nil, apperr.NotFoundf("topic %q not found", topicID)
	}
	access, err := CheckAccess(topic, algorithmID, p.Topics)
	if err != nil {
		return nil, err
	}
	if !access.HasAccess {
		return nil, DeniedError(access)
	}

	tp := p.EnsureTopic(topicID, models.StatusAvailable)
	ap := tp.EnsureAlgorithm(algorithmID)

	var (
		seconds      int
		points       int
		attempted    bool
		completedNow bool
	)

	if d.TimeSpentViz != nil {
		ap.TimeSpentViz += *d.TimeSpentViz
		ap.LastAttemptViz = timePtr(now)
		seconds += *d.TimeSpentViz
	}

	if d.TimeSpentPractice != nil {
		attempted = true
		spent := *d.TimeSpentPractice

		if d.Completed != nil && *d.Completed && !ap.Completed {
			ap.Completed = true
			ap.CompletedAt = timePtr(now)
			completedNow = true
		}
		if d.AccuracyPractice != nil {
			ap.AccuracyPractice = *d.AccuracyPractice
		}
		ap.TimeSpentPractice += spent

		attempts := 1
		if d.AttemptsPractice != nil && *d.AttemptsPractice > 0 {
			attempts = *d.AttemptsPractice
		}
		ap.AttemptsPractice += attempts

		if d.PointsPractice != nil {
			points = *d.PointsPractice
		}
		ap.PointsPractice += points
		ap.LastAttemptPractice = timePtr(now)

		if spent > 0 && (ap.BestTimePractice == nil || spent < *ap.BestTimePractice) {
			best := spent
			ap.BestTimePractice = &best
		}
		seconds += spent
	}

	p.Stats.Rank.Points += points

	if seconds > 0 {
		minutes := int(math.Round(float64(seconds) / 60))
		if minutes < 1 {
			minutes = 1
		}
		a := Activity{Minutes: minutes, PointsEarned: points, Topic: topicID}
		if attempted {
			a.AlgorithmsAttempted = 1
		}
		if completedNow {
			a.AlgorithmsCompleted = 1
		}
		RecordActivity(p, now, a)
	}

	Recalculate(p)
	if completedNow && tp.Completion == 100 {
		if UnlockNextTopic(p, catalog) {
			Recalculate(p)
		}
	}

	return &UpdateResult{
		Algorithm:       ap,
		TopicStatus:     tp.Status,
		TopicCompletion: tp.Completion,
		CompletedNow:    completedNow,
	}, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
