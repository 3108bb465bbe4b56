package progress

import (
	"time"

	"learnstack/internal/models"
)

// Activity is one increment to today's study record. Minutes may be zero, in
// which case only the streak is touched (login does this).
type Activity struct {
	Minutes             int
	AlgorithmsAttempted int
	AlgorithmsCompleted int
	PointsEarned        int
	Topic               string
}

// RecordActivity adds a to the record for now's calendar day (UTC), updates
// time totals and the streak, and drops records older than the retention window.
func RecordActivity(p *models.UserProgress, now time.Time, a Activity) {
	today := now.UTC().Format(models.DateLayout)

	var rec *models.DailyActivity
	for i := range p.DailyActivity {
		if p.DailyActivity[i].Date == today {
			rec = &p.DailyActivity[i]
			break
		}
	}
	if rec == nil {
		p.DailyActivity = append(p.DailyActivity, models.DailyActivity{Date: today, TopicsStudied: []string{}})
		rec = &p.DailyActivity[len(p.DailyActivity)-1]
	}

	rec.TimeSpent += a.Minutes
	rec.AlgorithmsAttempted += a.AlgorithmsAttempted
	rec.AlgorithmsCompleted += a.AlgorithmsCompleted
	rec.PointsEarned += a.PointsEarned
	if a.Topic != "" && !contains(rec.TopicsStudied, a.Topic) {
		rec.TopicsStudied = append(rec.TopicsStudied, a.Topic)
	}

	p.Stats.TimeSpent.Today = rec.TimeSpent
	p.Stats.TimeSpent.Total += a.Minutes

	touchStreak(&p.Stats.Streak, today)
	pruneActivity(p, now)
}

// touchStreak applies the day-gap rule: same day keeps the streak, one day
// extends it, anything else restarts at 1.
func touchStreak(s *models.Streak, today string) {
	gap := daysBetween(s.LastActiveDate, today)
	if gap == 0 {
		return
	}
	if gap == 1 {
		s.Current++
	} else {
		s.Current = 1
	}
	s.LastActiveDate = today
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
}

// daysBetween returns the whole-day gap from last to today, or -1 when last
// is empty or unparseable.
func daysBetween(last, today string) int {
	if last == "" {
		return -1
	}
	l, err := time.Parse(models.DateLayout, last)
	if err != nil {
		return -1
	}
	t, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return -1
	}
	return int(t.Sub(l).Hours() / 24)
}

func pruneActivity(p *models.UserProgress, now time.Time) {
	cutoff := now.UTC().AddDate(0, 0, -models.DailyActivityRetentionDays).Format(models.DateLayout)
	kept := p.DailyActivity[:0]
	for _, rec := range p.DailyActivity {
		if rec.Date > cutoff {
			kept = append(kept, rec)
		}
	}
	p.DailyActivity = kept
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
