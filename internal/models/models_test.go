package models

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(5 * time.Minute)
	past := now.Add(-time.Second)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "missing expiry", expiresAt: nil, want: true},
		{name: "future expiration", expiresAt: &future, want: false},
		{name: "just expired", expiresAt: &past, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OTPExpired(tt.expiresAt, now))
		})
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleMentor.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("parent").Valid())
}

func TestUserCanMentor(t *testing.T) {
	assert.False(t, (&User{Role: RoleUser}).CanMentor())
	assert.True(t, (&User{Role: RoleMentor}).CanMentor())
	assert.True(t, (&User{Role: RoleAdmin}).CanMentor())
}

func TestStringListRoundTrip(t *testing.T) {
	v, err := StringList{"arrays", "searching"}.Value()
	require.NoError(t, err)
	assert.Equal(t, driver.Value(`["arrays","searching"]`), v)

	var got StringList
	require.NoError(t, got.Scan([]byte(`["arrays","searching"]`)))
	assert.Equal(t, StringList{"arrays", "searching"}, got)

	require.NoError(t, got.Scan(nil))
	assert.Empty(t, got)

	assert.Error(t, got.Scan(42))
}

func TestNilStringListStoresEmptyArray(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, driver.Value("[]"), v)
}

func TestEnsureTopicAndAlgorithm(t *testing.T) {
	p := &UserProgress{}

	tp := p.EnsureTopic("sorting", StatusLocked)
	assert.Equal(t, StatusLocked, tp.Status)
	assert.Same(t, tp, p.EnsureTopic("sorting", StatusAvailable), "existing entry is returned unchanged")

	ap := tp.EnsureAlgorithm("bubbleSort")
	assert.Equal(t, StatusAvailable, ap.Status)
	assert.Nil(t, ap.BestTimePractice)
	assert.Same(t, ap, tp.EnsureAlgorithm("bubbleSort"))
}

func TestLearningPathCompletedSet(t *testing.T) {
	lp := LearningPath{}
	assert.True(t, lp.AddCompleted("arrays"))
	assert.False(t, lp.AddCompleted("arrays"))
	assert.True(t, lp.HasCompleted("arrays"))
	assert.Equal(t, []string{"arrays"}, lp.CompletedTopics)
}

func TestTopicFindAlgorithm(t *testing.T) {
	topic := Topic{ID: "searching", Algorithms: []Algorithm{{ID: "linearSearch"}, {ID: "binarySearch"}}}

	algo, ok := topic.FindAlgorithm("binarySearch")
	require.True(t, ok)
	assert.Equal(t, "binarySearch", algo.ID)

	_, ok = topic.FindAlgorithm("jumpSearch")
	assert.False(t, ok)
}

func TestAttemptTerminal(t *testing.T) {
	assert.False(t, (&DailyProblemAttempt{RunCount: 1}).Terminal())
	assert.True(t, (&DailyProblemAttempt{IsLocked: true}).Terminal())
	assert.True(t, (&DailyProblemAttempt{Passed: true}).Terminal())
}

func TestLeaderboardStale(t *testing.T) {
	now := time.Now()
	assert.True(t, (&Leaderboard{}).Stale(now, 15*time.Minute))
	assert.False(t, (&Leaderboard{GeneratedAt: now.Add(-time.Minute)}).Stale(now, 15*time.Minute))
	assert.True(t, (&Leaderboard{GeneratedAt: now.Add(-16 * time.Minute)}).Stale(now, 15*time.Minute))
}

func TestValidSubject(t *testing.T) {
	assert.True(t, ValidSubject("Sorting"))
	assert.False(t, ValidSubject("Cooking"))
}
