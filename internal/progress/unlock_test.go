package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"learnstack/internal/models"
)

func twoTopicCatalog(prereqs ...string) Catalog {
	return Catalog{
		{ID: "A", Order: 1, Algorithms: []models.Algorithm{{ID: "a1"}}},
		{ID: "B", Order: 2, Prerequisites: prereqs, Algorithms: []models.Algorithm{{ID: "b1"}}},
	}
}

func twoTopicProgress(aCompletion int, aCompleted bool) *models.UserProgress {
	p := models.NewUserProgress(1)
	p.Topics["A"] = &models.TopicProgress{Status: models.StatusCompleted, Completion: aCompletion}
	p.Topics["B"] = &models.TopicProgress{Status: models.StatusLocked}
	p.LearningPath.TopicOrder = []string{"A", "B"}
	p.LearningPath.CurrentTopic = "A"
	if aCompleted {
		p.LearningPath.CompletedTopics = []string{"A"}
	}
	return p
}

func TestUnlockNextTopicAdvances(t *testing.T) {
	p := twoTopicProgress(100, true)

	assert.True(t, UnlockNextTopic(p, twoTopicCatalog("A")))

	assert.Equal(t, models.StatusAvailable, p.Topics["B"].Status)
	assert.Equal(t, "B", p.LearningPath.CurrentTopic)
}

// A recorded as completed but only at 90% must not satisfy B's prerequisite.
func TestUnlockNextTopicRequiresFullCompletion(t *testing.T) {
	p := twoTopicProgress(90, true)

	assert.False(t, UnlockNextTopic(p, twoTopicCatalog("A")))

	assert.Equal(t, models.StatusLocked, p.Topics["B"].Status)
	assert.Equal(t, "A", p.LearningPath.CurrentTopic)
}

func TestUnlockNextTopicRequiresCompletedSetMembership(t *testing.T) {
	p := twoTopicProgress(100, false)

	UnlockNextTopic(p, twoTopicCatalog("A"))

	assert.Equal(t, models.StatusLocked, p.Topics["B"].Status)
	assert.Equal(t, "A", p.LearningPath.CurrentTopic, "no skipping ahead while next is locked")
}

func TestUnlockNextTopicWithoutPrerequisites(t *testing.T) {
	p := twoTopicProgress(40, false)

	assert.True(t, UnlockNextTopic(p, twoTopicCatalog()))

	assert.Equal(t, models.StatusAvailable, p.Topics["B"].Status)
	assert.Equal(t, "A", p.LearningPath.CurrentTopic, "current only advances at 100%")
}

func TestUnlockNextTopicSingleStep(t *testing.T) {
	c := Catalog{
		{ID: "A", Algorithms: []models.Algorithm{{ID: "a1"}}},
		{ID: "B", Prerequisites: models.StringList{"A"}, Algorithms: []models.Algorithm{{ID: "b1"}}},
		{ID: "C", Prerequisites: models.StringList{"A"}, Algorithms: []models.Algorithm{{ID: "c1"}}},
	}
	p := twoTopicProgress(100, true)
	p.Topics["C"] = &models.TopicProgress{Status: models.StatusLocked}
	p.LearningPath.TopicOrder = []string{"A", "B", "C"}

	UnlockNextTopic(p, c)

	assert.Equal(t, models.StatusAvailable, p.Topics["B"].Status)
	assert.Equal(t, models.StatusLocked, p.Topics["C"].Status)
}

func TestUnlockNextTopicNoOps(t *testing.T) {
	c := twoTopicCatalog()

	atEnd := twoTopicProgress(100, true)
	atEnd.LearningPath.CurrentTopic = "B"
	assert.False(t, UnlockNextTopic(atEnd, c))

	unknown := twoTopicProgress(100, true)
	unknown.LearningPath.CurrentTopic = "Z"
	assert.False(t, UnlockNextTopic(unknown, c))

	empty := models.NewUserProgress(1)
	assert.False(t, UnlockNextTopic(empty, c))
}
