package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/models"
)

func TestInitializeLearningPath(t *testing.T) {
	c := testCatalog()
	c = append(c, models.Topic{ID: "graphs", IsGloballyLocked: true, Algorithms: []models.Algorithm{{ID: "bfs"}}})

	p := newUser(c)

	assert.Equal(t, []string{"arrays", "searching", "sorting", "graphs"}, p.LearningPath.TopicOrder)
	assert.Equal(t, "arrays", p.LearningPath.CurrentTopic)
	assert.Equal(t, models.StatusAvailable, p.Topics["arrays"].Status)
	assert.Equal(t, models.StatusLocked, p.Topics["searching"].Status, "unmet prerequisites")
	assert.Equal(t, models.StatusLocked, p.Topics["graphs"].Status, "globally locked")
	assert.Len(t, p.Topics["arrays"].Algorithms, 2)
	assert.Equal(t, models.StatusAvailable, p.Topics["arrays"].Algorithms["traversal"].Status)
}

func TestInitializeLearningPathEmptyCatalog(t *testing.T) {
	p := newUser(Catalog{})
	assert.Empty(t, p.LearningPath.TopicOrder)
	assert.Equal(t, "", p.LearningPath.CurrentTopic)
}

func TestSyncTopicOrder(t *testing.T) {
	p := newUser(testCatalog())
	p.Topics["arrays"].Algorithms["traversal"].Completed = true
	p.LearningPath.CurrentTopic = "searching"

	live := Catalog{
		{ID: "sorting", Algorithms: []models.Algorithm{{ID: "bubbleSort"}, {ID: "mergeSort"}}},
		{ID: "arrays", Algorithms: []models.Algorithm{{ID: "traversal"}, {ID: "insertion"}}},
		{ID: "trees", Algorithms: []models.Algorithm{{ID: "inorder"}}},
	}

	require.True(t, SyncTopicOrder(p, live))

	assert.Equal(t, []string{"sorting", "arrays", "trees"}, p.LearningPath.TopicOrder)
	assert.Equal(t, "sorting", p.LearningPath.CurrentTopic, "removed current topic moves to the first open one")
	require.Contains(t, p.Topics, "trees")
	assert.Equal(t, models.StatusAvailable, p.Topics["trees"].Status)
	assert.Contains(t, p.Topics["sorting"].Algorithms, "mergeSort")
	assert.Contains(t, p.Topics, "searching", "entries are never deleted")
	assert.True(t, p.Topics["arrays"].Algorithms["traversal"].Completed)

	assert.False(t, SyncTopicOrder(p, live), "second sync is a no-op")
}

func TestSyncTopicOrderSkipsCompletedForCurrent(t *testing.T) {
	p := newUser(testCatalog())
	p.LearningPath.CompletedTopics = []string{"arrays"}
	p.LearningPath.CurrentTopic = "gone"

	SyncTopicOrder(p, testCatalog())

	assert.Equal(t, "searching", p.LearningPath.CurrentTopic)
}

func TestAdminOverrides(t *testing.T) {
	c := testCatalog()
	p := newUser(c)
	searching, _ := c.Topic("searching")

	SetTopicStatus(p, searching, false)
	assert.Equal(t, models.StatusAvailable, p.Topics["searching"].Status, "admin unlock skips prerequisites")

	SetTopicStatus(p, searching, true)
	assert.Equal(t, models.StatusLocked, p.Topics["searching"].Status)

	ApplyGlobalTopicLock(p, "arrays")
	assert.Equal(t, models.StatusLocked, p.Topics["arrays"].Status)

	assert.Error(t, SetAlgorithmStatus(p, searching, "nope", true))
	require.NoError(t, SetAlgorithmStatus(p, searching, "binarySearch", true))
	assert.Equal(t, models.StatusLocked, p.Topics["searching"].Algorithms["binarySearch"].Status)
	require.NoError(t, SetAlgorithmStatus(p, searching, "binarySearch", false))
	assert.Equal(t, models.StatusAvailable, p.Topics["searching"].Algorithms["binarySearch"].Status)

	statuses := TopicStatuses(p, c)
	assert.Equal(t, models.StatusLocked, statuses["arrays"])
	assert.Equal(t, models.StatusLocked, statuses["sorting"])
}

func TestSyncTopicOrderRetiresDroppedAlgorithms(t *testing.T) {
	c := testCatalog()
	p := newUser(c)
	p.Topics["arrays"].Algorithms["traversal"].Completed = true

	c[0].Algorithms = []models.Algorithm{{ID: "traversal", Points: 50}}
	require.True(t, SyncTopicOrder(p, c))
	Recalculate(p)

	insertion := p.Topics["arrays"].Algorithms["insertion"]
	require.NotNil(t, insertion, "entries are never deleted")
	assert.True(t, insertion.Retired)
	assert.Equal(t, 100, p.Topics["arrays"].Completion)
	assert.False(t, SyncTopicOrder(p, c), "second sync is a no-op")

	c[0].Algorithms = append(c[0].Algorithms, models.Algorithm{ID: "insertion", Points: 50})
	require.True(t, SyncTopicOrder(p, c))
	Recalculate(p)
	assert.False(t, insertion.Retired, "a restored algorithm counts again")
	assert.Equal(t, 50, p.Topics["arrays"].Completion)
}

// Seeding gives every algorithm an explicit available entry, which a global
// algorithm lock does not override.
func TestSeededEntriesOutrankGlobalAlgorithmLock(t *testing.T) {
	c := testCatalog()
	p := newUser(c)
	arrays, _ := c.Topic("arrays")
	arrays.Algorithms[1].IsGloballyLocked = true

	require.NotNil(t, p.Topics["arrays"].Algorithms["insertion"])
	assert.Equal(t, models.StatusAvailable, p.Topics["arrays"].Algorithms["insertion"].Status)

	res, err := CheckAccess(arrays, "insertion", p.Topics)
	require.NoError(t, err)
	assert.True(t, res.HasAccess)

	res, err = CheckAccess(arrays, "insertion", map[string]*models.TopicProgress{})
	require.NoError(t, err)
	assert.False(t, res.HasAccess, "without an entry the global lock applies")
	assert.Equal(t, AccessLockedAlgorithm, res.Status)
}
