package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/apperr"
	"learnstack/internal/models"
	"learnstack/internal/repository"
)

func TestActiveTopicsServedFromSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	topics, err := f.catalog.ActiveTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, []string{"arrays", "searching", "sorting"}, []string{topics[0].ID, topics[1].ID, topics[2].ID})

	// a write behind the service's back is not visible until the snapshot goes
	require.NoError(t, repository.NewTopicRepository(f.db).SetTopicGlobalLock(ctx, "sorting", true))
	topics, err = f.catalog.ActiveTopics(ctx)
	require.NoError(t, err)
	assert.False(t, topics[2].IsGloballyLocked)

	require.NoError(t, f.catalog.SetTopicGlobalLock(ctx, "sorting", true))
	topics, err = f.catalog.ActiveTopics(ctx)
	require.NoError(t, err)
	assert.True(t, topics[2].IsGloballyLocked)
}

func TestCreateTopicValidatesPrerequisites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.catalog.CreateTopic(ctx, &models.Topic{
		ID: "graphs", Name: "Graphs", Order: 4, IsActive: true,
		Prerequisites: models.StringList{"trees"},
		Algorithms:    []models.Algorithm{{ID: "bfs", Name: "BFS", Points: 10}},
	})
	assert.True(t, apperr.Is(err, apperr.Validation))

	err = f.catalog.CreateTopic(ctx, &models.Topic{
		ID: "graphs", Name: "Graphs", Order: 4, IsActive: true,
		Prerequisites: models.StringList{"sorting"},
		Algorithms:    []models.Algorithm{{ID: "bfs", Name: "BFS", Points: 10}},
	})
	require.NoError(t, err)

	topics, err := f.catalog.ActiveTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 4)
	assert.Equal(t, "graphs", topics[3].ID)

	err = f.catalog.CreateTopic(ctx, &models.Topic{ID: "graphs", Name: "Again", Order: 5})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestUpdateTopicReplacesAlgorithms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	topic, err := f.catalog.GetTopic(ctx, "sorting")
	require.NoError(t, err)
	topic.Algorithms = append(topic.Algorithms, models.Algorithm{ID: "mergeSort", Name: "Merge Sort", Points: 30})
	require.NoError(t, f.catalog.UpdateTopic(ctx, topic))

	got, err := f.catalog.GetTopic(ctx, "sorting")
	require.NoError(t, err)
	require.Len(t, got.Algorithms, 2)
	assert.Equal(t, "mergeSort", got.Algorithms[1].ID)

	err = f.catalog.UpdateTopic(ctx, &models.Topic{ID: "missing", Name: "Missing"})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDeleteTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.catalog.DeleteTopic(ctx, "arrays")
	assert.True(t, apperr.Is(err, apperr.Validation), "arrays gates searching")

	require.NoError(t, f.catalog.DeleteTopic(ctx, "sorting"))
	_, err = f.catalog.GetTopic(ctx, "sorting")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	err = f.catalog.DeleteTopic(ctx, "sorting")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestSetAlgorithmGlobalLockUnknownAlgorithm(t *testing.T) {
	f := newFixture(t)
	err := f.catalog.SetAlgorithmGlobalLock(context.Background(), "arrays", "nope", true)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.catalog.Export(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Topics, 3)

	n, err := f.catalog.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
