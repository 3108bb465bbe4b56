package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/apperr"
	"learnstack/internal/models"
)

func TestDoubtThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mentor := f.newUser(t, "mentor", models.RoleMentor)
	alice := f.newUser(t, "alice", models.RoleUser)
	bob := f.newUser(t, "bob", models.RoleUser)

	d, err := f.doubts.Ask(ctx, alice, "Sorting", "Why is bubble sort slow?", "It takes forever on big inputs")
	require.NoError(t, err)
	assert.Equal(t, models.DoubtOpen, d.Status)
	require.Len(t, d.Messages, 1)

	_, err = f.doubts.Get(ctx, bob, d.ID)
	assert.True(t, apperr.Is(err, apperr.AccessDenied))

	queue, err := f.doubts.OpenQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	thread, err := f.doubts.Reply(ctx, mentor, d.ID, "It is quadratic")
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, models.RoleMentor, thread.Messages[1].SenderRole)
	require.NotNil(t, thread.LastReplierID)
	assert.Equal(t, mentor.ID, *thread.LastReplierID)

	_, err = f.doubts.Close(ctx, mentor, d.ID)
	assert.True(t, apperr.Is(err, apperr.AccessDenied), "only the author closes")

	closed, err := f.doubts.Close(ctx, alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DoubtFinished, closed.Status)
	require.NotNil(t, closed.ExpireAt)

	mine, err := f.doubts.Mine(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.DoubtFinished, mine[0].Status)
}

func TestAskValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.newUser(t, "alice", "")

	_, err := f.doubts.Ask(context.Background(), alice, "Cooking", "title", "message")
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, err = f.doubts.Ask(context.Background(), alice, "Sorting", " ", "message")
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, err = f.doubts.Ask(context.Background(), alice, "Sorting", "title", "")
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestPurgeExpiredDoubts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.newUser(t, "alice", "")

	d, err := f.doubts.Ask(ctx, alice, "Trees", "Rotations", "How do AVL rotations work?")
	require.NoError(t, err)
	_, err = f.doubts.Close(ctx, alice, d.ID)
	require.NoError(t, err)

	n, err := f.doubts.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.doubts.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	n, err = f.doubts.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.doubts.Get(ctx, alice, d.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
