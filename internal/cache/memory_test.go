package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/logger"
)

type snapshot struct {
	Names []string `json:"names"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var got snapshot
	ok, err := s.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", snapshot{Names: []string{"arrays"}}, time.Minute))
	ok, err = s.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"arrays"}, got.Names)

	require.NoError(t, s.Delete(ctx, "k", "missing"))
	ok, err = s.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, s.Set(ctx, "forever", 2, 0))

	now = now.Add(2 * time.Minute)

	var v int
	ok, err := s.Get(ctx, "short", &v)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Get(ctx, "forever", &v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestNewWithoutAddressUsesMemory(t *testing.T) {
	s, err := New(logger.Nop(), "", "", 0)
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
	assert.NoError(t, s.Close())
}
