// Package cache holds short-lived snapshots shared between requests: the
// catalog, achievement templates and generated leaderboards. Values are
// stored as JSON.
package cache

import (
	"context"
	"time"
)

// Store is a JSON value cache with per-key expiry
type Store interface {
	// Get decodes the value at key into dest and reports whether it was present
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const (
	KeyCatalog           = "learnstack:catalog"
	KeyAchievements      = "learnstack:achievements"
	KeyLeaderboardPrefix = "learnstack:leaderboard:"
)
