package service

import (
	"context"

	"learnstack/internal/apperr"
)

// maxSaveAttempts bounds the read-modify-write loop on a stale aggregate
const maxSaveAttempts = 3

// withRetry reruns fn while it fails with a Conflict. fn must reload the
// aggregate on each call.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < maxSaveAttempts; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = fn()
		if !apperr.Is(err, apperr.Conflict) {
			return err
		}
	}
	return err
}
