package app

import (
	"context"
	"time"

	"degree_plan_review/internal/domain/review"
)

const defaultTxTimeout = 10 * time.Second

// runInTx bounds fn's transaction with timeout.
func runInTx(ctx context.Context, repo review.Repository, timeout time.Duration, fn func(ctx context.Context, tx review.Store) error) error {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return repo.WithinTx(ctx, fn)
}

func int64Ptr(valid bool, v int64) *int64 {
	if !valid {
		return nil
	}
	return &v
}
