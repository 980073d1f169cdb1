package mongo

import (
	"context"
	"time"
)

// OpTimeout is the default timeout for MongoDB operations
const OpTimeout = 5 * time.Second

// WithRepoTimeout returns ctx unchanged when it is already ≤ d away from
// expiring; otherwise it wraps ctx in context.WithTimeout(ctx, d).
// The returned cancel is always safe to defer: when no new context is
// created a no-op stub is returned, so callers never need to branch.
func WithRepoTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= d {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func repoCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return WithRepoTimeout(parent, OpTimeout)
}
