package guard

import (
	"context"
	stderrors "errors"
	"time"
)

// WithDeadline derives a context bounded by d, unless the parent already
// carries an earlier deadline. Timeouts compose as deadlines, never as
// fresh intervals: a nested call cannot extend its caller's budget.
func WithDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	target := time.Now().Add(d)
	if existing, ok := ctx.Deadline(); ok && existing.Before(target) {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, target)
}

// IsDeadline reports whether err is a context deadline expiry.
func IsDeadline(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded)
}
