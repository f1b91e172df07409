package gateway

import (
	"context"
	"time"
)

// callWithContext runs fn, which cannot observe ctx itself, and returns early
// when ctx is done. fn keeps running in the background in that case.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// retryRead repeats a read-only call up to retries extra times with a linear
// backoff. Writes (initiation, refund) must never go through here.
func retryRead[T any](ctx context.Context, retries int, fn func(context.Context) (T, error)) (T, error) {
	var (
		val T
		err error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return val, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		val, err = fn(ctx)
		if err == nil {
			return val, nil
		}
	}
	return val, err
}
