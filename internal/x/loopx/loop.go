package loopx

import (
	"context"
	"math/rand"
	"time"
)

// RunJittered runs fn immediately (if immediate=true) and then re-arms itself
// after a fresh random delay drawn from [min, max] before every run.
// The delay is recomputed each cycle so runs never settle into a fixed period.
// It returns when ctx is done.
func RunJittered(ctx context.Context, min, max time.Duration, immediate bool, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		<-ctx.Done()
		return
	}
	if min <= 0 {
		min = time.Minute
	}
	if max < min {
		max = min
	}

	if immediate {
		fn(ctx)
	}

	timer := time.NewTimer(Between(min, max))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			fn(ctx)
			timer.Reset(Between(min, max))
		}
	}
}

// Between returns a random duration in [min, max].
func Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// SleepWithContext sleeps for d unless ctx ends first. It reports whether
// the full duration elapsed.
func SleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
