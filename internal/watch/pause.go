package watch

import (
	"context"
	"math/rand"
	"time"
)

// TimerPauser implements Pauser with a context-aware timer.
type TimerPauser struct{}

// Pause blocks for delay or until ctx finishes, whichever comes first.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// RandomDelay returns a uniformly random duration in [minD, maxD].
func RandomDelay(rng *rand.Rand, minD, maxD time.Duration) time.Duration {
	if maxD <= minD {
		return minD
	}
	return minD + time.Duration(rng.Int63n(int64(maxD-minD)+1))
}
