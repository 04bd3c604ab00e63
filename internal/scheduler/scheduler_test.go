package scheduler

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

// cancelPauser cancels the loop after a fixed number of pauses instead of
// sleeping, so Run terminates deterministically.
type cancelPauser struct {
	remaining int32
	cancel    context.CancelFunc
	delays    []time.Duration
}

func (p *cancelPauser) Pause(_ context.Context, delay time.Duration) {
	p.delays = append(p.delays, delay)
	if atomic.AddInt32(&p.remaining, -1) <= 0 {
		p.cancel()
	}
}

type fakePipeline struct {
	cycles  int32
	flushes int32
}

func (p *fakePipeline) RunCycle(context.Context) error {
	atomic.AddInt32(&p.cycles, 1)
	return nil
}

func (p *fakePipeline) FlushErrors(context.Context) {
	atomic.AddInt32(&p.flushes, 1)
}

func TestSchedulerRunsCyclesDuringActiveHours(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	pipe := &fakePipeline{}
	pauser := &cancelPauser{remaining: 3, cancel: cancel}
	clk := fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}

	s := New(pipe, clk, pauser, rand.New(rand.NewSource(1)), Config{
		StartHour:     8,
		EndHour:       1,
		CycleDelayMin: time.Minute,
		CycleDelayMax: 2 * time.Minute,
	}, zap.NewNop())
	s.Run(ctx)

	if got := atomic.LoadInt32(&pipe.cycles); got != 3 {
		t.Fatalf("expected 3 cycles before cancellation, got %d", got)
	}
	if got := atomic.LoadInt32(&pipe.flushes); got != 3 {
		t.Fatalf("expected a flush per iteration, got %d", got)
	}
	for _, d := range pauser.delays {
		if d < time.Minute || d > 2*time.Minute {
			t.Fatalf("cycle delay %v outside configured bounds", d)
		}
	}
}

func TestSchedulerSleepsUntilActiveWindow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	pipe := &fakePipeline{}
	pauser := &cancelPauser{remaining: 1, cancel: cancel}
	// 03:30 with the default window is quiet.
	clk := fakeClock{now: time.Date(2026, 8, 1, 3, 30, 0, 0, time.UTC)}

	s := New(pipe, clk, pauser, rand.New(rand.NewSource(1)), Config{
		StartHour:     8,
		EndHour:       1,
		WakeOffsetMin: 10 * time.Minute,
		WakeOffsetMax: 50 * time.Minute,
	}, zap.NewNop())
	s.Run(ctx)

	if got := atomic.LoadInt32(&pipe.cycles); got != 0 {
		t.Fatalf("no cycles may run during quiet hours, got %d", got)
	}
	if len(pauser.delays) != 1 {
		t.Fatalf("expected one sleep, got %v", pauser.delays)
	}
	// 08:00 target is 4h30m away, plus the random wake offset.
	min := 4*time.Hour + 40*time.Minute
	max := 5*time.Hour + 20*time.Minute
	if d := pauser.delays[0]; d < min || d > max {
		t.Fatalf("quiet sleep %v outside [%v, %v]", d, min, max)
	}
}

func TestSchedulerZeroWindowIsAlwaysActive(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	pipe := &fakePipeline{}
	pauser := &cancelPauser{remaining: 1, cancel: cancel}
	// 03:00 would be quiet under the default window.
	clk := fakeClock{now: time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)}

	s := New(pipe, clk, pauser, rand.New(rand.NewSource(1)), Config{
		StartHour: 0,
		EndHour:   0,
	}, zap.NewNop())
	s.Run(ctx)

	if got := atomic.LoadInt32(&pipe.cycles); got != 1 {
		t.Fatalf("an explicit zero window must stay active around the clock, got %d cycles", got)
	}
}

func TestSchedulerStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipe := &fakePipeline{}
	s := New(pipe, fakeClock{now: time.Now()}, &cancelPauser{remaining: 1, cancel: func() {}},
		rand.New(rand.NewSource(1)), Config{}, zap.NewNop())
	s.Run(ctx)

	if got := atomic.LoadInt32(&pipe.cycles); got != 0 {
		t.Fatalf("canceled context must stop the loop before any cycle, got %d", got)
	}
}

func TestUntilNextActivePastTargetIsImmediate(t *testing.T) {
	t.Parallel()

	s := New(&fakePipeline{}, fakeClock{}, nil, rand.New(rand.NewSource(1)), Config{
		StartHour:     8,
		EndHour:       1,
		WakeOffsetMin: time.Minute,
		WakeOffsetMax: time.Minute,
	}, zap.NewNop())

	// 23:00 is past today's wake target; the loop should wake immediately and
	// let ClassifyHour route it.
	now := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	if d := s.untilNextActive(now); d != 0 {
		t.Fatalf("expected immediate wake, got %v", d)
	}
}
