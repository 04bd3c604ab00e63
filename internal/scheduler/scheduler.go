// Package scheduler drives repeated pipeline cycles inside the configured
// active-hours window.
package scheduler

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"rentalwatch/internal/watch"
)

// Pipeline is one full crawl-classify-notify pass plus the error-digest
// flush. RunCycle must contain its own per-stage error isolation; the
// scheduler only guarantees the loop survives whatever RunCycle returns.
type Pipeline interface {
	RunCycle(ctx context.Context) error
	FlushErrors(ctx context.Context)
}

// Config controls loop timing.
type Config struct {
	// StartHour and EndHour bound the quiet window (see ClassifyHour).
	StartHour int
	EndHour   int
	// CycleDelayMin/Max bound the randomized pause between active cycles.
	CycleDelayMin time.Duration
	CycleDelayMax time.Duration
	// WakeOffsetMin/Max bound the random offset added to the wake time so
	// multiple deployments do not all hit the sites at the stroke of the
	// start hour.
	WakeOffsetMin time.Duration
	WakeOffsetMax time.Duration
}

// applyDefaults fills the delay bands only. Hours are taken as-is: they are
// defaulted by the config layer, and StartHour==EndHour==0 is a valid
// always-active window.
func (c *Config) applyDefaults() {
	if c.CycleDelayMin <= 0 {
		c.CycleDelayMin = 3 * time.Minute
	}
	if c.CycleDelayMax < c.CycleDelayMin {
		c.CycleDelayMax = 10 * time.Minute
	}
	if c.WakeOffsetMin <= 0 {
		c.WakeOffsetMin = 10 * time.Minute
	}
	if c.WakeOffsetMax < c.WakeOffsetMin {
		c.WakeOffsetMax = 50 * time.Minute
	}
}

// Scheduler owns the single background loop; at most one cycle is ever in
// flight.
type Scheduler struct {
	pipeline Pipeline
	clock    watch.Clock
	pauser   watch.Pauser
	rng      *rand.Rand
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Scheduler.
func New(pipeline Pipeline, clock watch.Clock, pauser watch.Pauser, rng *rand.Rand, cfg Config, logger *zap.Logger) *Scheduler {
	cfg.applyDefaults()
	if pauser == nil {
		pauser = watch.TimerPauser{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		pipeline: pipeline,
		clock:    clock,
		pauser:   pauser,
		rng:      rng,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled. Cancellation is cooperative and checked
// once per iteration: an in-flight cycle always runs to completion, which is
// why the cycle gets a context detached from the shutdown signal.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("background loop starting",
		zap.Int("start_hour", s.cfg.StartHour),
		zap.Int("end_hour", s.cfg.EndHour),
	)

	for {
		if ctx.Err() != nil {
			s.logger.Info("background loop stopping")
			return
		}

		now := s.clock.Now()
		if ClassifyHour(now.Hour(), s.cfg.StartHour, s.cfg.EndHour) == Active {
			s.logger.Info("running scheduled cycle")
			if err := s.pipeline.RunCycle(context.WithoutCancel(ctx)); err != nil {
				s.logger.Error("error during scheduled cycle", zap.Error(err))
			} else {
				s.logger.Info("cycle completed")
			}

			delay := watch.RandomDelay(s.rng, s.cfg.CycleDelayMin, s.cfg.CycleDelayMax)
			s.logger.Info("waiting before next cycle", zap.Duration("delay", delay))
			s.pauser.Pause(ctx, delay)
		} else {
			delay := s.untilNextActive(now)
			s.logger.Info("outside active hours, sleeping", zap.Duration("delay", delay))
			s.pauser.Pause(ctx, delay)
		}

		s.pipeline.FlushErrors(context.WithoutCancel(ctx))
	}
}

// untilNextActive computes the sleep until the start hour plus a random
// offset. A target already in the past collapses to an immediate wake.
func (s *Scheduler) untilNextActive(now time.Time) time.Duration {
	offset := watch.RandomDelay(s.rng, s.cfg.WakeOffsetMin, s.cfg.WakeOffsetMax)
	target := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.StartHour, 0, 0, 0, now.Location()).Add(offset)
	if diff := target.Sub(now); diff > 0 {
		return diff
	}
	return 0
}
