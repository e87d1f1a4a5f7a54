// Package scheduler drives the periodic live tasks: signal checks,
// status summaries and learning updates.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Tasks are the callbacks the scheduler drives. Each receives the pair
// it runs for; Status and Learn run once per tick.
type Tasks struct {
	CheckSignals func(ctx context.Context, pair string) error
	Status       func(ctx context.Context) error
	Learn        func(ctx context.Context) error
}

// Scheduler runs the periodic loop until its context is cancelled
type Scheduler struct {
	pairs          []string
	signalInterval time.Duration
	statusInterval time.Duration
	learnInterval  time.Duration
	tasks          Tasks
	logger         zerolog.Logger
}

// New creates a scheduler with the standard cadence: signal checks
// every 30 minutes, status and learning every hour.
func New(pairs []string, tasks Tasks) *Scheduler {
	return &Scheduler{
		pairs:          pairs,
		signalInterval: 30 * time.Minute,
		statusInterval: time.Hour,
		learnInterval:  time.Hour,
		tasks:          tasks,
		logger:         log.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled. An in-flight iteration finishes
// before Run returns; per-pair failures are logged and skipped.
func (s *Scheduler) Run(ctx context.Context) {
	signalTicker := time.NewTicker(s.signalInterval)
	statusTicker := time.NewTicker(s.statusInterval)
	learnTicker := time.NewTicker(s.learnInterval)
	defer signalTicker.Stop()
	defer statusTicker.Stop()
	defer learnTicker.Stop()

	s.logger.Info().
		Strs("pairs", s.pairs).
		Dur("signal_interval", s.signalInterval).
		Msg("Scheduler started")

	// immediate first pass so the service is useful on startup
	s.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return
		case <-signalTicker.C:
			s.checkAll(ctx)
		case <-statusTicker.C:
			if s.tasks.Status != nil {
				if err := s.tasks.Status(ctx); err != nil {
					s.logger.Error().Err(err).Msg("Status task failed")
				}
			}
		case <-learnTicker.C:
			if s.tasks.Learn != nil {
				if err := s.tasks.Learn(ctx); err != nil {
					s.logger.Error().Err(err).Msg("Learning task failed")
				}
			}
		}
	}
}

func (s *Scheduler) checkAll(ctx context.Context) {
	for _, pair := range s.pairs {
		if ctx.Err() != nil {
			return
		}
		if err := s.tasks.CheckSignals(ctx, pair); err != nil {
			s.logger.Error().Err(err).Str("pair", pair).Msg("Signal check failed")
		}
	}
}
