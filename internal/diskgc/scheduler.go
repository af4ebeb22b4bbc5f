package diskgc

import (
	"context"
	"time"

	"github.com/openso2/camctl/internal/logger"
)

// Scheduler manages periodic collection runs.
type Scheduler struct {
	runner *Runner
	config SchedulerConfig
	logger *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
}

// SchedulerConfig holds configuration for the collection scheduler.
type SchedulerConfig struct {
	Enabled         bool // Enable periodic collection
	IntervalMinutes int  // Interval between collection runs
}

// NewScheduler creates a new collection scheduler.
func NewScheduler(runner *Runner, config SchedulerConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		config: config,
		logger: log,
	}
}

// Start begins the periodic collection scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("disk collection scheduler disabled")
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	interval := time.Duration(s.config.IntervalMinutes) * time.Minute
	s.ticker = time.NewTicker(interval)

	s.logger.Info("disk collection scheduler started",
		logger.Field{Key: "interval_minutes", Value: s.config.IntervalMinutes})

	go s.runCollection()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runCollection()
			case <-s.ctx.Done():
				s.ticker.Stop()
				s.logger.Info("disk collection scheduler stopped")
				return
			}
		}
	}()

	return nil
}

// Stop stops the collection scheduler.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// runCollection executes a single collection run.
func (s *Scheduler) runCollection() {
	if s.ctx.Err() != nil {
		return
	}

	stats, err := s.runner.Run()
	if err != nil {
		s.logger.ErrorCtx(s.ctx, "disk collection failed", err)
		return
	}

	if stats.DaysDeleted > 0 {
		s.logger.InfoCtx(s.ctx, "disk collection completed",
			logger.Field{Key: "days_deleted", Value: stats.DaysDeleted},
			logger.Field{Key: "mb_freed", Value: stats.MBFreed},
			logger.Field{Key: "usage_mb", Value: stats.UsageMBAfter},
			logger.Field{Key: "duration_ms", Value: stats.Duration.Milliseconds()})
	} else {
		s.logger.Debug("disk collection completed: usage under threshold",
			logger.Field{Key: "usage_mb", Value: stats.UsageMBAfter})
	}
}

// Trigger runs collection immediately.
func (s *Scheduler) Trigger() (Stats, error) {
	s.logger.Info("manual disk collection triggered")
	return s.runner.Run()
}
