// Package scheduler drives periodic watchlist scans for every known client.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scanner is the subset of the engine the scheduler needs.
type Scanner interface {
	ScanAllClients(ctx context.Context) error
}

// Scheduler invokes a full scan on a fixed interval. Per-run errors are
// logged and the loop continues; only context cancellation stops it.
type Scheduler struct {
	scanner  Scanner
	interval time.Duration
	logger   *zap.Logger
}

// New creates a scheduler.
func New(scanner Scanner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{scanner: scanner, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. The first scan fires after one full
// interval, not at startup.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := s.scanner.ScanAllClients(ctx); err != nil {
				s.logger.Warn("scheduled scan finished with errors",
					zap.Duration("elapsed", time.Since(start)), zap.Error(err))
				continue
			}
			s.logger.Info("scheduled scan finished", zap.Duration("elapsed", time.Since(start)))
		}
	}
}
