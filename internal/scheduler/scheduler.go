// Package scheduler drives the scanner on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scanner is the periodic work the scheduler triggers.
type Scanner interface {
	Scan(ctx context.Context) error
}

// Scheduler runs one scan immediately and then one per interval. Scans
// never overlap: a tick that fires while the previous scan is still
// running is skipped.
type Scheduler struct {
	scanner  Scanner
	logger   *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a new scheduler.
func New(scanner Scanner, logger *zap.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		logger:   logger,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled. Cancellation stops new scans; the
// in-flight scan observes the same context and winds down on its next
// suspension point.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))

	s.scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scheduler) scan(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Skipping scan, previous scan still running")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := s.scanner.Scan(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Scan failed", zap.Error(err))
	}
}
