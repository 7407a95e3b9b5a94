// Package sweeper periodically drops expired presence and typing records.
// Reads already ignore expired entries; the sweep only bounds storage.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/fkhayef/forumcore/internal/clock"
)

// Target is a TTL store that can drop its expired entries
type Target interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper runs Sweep on every target once per interval
type Sweeper struct {
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
	targets  map[string]Target
}

// New creates a sweeper. Targets are keyed by a name used in logs.
func New(clk clock.Clock, interval time.Duration, logger *slog.Logger, targets map[string]Target) *Sweeper {
	return &Sweeper{clock: clk, interval: interval, logger: logger, targets: targets}
}

// Run blocks until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce sweeps every target and returns the number of records removed.
// A failing target is logged and does not stop the others.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	total := 0
	for name, target := range s.targets {
		removed, err := target.Sweep(ctx)
		if err != nil {
			s.logger.Warn("sweep failed", "target", name, "error", err)
			continue
		}
		if removed > 0 {
			s.logger.Debug("swept expired records", "target", name, "removed", removed)
		}
		total += removed
	}
	return total
}
