package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Lumnic12/attend/internal/attend/clock"
	"github.com/Lumnic12/attend/internal/attend/store"
)

// LogPruner periodically deletes attendance records older than a
// retention period. A retention of 0 disables pruning entirely.
type LogPruner struct {
	store     store.AttendancePruner
	retention time.Duration
	interval  time.Duration
	clock     clock.Clock
	logger    *slog.Logger

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

type PrunerConfig struct {
	// RetentionDays is how many days of attendance history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int

	Clock clock.Clock
}

// NewLogPruner creates a pruner but does not start it.
func NewLogPruner(s store.AttendancePruner, cfg PrunerConfig, logger *slog.Logger) *LogPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		clock:     cfg.Clock,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs one prune immediately, then repeats on the interval until
// ctx is cancelled or Stop is called.
func (p *LogPruner) Start(ctx context.Context) {
	p.once.Do(func() {
		if p.retention <= 0 {
			p.logger.Info("attendance log pruner disabled", "retention_days", 0)
			close(p.done)
			return
		}
		ctx, p.cancel = context.WithCancel(ctx)
		go p.loop(ctx)
		p.logger.Info("attendance log pruner started", "retention", p.retention, "interval", p.interval)
	})
}

// Stop signals the pruner to exit and waits for it. Calling Stop on a
// pruner that was never started is a no-op.
func (p *LogPruner) Stop() {
	started := true
	p.once.Do(func() {
		started = false
		close(p.done)
	})
	if started && p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *LogPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes records older than the retention period and returns
// how many were removed.
func (p *LogPruner) PruneOnce(ctx context.Context) int64 {
	if p.retention <= 0 {
		return 0
	}
	cutoff := p.clock.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("attendance log prune failed", "err", err)
		return 0
	}
	if deleted > 0 {
		p.logger.Info("attendance log pruned", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted
}
