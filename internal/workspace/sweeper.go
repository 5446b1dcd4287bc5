package workspace

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper evicts idle workspaces on a fixed interval.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	idle     time.Duration
	logger   *slog.Logger
}

func NewSweeper(registry *Registry, interval, idle time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{registry: registry, interval: interval, idle: idle, logger: logger}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.registry.Sweep(s.idle); removed > 0 {
				s.logger.InfoContext(ctx, "evicted idle workspaces",
					"removed", removed,
					"remaining", s.registry.Len(),
				)
			}
		}
	}
}
