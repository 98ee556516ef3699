package membership

import (
	"context"
	"log/slog"
	"time"

	"github.com/patronhq/creatorkit/pkg/logger"
)

// SweeperConfig tunes the pending-checkout sweep.
type SweeperConfig struct {
	Interval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	Retention time.Duration `env:"PENDING_RETENTION" envDefault:"24h"`
}

// Sweeper periodically deletes pending subscription rows whose checkout
// session was abandoned. Completed checkouts are immune: their rows left
// pending before the retention window closes.
type Sweeper struct {
	cfg  SweeperConfig
	subs *SubscriptionStore
	log  *slog.Logger
	now  func() time.Time
}

// NewSweeper creates a sweeper over the subscription store.
func NewSweeper(cfg SweeperConfig, subs *SubscriptionStore, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	return &Sweeper{cfg: cfg, subs: subs, log: log, now: time.Now}
}

// Run sweeps on the configured interval until the context is cancelled.
// Suitable for errgroup.Go.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.log.ErrorContext(ctx, "pending sweep failed", logger.Error(err))
			}
		}
	}
}

// SweepOnce runs a single sweep pass.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.Retention)
	swept, err := s.subs.DeleteAbandonedPending(ctx, cutoff)
	if err != nil {
		return err
	}
	if swept > 0 {
		s.log.InfoContext(ctx, "swept abandoned pending checkouts",
			slog.Int64("count", swept))
	}
	return nil
}
