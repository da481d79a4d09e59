// Package maintenance drives the periodic roster cycle.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
)

type Cycler interface {
	Maintain(ctx context.Context) (roster.CycleReport, error)
}

type Config struct {
	Interval time.Duration
	// RunOnStart runs one cycle immediately instead of waiting a full interval.
	RunOnStart bool
}

// Loop submits one maintenance cycle per tick.
type Loop struct {
	cycler Cycler
	cfg    Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(cycler Cycler, cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Loop{
		cycler:    cycler,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "roster.maintenance",
	})

	defer close(l.stoppedCh)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "maintenance loop started", "interval", l.cfg.Interval)

	if l.cfg.RunOnStart {
		l.RunOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			slog.InfoContext(ctx, "maintenance loop stopping")
			return
		case <-ticker.C:
			l.RunOnce(ctx)
		}
	}
}

func (l *Loop) Stop() {
	close(l.stopCh)
	<-l.stoppedCh
}

// RunOnce performs a single cycle and logs what it did.
func (l *Loop) RunOnce(ctx context.Context) {
	start := time.Now()
	report, err := l.cycler.Maintain(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "maintenance cycle error", "error", err)
		return
	}

	slog.InfoContext(ctx, "maintenance cycle finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"reposted", len(report.Reposted),
		"solicited", len(report.Solicited),
		"escalated", len(report.Escalated),
		"exhausted", len(report.Exhausted),
		"reminded", len(report.Reminded),
		"expired", len(report.Expired),
		"retried", report.Retried,
		"dropped_outreach", report.DroppedOutreach,
		"conflicts", len(report.Conflicts))
}
