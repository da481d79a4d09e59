package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
)

// PendingMessage is an inbound event delivered to some consumer but never
// acked.
type PendingMessage struct {
	ID         string
	Consumer   string
	Idle       time.Duration
	Deliveries int64
}

// PendingStream lists and takes over stale pending events of the inbound
// consumer group.
type PendingStream interface {
	Stale(ctx context.Context, minIdle time.Duration, count int64) ([]PendingMessage, error)
	// Claim moves the message to this consumer. ok is false when another
	// reclaimer got there first.
	Claim(ctx context.Context, id string, minIdle time.Duration) (msg redis.XMessage, ok bool, err error)
}

type redisPendingStream struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// NewRedisPendingStream reads the pending entries list of group on stream and
// claims entries for consumer.
func NewRedisPendingStream(client *redis.Client, stream, group, consumer string) PendingStream {
	return &redisPendingStream{client: client, stream: stream, group: group, consumer: consumer}
}

func (s *redisPendingStream) Stale(ctx context.Context, minIdle time.Duration, count int64) ([]PendingMessage, error) {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending (stream=%s): %w", s.stream, err)
	}

	out := make([]PendingMessage, len(pending))
	for i, p := range pending {
		out[i] = PendingMessage{ID: p.ID, Consumer: p.Consumer, Idle: p.Idle, Deliveries: p.RetryCount}
	}
	return out, nil
}

func (s *redisPendingStream) Claim(ctx context.Context, id string, minIdle time.Duration) (redis.XMessage, bool, error) {
	msgs, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   s.stream,
		Group:    s.group,
		Consumer: s.consumer,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil {
		return redis.XMessage{}, false, fmt.Errorf("xclaim %s: %w", id, err)
	}
	if len(msgs) == 0 {
		return redis.XMessage{}, false, nil
	}
	return msgs[0], true, nil
}

type ReclaimerConfig struct {
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
	// MaxDeliveries dead-letters an event once it has been delivered this many
	// times without an ack. Zero disables the limit.
	MaxDeliveries int64
}

// ReclaimReport counts what one pass did.
type ReclaimReport struct {
	Stale        int
	Processed    int
	Rejected     int
	DeadLettered int
	Failed       int
}

// Reclaimer replays inbound events whose consumer died between read and ack.
// A signup or response stuck in the pending list would otherwise never reach
// the roster.
type Reclaimer struct {
	pending   PendingStream
	cfg       ReclaimerConfig
	consumer  Consumer
	processor queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(pending PendingStream, cfg ReclaimerConfig, consumer Consumer, processor queue.MessageProcessor) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Reclaimer{
		pending:   pending,
		cfg:       cfg,
		consumer:  consumer,
		processor: processor,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run reclaims on every tick until ctx is done or Stop is called.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "roster.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"max_deliveries", r.cfg.MaxDeliveries)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if _, err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim pass failed", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce claims up to BatchSize stale events and replays them through
// the processor.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (ReclaimReport, error) {
	var report ReclaimReport

	stale, err := r.pending.Stale(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return report, err
	}
	report.Stale = len(stale)
	if len(stale) == 0 {
		return report, nil
	}

	for _, p := range stale {
		if err := r.reclaim(ctx, p, &report); err != nil {
			report.Failed++
			slog.ErrorContext(ctx, "failed to reclaim event",
				"error", err,
				"message_id", p.ID,
				"original_consumer", p.Consumer,
				"deliveries", p.Deliveries)
		}
	}

	slog.InfoContext(ctx, "reclaim pass complete",
		"stale", report.Stale,
		"processed", report.Processed,
		"rejected", report.Rejected,
		"dead_lettered", report.DeadLettered,
		"failed", report.Failed)
	return report, nil
}

func (r *Reclaimer) reclaim(ctx context.Context, p PendingMessage, report *ReclaimReport) error {
	raw, ok, err := r.pending.Claim(ctx, p.ID, r.cfg.MinIdle)
	if err != nil {
		return err
	}
	if !ok {
		slog.DebugContext(ctx, "event already reclaimed elsewhere", "message_id", p.ID)
		return nil
	}

	msg, err := queue.ParseMessage(raw)
	if err != nil {
		// Malformed events can never be applied. Same policy as the worker.
		report.Rejected++
		slog.WarnContext(ctx, "reclaimed event is malformed, acknowledging",
			"error", err, "message_id", raw.ID)
		return r.consumer.Ack(ctx, queue.Message{ID: raw.ID, Raw: raw})
	}

	ctx = logger.WithLogFields(ctx, messageFields(msg))

	if r.cfg.MaxDeliveries > 0 && p.Deliveries >= r.cfg.MaxDeliveries {
		report.DeadLettered++
		reason := fmt.Sprintf("delivered %d times without ack (last consumer %s)", p.Deliveries, p.Consumer)
		slog.WarnContext(ctx, "reclaimed event exceeded delivery limit", "deliveries", p.Deliveries)
		return r.consumer.SendDLQ(ctx, msg, reason)
	}

	slog.InfoContext(ctx, "replaying reclaimed event",
		"original_consumer", p.Consumer,
		"idle", p.Idle,
		"deliveries", p.Deliveries)

	start := time.Now()
	if err := r.processor(ctx, msg); err != nil {
		// Left pending: the next pass claims it again until MaxDeliveries.
		return fmt.Errorf("replaying %s event: %w", msg.EventType, err)
	}
	report.Processed++

	slog.InfoContext(ctx, "reclaimed event applied",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
