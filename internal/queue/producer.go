package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Producer writes inbound events to the stream the worker consumes. The HTTP
// ingest endpoint uses it so that gateways without Redis access share the same
// path as those that XADD directly.
type Producer interface {
	Enqueue(ctx context.Context, msg Message) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg Message) error {
	if !msg.EventType.Valid() {
		return fmt.Errorf("enqueue event: unknown event_type %q", msg.EventType)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: MessageValues(msg, msg.Attempt),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued inbound event", "event_type", msg.EventType, "stream", p.stream)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
