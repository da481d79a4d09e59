package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
)

type ConsumerConfig struct {
	Stream       string        // Redis stream name
	Group        string        // Redis consumer group name
	Consumer     string        // Redis consumer name
	DLQStream    string        // Dead letter queue stream for failed messages
	BatchSize    int64         // Number of messages to process per batch
	Block        time.Duration // How long to block/poll for new messages
	MaxAttempts  int           // Maximum retry attempts before moving to DLQ
	RequeueDelay time.Duration // Delay before retrying failed messages
}

// Message is one parsed inbound event.
type Message struct {
	ID            string
	EventType     EventType
	ParticipantID *int64
	RunID         *int64
	Handle        string
	Accept        bool
	Tier          string
	Payload       string
	Attempt       int
	TraceID       string
	Raw           redis.XMessage
}

// MessageProcessor processes a queue message.
type MessageProcessor func(ctx context.Context, msg Message) error

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(context.Background()); err != nil { //nolint:contextcheck
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) Config() ConsumerConfig {
	return c.cfg
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Start from "0" so events written while the roster was down are not lost.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "roster.queue.consumer",
	})

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		// ">" reads only new messages; unacked ones are picked up by the reclaimer.
		Streams: []string{c.cfg.Stream, ">"},
		Count:   c.cfg.BatchSize,
		Block:   c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			parsed, parseErr := ParseMessage(msg)
			if parseErr != nil {
				slog.ErrorContext(ctx, "failed to parse message",
					"error", parseErr,
					"raw_message_id", msg.ID,
					"stream", c.cfg.Stream)
				_ = c.Ack(ctx, Message{ID: msg.ID, Raw: msg})
				continue
			}
			messages = append(messages, parsed)
		}
	}

	if len(messages) > 0 {
		slog.DebugContext(ctx, "read messages from stream",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}

	slog.DebugContext(ctx, "message acknowledged", "stream", c.cfg.Stream)
	return nil
}

func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking failed message for requeue: %w", err)
	}

	values := MessageValues(msg, msg.Attempt+1)
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if c.cfg.RequeueDelay > 0 {
		time.Sleep(c.cfg.RequeueDelay)
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	slog.InfoContext(ctx, "message requeued for retry",
		"next_attempt", msg.Attempt+1,
		"reason", errMsg)
	return nil
}

func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking failed message for dlq: %w", err)
	}

	values := MessageValues(msg, msg.Attempt)
	values["error"] = errMsg

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	slog.ErrorContext(ctx, "message sent to DLQ",
		"final_error", errMsg,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}

// ParseMessage validates the fields each event type needs.
func ParseMessage(msg redis.XMessage) (Message, error) {
	eventTypeStr, err := parseOptionalString(msg.Values, "event_type")
	if err != nil {
		return Message{}, err
	}
	eventType := EventType(eventTypeStr)
	if eventType == "" {
		return Message{}, fmt.Errorf("missing event_type")
	}
	if !eventType.Valid() {
		return Message{}, fmt.Errorf("unknown event_type %q", eventType)
	}

	participantID, err := parseOptionalInt64(msg.Values, "participant_id")
	if err != nil {
		return Message{}, err
	}
	runID, err := parseOptionalInt64(msg.Values, "run_id")
	if err != nil {
		return Message{}, err
	}
	handle, err := parseOptionalString(msg.Values, "handle")
	if err != nil {
		return Message{}, err
	}
	tier, err := parseOptionalString(msg.Values, "tier")
	if err != nil {
		return Message{}, err
	}
	payload, err := parseOptionalString(msg.Values, "payload")
	if err != nil {
		return Message{}, err
	}
	traceID, err := parseOptionalString(msg.Values, "trace_id")
	if err != nil {
		return Message{}, err
	}
	accept, err := parseOptionalBool(msg.Values, "accept")
	if err != nil {
		return Message{}, err
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	switch eventType {
	case EventRegister:
		if payload == "" {
			return Message{}, fmt.Errorf("missing payload")
		}
	case EventAvailability:
		if participantID == nil || tier == "" {
			return Message{}, fmt.Errorf("missing participant_id or tier")
		}
	case EventRequestRun:
		if participantID == nil || payload == "" {
			return Message{}, fmt.Errorf("missing participant_id or payload")
		}
	case EventSignup, EventWithdraw:
		if participantID == nil || runID == nil {
			return Message{}, fmt.Errorf("missing participant_id or run_id")
		}
	case EventResponse, EventDeliveryFailed:
		if handle == "" {
			return Message{}, fmt.Errorf("missing handle")
		}
	}

	return Message{
		ID:            msg.ID,
		EventType:     eventType,
		ParticipantID: participantID,
		RunID:         runID,
		Handle:        handle,
		Accept:        accept,
		Tier:          tier,
		Payload:       payload,
		Attempt:       attempt,
		TraceID:       traceID,
		Raw:           msg,
	}, nil
}

func parseOptionalInt64(values map[string]any, key string) (*int64, error) {
	raw, ok := values[key]
	if !ok {
		return nil, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	return &num, nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalBool(values map[string]any, key string) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(fmt.Sprint(raw))
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func parseOptionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}

// MessageValues renders a message back into stream fields.
func MessageValues(msg Message, attempt int) map[string]any {
	if attempt <= 0 {
		attempt = 1
	}
	values := map[string]any{
		"event_type": string(msg.EventType),
		"attempt":    attempt,
	}

	if msg.ParticipantID != nil {
		values["participant_id"] = *msg.ParticipantID
	}
	if msg.RunID != nil {
		values["run_id"] = *msg.RunID
	}
	if msg.Handle != "" {
		values["handle"] = msg.Handle
	}
	if msg.EventType == EventResponse {
		values["accept"] = strconv.FormatBool(msg.Accept)
	}
	if msg.Tier != "" {
		values["tier"] = msg.Tier
	}
	if msg.Payload != "" {
		values["payload"] = msg.Payload
	}
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}

	return values
}
