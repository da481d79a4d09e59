package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/Satokaheni/mythic-plus-bot/common/id"
)

// Command names written to the outbound stream.
const (
	CommandNotify    = "notify"
	CommandSolicit   = "solicit"
	CommandPostRun   = "post_run"
	CommandEditRun   = "edit_run"
	CommandDeleteRun = "delete_run"
)

// RedisGateway hands commands to the chat gateway over a Redis stream. The
// gateway reports failures and answers on the inbound stream, so a successful
// XADD only means the command was queued.
type RedisGateway struct {
	client *redis.Client
	stream string
}

func NewRedisGateway(client *redis.Client, stream string) *RedisGateway {
	return &RedisGateway{client: client, stream: stream}
}

func (g *RedisGateway) Notify(ctx context.Context, participantID int64, text string) error {
	return g.send(ctx, CommandNotify, map[string]any{
		"participant_id": participantID,
		"text":           text,
	})
}

func (g *RedisGateway) Solicit(ctx context.Context, participantID int64, handle string, text string) error {
	return g.send(ctx, CommandSolicit, map[string]any{
		"participant_id": participantID,
		"handle":         handle,
		"text":           text,
	})
}

// PostRun mints the post handle locally so the gateway can key its message
// by it; the gateway reports reactions on the post by run id.
func (g *RedisGateway) PostRun(ctx context.Context, runID int64, text string) (string, error) {
	handle := id.NewHandle()
	if err := g.send(ctx, CommandPostRun, map[string]any{
		"run_id": runID,
		"handle": handle,
		"text":   text,
	}); err != nil {
		return "", err
	}
	return handle, nil
}

func (g *RedisGateway) EditRun(ctx context.Context, handle string, text string) error {
	return g.send(ctx, CommandEditRun, map[string]any{
		"handle": handle,
		"text":   text,
	})
}

func (g *RedisGateway) DeleteRun(ctx context.Context, handle string) error {
	return g.send(ctx, CommandDeleteRun, map[string]any{
		"handle": handle,
	})
}

func (g *RedisGateway) send(ctx context.Context, command string, values map[string]any) error {
	values["command"] = command
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		values["trace_id"] = sc.TraceID().String()
	}

	if err := g.client.XAdd(ctx, &redis.XAddArgs{
		Stream: g.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s (stream=%s): %w", command, g.stream, err)
	}

	slog.DebugContext(ctx, "gateway command queued", "command", command, "stream", g.stream)
	return nil
}
