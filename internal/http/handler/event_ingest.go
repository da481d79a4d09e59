package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/Satokaheni/mythic-plus-bot/internal/http/dto"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
)

// EventIngestHandler accepts gateway events over HTTP and puts them on the
// inbound stream, so they are processed exactly like events the gateway
// writes to Redis itself.
type EventIngestHandler struct {
	producer    queue.Producer
	traceHeader string
}

func NewEventIngestHandler(producer queue.Producer, traceHeader string) *EventIngestHandler {
	return &EventIngestHandler{
		producer:    producer,
		traceHeader: traceHeader,
	}
}

func (h *EventIngestHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	if h.producer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream not configured"})
		return
	}

	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ingest request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}

	draft := queue.Message{
		EventType:     queue.EventType(req.EventType),
		ParticipantID: req.ParticipantID,
		RunID:         req.RunID,
		Handle:        req.Handle,
		Accept:        req.Accept,
		Tier:          req.Tier,
		Payload:       string(req.Payload),
		TraceID:       traceID,
	}

	// Validate with the same rules the worker applies on read.
	msg, err := queue.ParseMessage(redis.XMessage{Values: queue.MessageValues(draft, 1)})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.producer.Enqueue(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to ingest event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestEventResponse{
		EventType: req.EventType,
		Enqueued:  true,
	})
}
