package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
)

// errRejected marks events that can never succeed. They are acked and dropped.
var errRejected = errors.New("event rejected")

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer Consumer
	handler  EventHandler
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, handler EventHandler, cfg Config) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Worker{
		consumer:  consumer,
		handler:   handler,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "roster.worker",
	})

	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
				case <-w.stopCh:
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.ProcessMessage(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"event_type", msg.EventType)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

// ProcessMessage applies one event and acks it. Rejected events are acked as
// well; only retryable failures are returned. Exported so the reclaimer can
// reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, messageFields(msg))

	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message")
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt)

	err := w.safeDispatch(ctx, msg)
	if err != nil && !isRejection(err) {
		sc.RecordError(err)
		return err
	}
	if err != nil {
		slog.WarnContext(ctx, "event rejected, acknowledging", "error", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Redelivery is harmless: handles resolve once and signups are idempotent.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
	return nil
}

func (w *Worker) safeDispatch(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.dispatch(ctx, msg)
}

func (w *Worker) dispatch(ctx context.Context, msg queue.Message) error {
	switch msg.EventType {
	case queue.EventRegister:
		var params service.RegisterParams
		if err := json.Unmarshal([]byte(msg.Payload), &params); err != nil {
			return fmt.Errorf("%w: decoding register payload: %v", errRejected, err)
		}
		p, created, err := w.handler.Register(ctx, params)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "participant registered", "participant_id", p.ID, "created", created)

	case queue.EventAvailability:
		tier, err := domain.ParseTier(msg.Tier)
		if err != nil {
			return fmt.Errorf("%w: %v", errRejected, err)
		}
		return w.handler.SetAvailability(ctx, *msg.ParticipantID, tier)

	case queue.EventRequestRun:
		var params service.RunRequestParams
		if err := json.Unmarshal([]byte(msg.Payload), &params); err != nil {
			return fmt.Errorf("%w: decoding run request payload: %v", errRejected, err)
		}
		res, err := w.handler.RequestRun(ctx, *msg.ParticipantID, params)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "run requested", "run_id", res.Run.ID, "merged", res.Merged)

	case queue.EventSignup:
		res, err := w.handler.Signup(ctx, *msg.ParticipantID, *msg.RunID)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "signed up", "role", res.Role, "overflow", res.Overflow, "completed", res.Completed)

	case queue.EventWithdraw:
		_, err := w.handler.Withdraw(ctx, *msg.ParticipantID, *msg.RunID)
		return err

	case queue.EventResponse:
		resp, err := w.handler.Respond(ctx, msg.Handle, msg.Accept)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "solicitation answered", "outcome", resp.Outcome, "run_id", resp.Record.RunID)

	case queue.EventDeliveryFailed:
		dropped, err := w.handler.DeliveryFailed(ctx, msg.Handle)
		if err != nil {
			return err
		}
		if !dropped {
			slog.DebugContext(ctx, "delivery failure for unknown handle")
		}

	default:
		return fmt.Errorf("%w: unknown event_type %q", errRejected, msg.EventType)
	}
	return nil
}

// messageFields tags logs with the roster ids an event refers to.
func messageFields(msg queue.Message) logger.LogFields {
	fields := logger.LogFields{
		MessageID:     logger.Ptr(msg.ID),
		EventType:     logger.Ptr(string(msg.EventType)),
		ParticipantID: msg.ParticipantID,
		RunID:         msg.RunID,
	}
	if msg.Handle != "" {
		fields.Handle = logger.Ptr(msg.Handle)
	}
	return fields
}

// isRejection reports errors caused by the event itself rather than by the
// roster's ability to process it.
func isRejection(err error) bool {
	return errors.Is(err, errRejected) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidParticipant) ||
		errors.Is(err, domain.ErrInvalidRun) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrStaleReference)
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"event_type", msg.EventType,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
