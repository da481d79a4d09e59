package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so a run or participant id set once at the
// edge (worker, handler, engine) shows up on every log line below it.
type LogFields struct {
	RunID         *int64  // Run the operation concerns
	ParticipantID *int64  // Participant the operation concerns
	Handle        *string // Outreach or post handle
	MessageID     *string // Redis stream message ID
	EventType     *string // Inbound event type (e.g., "response", "withdraw")
	Component     string  // Component name, e.g. "roster.engine"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.RunID != nil {
		result.RunID = next.RunID
	}
	if next.ParticipantID != nil {
		result.ParticipantID = next.ParticipantID
	}
	if next.Handle != nil {
		result.Handle = next.Handle
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
