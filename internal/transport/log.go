package transport

import (
	"context"
	"log/slog"

	"github.com/Satokaheni/mythic-plus-bot/common/id"
)

// LogTransport writes every command to the log. Used in development when no
// gateway is running.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Notify(ctx context.Context, participantID int64, text string) error {
	t.logger.InfoContext(ctx, "notify", "participant_id", participantID, "text", text)
	return nil
}

func (t *LogTransport) Solicit(ctx context.Context, participantID int64, handle string, text string) error {
	t.logger.InfoContext(ctx, "solicit", "participant_id", participantID, "handle", handle, "text", text)
	return nil
}

func (t *LogTransport) PostRun(ctx context.Context, runID int64, text string) (string, error) {
	handle := id.NewHandle()
	t.logger.InfoContext(ctx, "post run", "run_id", runID, "handle", handle, "text", text)
	return handle, nil
}

func (t *LogTransport) EditRun(ctx context.Context, handle string, text string) error {
	t.logger.InfoContext(ctx, "edit run", "handle", handle, "text", text)
	return nil
}

func (t *LogTransport) DeleteRun(ctx context.Context, handle string) error {
	t.logger.InfoContext(ctx, "delete run", "handle", handle)
	return nil
}
