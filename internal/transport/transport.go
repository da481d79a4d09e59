// Package transport delivers roster output to the chat platform.
package transport

import (
	"context"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// ErrUnreachable means the platform refused delivery to a participant (for
// example because they do not accept direct messages).
var ErrUnreachable = domain.ErrTransportUnreachable

// Transport is the contract the engine dispatches effects through.
type Transport interface {
	Notify(ctx context.Context, participantID int64, text string) error
	// Solicit asks a participant to join a run. Their answer comes back as an
	// inbound response event carrying the same handle.
	Solicit(ctx context.Context, participantID int64, handle string, text string) error
	// PostRun publishes a run and returns the handle of the new post.
	PostRun(ctx context.Context, runID int64, text string) (string, error)
	EditRun(ctx context.Context, handle string, text string) error
	DeleteRun(ctx context.Context, handle string) error
}
