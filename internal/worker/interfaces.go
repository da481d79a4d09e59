package worker

import (
	"context"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// EventHandler is the part of service.RosterService inbound events reach.
type EventHandler interface {
	Register(ctx context.Context, params service.RegisterParams) (domain.Participant, bool, error)
	SetAvailability(ctx context.Context, participantID int64, tier domain.Tier) error
	RequestRun(ctx context.Context, participantID int64, params service.RunRequestParams) (roster.RequestResult, error)
	Signup(ctx context.Context, participantID, runID int64) (domain.AssignmentResult, error)
	Withdraw(ctx context.Context, participantID, runID int64) (domain.FillChange, error)
	Respond(ctx context.Context, handle string, accept bool) (roster.Response, error)
	DeliveryFailed(ctx context.Context, handle string) (bool, error)
}
