package handler_test

import (
	"context"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
)

type mockRosterService struct {
	registerFn        func(ctx context.Context, params service.RegisterParams) (domain.Participant, bool, error)
	setAvailabilityFn func(ctx context.Context, participantID int64, tier domain.Tier) error
	requestRunFn      func(ctx context.Context, participantID int64, params service.RunRequestParams) (roster.RequestResult, error)
	signupFn          func(ctx context.Context, participantID, runID int64) (domain.AssignmentResult, error)
	withdrawFn        func(ctx context.Context, participantID, runID int64) (domain.FillChange, error)
	respondFn         func(ctx context.Context, handle string, accept bool) (roster.Response, error)
	fillNowFn         func(ctx context.Context, runID int64) (domain.RunSummary, error)
	runFn             func(ctx context.Context, runID int64) (domain.RunSummary, error)
	conflictsFn       func(ctx context.Context) ([]roster.ConflictGroup, error)
	maintainFn        func(ctx context.Context) (roster.CycleReport, error)
}

func (m *mockRosterService) Register(ctx context.Context, params service.RegisterParams) (domain.Participant, bool, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, params)
	}
	return domain.Participant{ID: params.ID}, true, nil
}

func (m *mockRosterService) SetAvailability(ctx context.Context, participantID int64, tier domain.Tier) error {
	if m.setAvailabilityFn != nil {
		return m.setAvailabilityFn(ctx, participantID, tier)
	}
	return nil
}

func (m *mockRosterService) RequestRun(ctx context.Context, participantID int64, params service.RunRequestParams) (roster.RequestResult, error) {
	if m.requestRunFn != nil {
		return m.requestRunFn(ctx, participantID, params)
	}
	return roster.RequestResult{}, nil
}

func (m *mockRosterService) Signup(ctx context.Context, participantID, runID int64) (domain.AssignmentResult, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, participantID, runID)
	}
	return domain.AssignmentResult{}, nil
}

func (m *mockRosterService) Withdraw(ctx context.Context, participantID, runID int64) (domain.FillChange, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, participantID, runID)
	}
	return domain.FillChange{}, nil
}

func (m *mockRosterService) Respond(ctx context.Context, handle string, accept bool) (roster.Response, error) {
	if m.respondFn != nil {
		return m.respondFn(ctx, handle, accept)
	}
	return roster.Response{}, nil
}

func (m *mockRosterService) DeliveryFailed(ctx context.Context, handle string) (bool, error) {
	return false, nil
}

func (m *mockRosterService) FillNow(ctx context.Context, runID int64) (domain.RunSummary, error) {
	if m.fillNowFn != nil {
		return m.fillNowFn(ctx, runID)
	}
	return domain.RunSummary{ID: runID}, nil
}

func (m *mockRosterService) ResetEscalation(ctx context.Context, runID int64) (domain.RunSummary, error) {
	return domain.RunSummary{ID: runID}, nil
}

func (m *mockRosterService) Maintain(ctx context.Context) (roster.CycleReport, error) {
	if m.maintainFn != nil {
		return m.maintainFn(ctx)
	}
	return roster.CycleReport{}, nil
}

func (m *mockRosterService) Participant(ctx context.Context, participantID int64) (domain.Participant, error) {
	return domain.Participant{}, domain.ErrNotFound
}

func (m *mockRosterService) Participants(ctx context.Context) ([]domain.Participant, error) {
	return nil, nil
}

func (m *mockRosterService) Run(ctx context.Context, runID int64) (domain.RunSummary, error) {
	if m.runFn != nil {
		return m.runFn(ctx, runID)
	}
	return domain.RunSummary{}, domain.ErrNotFound
}

func (m *mockRosterService) Runs(ctx context.Context) ([]domain.RunSummary, error) {
	return nil, nil
}

func (m *mockRosterService) Conflicts(ctx context.Context) ([]roster.ConflictGroup, error) {
	if m.conflictsFn != nil {
		return m.conflictsFn(ctx)
	}
	return nil, nil
}

func (m *mockRosterService) Outreach(ctx context.Context) ([]domain.OutreachRecord, error) {
	return nil, nil
}

type mockProducer struct {
	enqueued []queue.Message
	err      error
}

func (m *mockProducer) Enqueue(ctx context.Context, msg queue.Message) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, msg)
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
