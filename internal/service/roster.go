package service

import (
	"context"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/engine"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
)

// Executor runs roster work on the owner goroutine. *engine.Engine satisfies it.
type Executor interface {
	Do(ctx context.Context, name string, fn engine.Mutation) error
	Read(ctx context.Context, fn engine.View) error
}

type RosterService interface {
	Register(ctx context.Context, params RegisterParams) (domain.Participant, bool, error)
	SetAvailability(ctx context.Context, participantID int64, tier domain.Tier) error
	RequestRun(ctx context.Context, participantID int64, params RunRequestParams) (roster.RequestResult, error)
	Signup(ctx context.Context, participantID, runID int64) (domain.AssignmentResult, error)
	Withdraw(ctx context.Context, participantID, runID int64) (domain.FillChange, error)
	Respond(ctx context.Context, handle string, accept bool) (roster.Response, error)
	DeliveryFailed(ctx context.Context, handle string) (bool, error)
	FillNow(ctx context.Context, runID int64) (domain.RunSummary, error)
	ResetEscalation(ctx context.Context, runID int64) (domain.RunSummary, error)
	Maintain(ctx context.Context) (roster.CycleReport, error)

	Participant(ctx context.Context, participantID int64) (domain.Participant, error)
	Participants(ctx context.Context) ([]domain.Participant, error)
	Run(ctx context.Context, runID int64) (domain.RunSummary, error)
	Runs(ctx context.Context) ([]domain.RunSummary, error)
	Conflicts(ctx context.Context) ([]roster.ConflictGroup, error)
	Outreach(ctx context.Context) ([]domain.OutreachRecord, error)
}

type rosterService struct {
	exec Executor
}

func NewRosterService(exec Executor) RosterService {
	return &rosterService{exec: exec}
}

func (s *rosterService) Register(ctx context.Context, params RegisterParams) (domain.Participant, bool, error) {
	p, err := params.Participant()
	if err != nil {
		return domain.Participant{}, false, err
	}

	var (
		stored  domain.Participant
		created bool
	)
	err = s.exec.Do(ctx, "register", func(r *roster.Roster, _ time.Time) ([]roster.Effect, error) {
		var effects []roster.Effect
		var err error
		stored, created, effects, err = r.Register(p)
		return effects, err
	})
	return stored, created, err
}

func (s *rosterService) SetAvailability(ctx context.Context, participantID int64, tier domain.Tier) error {
	return s.exec.Do(ctx, "set_availability", func(r *roster.Roster, _ time.Time) ([]roster.Effect, error) {
		return r.SetAvailability(participantID, tier)
	})
}

func (s *rosterService) RequestRun(ctx context.Context, participantID int64, params RunRequestParams) (roster.RequestResult, error) {
	var res roster.RequestResult
	err := s.exec.Do(ctx, "request_run", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
		var effects []roster.Effect
		var err error
		res, effects, err = r.RequestRun(params.request(participantID), now)
		return effects, err
	})
	return res, err
}

func (s *rosterService) Signup(ctx context.Context, participantID, runID int64) (domain.AssignmentResult, error) {
	var res domain.AssignmentResult
	err := s.exec.Do(ctx, "signup", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
		var effects []roster.Effect
		var err error
		res, effects, err = r.Signup(participantID, runID, now)
		return effects, err
	})
	return res, err
}

func (s *rosterService) Withdraw(ctx context.Context, participantID, runID int64) (domain.FillChange, error) {
	var change domain.FillChange
	err := s.exec.Do(ctx, "withdraw", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
		var effects []roster.Effect
		var err error
		change, effects, err = r.Withdraw(participantID, runID, now)
		return effects, err
	})
	return change, err
}

func (s *rosterService) Respond(ctx context.Context, handle string, accept bool) (roster.Response, error) {
	var resp roster.Response
	err := s.exec.Do(ctx, "respond", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
		var effects []roster.Effect
		var err error
		resp, effects, err = r.Respond(handle, accept, now)
		return effects, err
	})
	return resp, err
}

func (s *rosterService) DeliveryFailed(ctx context.Context, handle string) (bool, error) {
	var dropped bool
	err := s.exec.Do(ctx, "delivery_failed", func(r *roster.Roster, _ time.Time) ([]roster.Effect, error) {
		dropped = r.DeliveryFailed(handle)
		return nil, nil
	})
	return dropped, err
}

func (s *rosterService) FillNow(ctx context.Context, runID int64) (domain.RunSummary, error) {
	var summary domain.RunSummary
	err := s.exec.Do(ctx, "fill_now", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
		var effects []roster.Effect
		var err error
		summary, effects, err = r.FillNow(runID, now)
		return effects, err
	})
	return summary, err
}

func (s *rosterService) ResetEscalation(ctx context.Context, runID int64) (domain.RunSummary, error) {
	var summary domain.RunSummary
	err := s.exec.Do(ctx, "reset_escalation", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
		var err error
		summary, err = r.ResetEscalation(runID, now)
		return nil, err
	})
	return summary, err
}

func (s *rosterService) Maintain(ctx context.Context) (roster.CycleReport, error) {
	var report roster.CycleReport
	err := s.exec.Do(ctx, "maintain", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
		var effects []roster.Effect
		report, effects = r.Maintain(now)
		return effects, nil
	})
	return report, err
}

func (s *rosterService) Participant(ctx context.Context, participantID int64) (domain.Participant, error) {
	var (
		p      domain.Participant
		getErr error
	)
	if err := s.exec.Read(ctx, func(r *roster.Roster, _ time.Time) {
		p, getErr = r.Participant(participantID)
	}); err != nil {
		return domain.Participant{}, err
	}
	return p, getErr
}

func (s *rosterService) Participants(ctx context.Context) ([]domain.Participant, error) {
	var ps []domain.Participant
	err := s.exec.Read(ctx, func(r *roster.Roster, _ time.Time) {
		ps = r.Participants()
	})
	return ps, err
}

func (s *rosterService) Run(ctx context.Context, runID int64) (domain.RunSummary, error) {
	var (
		summary domain.RunSummary
		getErr  error
	)
	if err := s.exec.Read(ctx, func(r *roster.Roster, now time.Time) {
		summary, getErr = r.Run(runID, now)
	}); err != nil {
		return domain.RunSummary{}, err
	}
	return summary, getErr
}

func (s *rosterService) Runs(ctx context.Context) ([]domain.RunSummary, error) {
	var runs []domain.RunSummary
	err := s.exec.Read(ctx, func(r *roster.Roster, now time.Time) {
		runs = r.Runs(now)
	})
	return runs, err
}

func (s *rosterService) Conflicts(ctx context.Context) ([]roster.ConflictGroup, error) {
	var groups []roster.ConflictGroup
	err := s.exec.Read(ctx, func(r *roster.Roster, now time.Time) {
		groups = r.Conflicts(now)
	})
	return groups, err
}

func (s *rosterService) Outreach(ctx context.Context) ([]domain.OutreachRecord, error) {
	var records []domain.OutreachRecord
	err := s.exec.Read(ctx, func(r *roster.Roster, _ time.Time) {
		records = r.Outreach()
	})
	return records, err
}
