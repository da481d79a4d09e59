package roster

import (
	"fmt"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// Register adds or updates a participant. created is false on update.
func (r *Roster) Register(p domain.Participant) (domain.Participant, bool, []Effect, error) {
	stored, created, err := r.registry.Register(p)
	if err != nil {
		return domain.Participant{}, false, nil, err
	}
	return stored.Clone(), created, []Effect{notify(stored.ID, registeredText(stored))}, nil
}

// SetAvailability changes a participant's availability tier.
func (r *Roster) SetAvailability(participantID int64, tier domain.Tier) ([]Effect, error) {
	if err := r.registry.SetTier(participantID, tier); err != nil {
		return nil, err
	}
	p := r.registry.Lookup(participantID)
	return []Effect{notify(p.ID, availabilityText(p))}, nil
}

// RunRequest asks for a new run with the requester signed up.
type RunRequest struct {
	RequesterID int64
	Dungeon     string
	Level       string
	StartTime   time.Time
	EndTime     time.Time
}

// RequestResult reports whether the request created a run or joined an
// existing one with the same schedule.
type RequestResult struct {
	Run        domain.RunSummary
	Merged     bool
	Assignment domain.AssignmentResult
}

// RequestRun creates and posts a run, or merges the request into a
// non-expired run with the same level and start time.
func (r *Roster) RequestRun(req RunRequest, now time.Time) (RequestResult, []Effect, error) {
	p, err := r.registry.Get(req.RequesterID)
	if err != nil {
		return RequestResult{}, nil, err
	}
	if !req.StartTime.After(now) {
		return RequestResult{}, nil, fmt.Errorf("%w: start time must be in the future", domain.ErrInvalidRun)
	}

	candidate, err := domain.NewRun(r.newID(), req.Dungeon, req.Level, req.StartTime, req.EndTime, now)
	if err != nil {
		return RequestResult{}, nil, err
	}
	candidate.RequestedBy = req.RequesterID

	for _, existing := range r.sortedRuns() {
		if existing.State(now) == domain.RunExpired || !existing.SameSchedule(candidate) {
			continue
		}
		if existing.Has(p.ID) {
			return RequestResult{Run: r.summarize(existing, now), Merged: true}, nil, nil
		}
		res, effects, err := r.signup(existing, p, now)
		if err != nil {
			return RequestResult{}, nil, err
		}
		return RequestResult{Run: r.summarize(existing, now), Merged: true, Assignment: res}, effects, nil
	}

	res, err := candidate.Signup(p)
	if err != nil {
		return RequestResult{}, nil, err
	}
	if err := r.registry.AddRun(p.ID, candidate.ID); err != nil {
		return RequestResult{}, nil, err
	}
	r.runs[candidate.ID] = candidate

	effects := []Effect{
		{Kind: EffectPostRun, RunID: candidate.ID, Text: r.postText(candidate, now)},
		notify(p.ID, signedUpText(candidate, p, res)),
	}
	return RequestResult{Run: r.summarize(candidate, now), Assignment: res}, effects, nil
}

// Signup adds a participant to a run through the assignment algorithm.
func (r *Roster) Signup(participantID, runID int64, now time.Time) (domain.AssignmentResult, []Effect, error) {
	p, err := r.registry.Get(participantID)
	if err != nil {
		return domain.AssignmentResult{}, nil, err
	}
	run, err := r.run(runID)
	if err != nil {
		return domain.AssignmentResult{}, nil, err
	}
	if run.State(now) == domain.RunExpired {
		return domain.AssignmentResult{}, nil, fmt.Errorf("%w: run %d has already started", domain.ErrInvalidTransition, runID)
	}
	return r.signup(run, p, now)
}

func (r *Roster) signup(run *domain.Run, p *domain.Participant, now time.Time) (domain.AssignmentResult, []Effect, error) {
	res, err := run.Signup(p)
	if err != nil {
		return domain.AssignmentResult{}, nil, err
	}
	if err := r.registry.AddRun(p.ID, run.ID); err != nil {
		return domain.AssignmentResult{}, nil, err
	}
	// An organic signup answers any outstanding ask.
	r.tracker.DropPair(p.ID, run.ID)

	effects := []Effect{notify(p.ID, signedUpText(run, p, res))}
	if res.Completed {
		for _, m := range r.membersOf(run) {
			effects = append(effects, notify(m.ID, filledText(run, m)))
		}
	}
	effects = append(effects, r.render(run, now)...)
	return res, effects, nil
}

// Withdraw removes a participant from a run.
func (r *Roster) Withdraw(participantID, runID int64, now time.Time) (domain.FillChange, []Effect, error) {
	p, err := r.registry.Get(participantID)
	if err != nil {
		return domain.FillChange{}, nil, err
	}
	run, err := r.run(runID)
	if err != nil {
		return domain.FillChange{}, nil, err
	}
	change, effects, err := r.remove(run, p, now)
	if err != nil {
		return domain.FillChange{}, nil, err
	}
	return change, append([]Effect{notify(p.ID, withdrawnText(run, p))}, effects...), nil
}

func (r *Roster) remove(run *domain.Run, p *domain.Participant, now time.Time) (domain.FillChange, []Effect, error) {
	change, err := run.Remove(p.ID, r.registry)
	if err != nil {
		return domain.FillChange{}, nil, err
	}
	if err := r.registry.RemoveRun(p.ID, run.ID); err != nil {
		return domain.FillChange{}, nil, err
	}

	var effects []Effect
	if change.Promoted != nil {
		if promoted := r.registry.Lookup(change.Promoted.ParticipantID); promoted != nil {
			effects = append(effects, notify(promoted.ID, promotedText(run, promoted, change.Promoted.Role)))
		}
	}
	if change.Changed() && change.WasFilled {
		for _, m := range r.membersOf(run) {
			effects = append(effects, notify(m.ID, unfilledText(run, m)))
		}
		run.Reminded = false
	}
	effects = append(effects, r.render(run, now)...)
	return change, effects, nil
}

// ResponseOutcome describes what a solicitation response did.
type ResponseOutcome string

const (
	ResponseAccepted ResponseOutcome = "accepted"
	ResponseDeclined ResponseOutcome = "declined"
	ResponseStale    ResponseOutcome = "stale"
)

// Response is the result of Respond.
type Response struct {
	Outcome    ResponseOutcome
	Record     domain.OutreachRecord
	Assignment domain.AssignmentResult
}

// Respond resolves an outreach handle. Accepting signs the participant up,
// declining records a permanent decline for the run and removes them if they
// are on it. A response for a run that is no longer forming is stale: the
// record is dropped and the participant is told they are not needed.
func (r *Roster) Respond(handle string, accept bool, now time.Time) (Response, []Effect, error) {
	rec, err := r.tracker.Resolve(handle)
	if err != nil {
		return Response{}, nil, err
	}
	resp := Response{Record: rec}

	p := r.registry.Lookup(rec.ParticipantID)
	run, ok := r.runs[rec.RunID]
	if p == nil || !ok {
		return Response{}, nil, fmt.Errorf("%w: outreach %s references a missing run or participant", domain.ErrStaleReference, handle)
	}

	if run.State(now) != domain.RunForming {
		resp.Outcome = ResponseStale
		return resp, []Effect{notify(p.ID, staleText(run, p))}, nil
	}

	if !accept {
		resp.Outcome = ResponseDeclined
		if err := r.registry.Decline(p.ID, run.ID); err != nil {
			return Response{}, nil, err
		}
		effects := []Effect{notify(p.ID, declinedText(run, p))}
		if run.Has(p.ID) {
			_, removed, err := r.remove(run, p, now)
			if err != nil {
				return Response{}, nil, err
			}
			effects = append(effects, removed...)
		}
		return resp, effects, nil
	}

	resp.Outcome = ResponseAccepted
	if run.Has(p.ID) {
		return resp, nil, nil
	}
	res, effects, err := r.signup(run, p, now)
	if err != nil {
		return Response{}, nil, err
	}
	resp.Assignment = res
	return resp, effects, nil
}

// DeliveryFailed drops the outreach record of an unreachable participant
// without recording a decline.
func (r *Roster) DeliveryFailed(handle string) bool {
	return r.tracker.Drop(handle)
}

// RunPosted records the handle of a newly posted run message. A post that
// lands after its run expired is deleted again.
func (r *Roster) RunPosted(runID int64, handle string, now time.Time) []Effect {
	run, ok := r.runs[runID]
	if !ok {
		return []Effect{{Kind: EffectDeleteRun, RunID: runID, Handle: handle}}
	}
	run.Handle = handle
	if r.staleRender[runID] {
		delete(r.staleRender, runID)
		return r.render(run, now)
	}
	return nil
}

// FillNow advances escalation one step and solicits immediately, ignoring
// quiescence.
func (r *Roster) FillNow(runID int64, now time.Time) (domain.RunSummary, []Effect, error) {
	run, err := r.run(runID)
	if err != nil {
		return domain.RunSummary{}, nil, err
	}
	if run.State(now) != domain.RunForming {
		return domain.RunSummary{}, nil, fmt.Errorf("%w: run %d is %s", domain.ErrInvalidTransition, runID, run.State(now))
	}

	var effects []Effect
	run.Asks = 0
	if run.Advance() {
		effects = append(effects, r.reportExhausted(run)...)
	}
	effects = append(effects, r.solicit(run, now, true)...)
	return r.summarize(run, now), effects, nil
}

// ResetEscalation returns a run to low/primary.
func (r *Roster) ResetEscalation(runID int64, now time.Time) (domain.RunSummary, error) {
	run, err := r.run(runID)
	if err != nil {
		return domain.RunSummary{}, err
	}
	run.ResetEscalation()
	return r.summarize(run, now), nil
}

// solicit asks every eligible participant at the run's current stage.
func (r *Roster) solicit(run *domain.Run, now time.Time, ignoreQuiet bool) []Effect {
	if !ignoreQuiet && r.scheduler.Quiet(run, now) {
		return nil
	}
	run.Solicited = true

	var effects []Effect
	for _, c := range r.scheduler.Rank(run, r.registry.All(), r.tracker) {
		rec, created := r.tracker.Send(c.Participant.ID, run.ID, c.Role, now)
		if !created {
			continue
		}
		effects = append(effects, Effect{
			Kind:          EffectSolicit,
			ParticipantID: rec.ParticipantID,
			RunID:         run.ID,
			Handle:        rec.Handle,
			Role:          rec.Role,
			Text:          solicitText(run, c.Participant, rec.Role),
		})
	}
	return effects
}

func (r *Roster) reportExhausted(run *domain.Run) []Effect {
	if run.Reported {
		return nil
	}
	run.Reported = true
	return r.toOverseer(exhaustedText(run))
}
