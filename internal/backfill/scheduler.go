// Package backfill selects and ranks who to ask for a run's missing roles.
package backfill

import (
	"sort"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// DefaultQuiescence is how long a new run waits for organic signups.
const DefaultQuiescence = time.Hour

// PendingChecker reports in-flight outreach for a pair.
type PendingChecker interface {
	Pending(participantID, runID int64) bool
}

// Candidate is one participant to solicit and the role they would fill.
type Candidate struct {
	Participant *domain.Participant
	Role        domain.Role
}

type Scheduler struct {
	quiescence time.Duration
}

func NewScheduler(quiescence time.Duration) *Scheduler {
	if quiescence < 0 {
		quiescence = 0
	}
	return &Scheduler{quiescence: quiescence}
}

// Quiet reports whether the run is still inside its quiescence period.
func (s *Scheduler) Quiet(run *domain.Run, now time.Time) bool {
	return now.Sub(run.CreatedAt) < s.quiescence
}

// Eligible decides whether a participant may be asked for the run at its
// current stage, and for which role. It ignores quiescence so that sweeps can
// reuse it.
func (s *Scheduler) Eligible(run *domain.Run, p *domain.Participant, pending PendingChecker) (domain.Role, bool) {
	if run.IsFilled() {
		return "", false
	}
	if !run.Tier.Admits(p.Tier) {
		return "", false
	}
	if p.IsCommitted(run.ID) || run.Has(p.ID) || p.HasDeclined(run.ID) {
		return "", false
	}
	if pending != nil && pending.Pending(p.ID, run.ID) {
		return "", false
	}
	return run.SolicitRole(p)
}

// Candidates returns every eligible participant ranked by Rank. It returns
// nothing while the run is quiet.
func (s *Scheduler) Candidates(run *domain.Run, pool []*domain.Participant, pending PendingChecker, now time.Time) []Candidate {
	if s.Quiet(run, now) {
		return nil
	}
	return s.Rank(run, pool, pending)
}

// Rank filters the pool to eligible participants, most willing first, then
// fewest commitments, then lowest id.
func (s *Scheduler) Rank(run *domain.Run, pool []*domain.Participant, pending PendingChecker) []Candidate {
	var out []Candidate
	for _, p := range pool {
		if role, ok := s.Eligible(run, p, pending); ok {
			out = append(out, Candidate{Participant: p, Role: role})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Participant, out[j].Participant
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		if a.Commitments() != b.Commitments() {
			return a.Commitments() < b.Commitments()
		}
		return a.ID < b.ID
	})
	return out
}
