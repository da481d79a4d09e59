// Package registry owns participants and their commitment and decline history.
package registry

import (
	"fmt"
	"sort"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// Registry is not safe for concurrent use; the roster owner serializes access.
type Registry struct {
	participants map[int64]*domain.Participant
}

func New() *Registry {
	return &Registry{participants: make(map[int64]*domain.Participant)}
}

// Restore rebuilds a registry from persisted participants.
func Restore(ps []domain.Participant) *Registry {
	r := New()
	for i := range ps {
		p := ps[i].Clone()
		if p.Committed == nil {
			p.Committed = make(map[int64]bool)
		}
		if p.Declined == nil {
			p.Declined = make(map[int64]bool)
		}
		r.participants[p.ID] = &p
	}
	return r
}

// Register validates and stores a participant. Re-registering keeps the
// existing commitment and decline history and replaces profile fields.
func (r *Registry) Register(p domain.Participant) (*domain.Participant, bool, error) {
	if err := p.Validate(); err != nil {
		return nil, false, err
	}

	if existing, ok := r.participants[p.ID]; ok {
		existing.Name = p.Name
		existing.Mention = p.Mention
		existing.Class = p.Class
		existing.Roles = append([]domain.Role(nil), p.Roles...)
		existing.Timezone = p.Timezone
		existing.Tier = p.Tier
		return existing, false, nil
	}

	stored := p.Clone()
	stored.Committed = make(map[int64]bool)
	stored.Declined = make(map[int64]bool)
	r.participants[p.ID] = &stored
	return &stored, true, nil
}

// Get returns the live record; callers inside the owner may read it.
func (r *Registry) Get(id int64) (*domain.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, fmt.Errorf("%w: participant %d", domain.ErrNotFound, id)
	}
	return p, nil
}

// Lookup is Get without the error, for rendering.
func (r *Registry) Lookup(id int64) *domain.Participant {
	return r.participants[id]
}

func (r *Registry) SetTier(id int64, tier domain.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: invalid tier %d", domain.ErrInvalidParticipant, int(tier))
	}
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	p.Tier = tier
	return nil
}

// AddRun records a commitment. A participant who signs up after declining is
// no longer treated as declined for that run.
func (r *Registry) AddRun(id, runID int64) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	delete(p.Declined, runID)
	p.Committed[runID] = true
	return nil
}

func (r *Registry) RemoveRun(id, runID int64) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	delete(p.Committed, runID)
	return nil
}

// Decline records a permanent refusal for the run and drops any commitment.
func (r *Registry) Decline(id, runID int64) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	delete(p.Committed, runID)
	p.Declined[runID] = true
	return nil
}

// HasDeclined satisfies domain.DeclineChecker.
func (r *Registry) HasDeclined(id, runID int64) bool {
	p, ok := r.participants[id]
	return ok && p.Declined[runID]
}

// ForgetRun clears every reference to an expired run.
func (r *Registry) ForgetRun(runID int64) {
	for _, p := range r.participants {
		delete(p.Committed, runID)
		delete(p.Declined, runID)
	}
}

// All returns the live records ordered by id.
func (r *Registry) All() []*domain.Participant {
	out := make([]*domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Len() int {
	return len(r.participants)
}

// Snapshot returns deep copies ordered by id.
func (r *Registry) Snapshot() []domain.Participant {
	all := r.All()
	out := make([]domain.Participant, len(all))
	for i, p := range all {
		out[i] = p.Clone()
	}
	return out
}
