package domain

import (
	"fmt"
	"time"
)

// RunState is derived from the roster and the clock, never stored.
type RunState string

const (
	RunForming RunState = "forming"
	RunFilled  RunState = "filled"
	RunExpired RunState = "expired"
)

// Levels a run can be requested at.
var Levels = []string{"climb10", "10", "11", "12+"}

// Member is a participant's seat on a run. Roles is the capability list at
// signup time; Role is the slot held, or the role they queued for when in
// the overflow queue.
type Member struct {
	ParticipantID int64  `json:"participant_id"`
	Roles         []Role `json:"roles"`
	Role          Role   `json:"role"`
}

// Run is the roster state machine for one scheduled activity.
type Run struct {
	ID          int64     `json:"id"`
	Handle      string    `json:"handle,omitempty"`
	RequestedBy int64     `json:"requested_by"`
	Dungeon     string    `json:"dungeon"`
	Level       string    `json:"level"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
	PostedAt    time.Time `json:"posted_at"`

	Tank     *Member  `json:"tank,omitempty"`
	Healer   *Member  `json:"healer,omitempty"`
	DPS      []Member `json:"dps,omitempty"`
	Overflow []Member `json:"overflow,omitempty"`

	SignupCount int  `json:"signup_count"`
	Filled      bool `json:"filled"`

	Tier        Tier `json:"tier"`
	PrimaryPass bool `json:"primary_pass"`
	Asks        int  `json:"asks"`
	Solicited   bool `json:"solicited"`
	Reported    bool `json:"reported"`
	Reminded    bool `json:"reminded"`
}

// NewRun builds an empty run at the lowest urgency with the primary pass set.
func NewRun(id int64, dungeon, level string, start, end, now time.Time) (*Run, error) {
	if !validLevel(level) {
		return nil, fmt.Errorf("%w: unknown level %q", ErrInvalidRun, level)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", ErrInvalidRun)
	}
	if !end.IsZero() && !end.After(start) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidRun)
	}
	return &Run{
		ID:          id,
		Dungeon:     dungeon,
		Level:       level,
		StartTime:   start,
		EndTime:     end,
		CreatedAt:   now,
		PostedAt:    now,
		Tier:        TierLow,
		PrimaryPass: true,
	}, nil
}

func validLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}

// AssignmentResult describes where Signup placed a participant.
type AssignmentResult struct {
	Role     Role
	Overflow bool
	// Completed is true when this signup filled the last slot.
	Completed bool
}

// FillChange describes the effect of Remove.
type FillChange struct {
	Vacated      Role
	FromOverflow bool
	Promoted     *Member
	WasFilled    bool
	NowFilled    bool
}

// Changed reports whether the run's fill status flipped.
func (c FillChange) Changed() bool {
	return c.WasFilled != c.NowFilled
}

// DeclineChecker answers whether a participant has declined a run.
type DeclineChecker interface {
	HasDeclined(participantID, runID int64) bool
}

// State derives the lifecycle state at now. Expired wins over Filled.
func (r *Run) State(now time.Time) RunState {
	if !now.Before(r.StartTime) {
		return RunExpired
	}
	if r.Filled {
		return RunFilled
	}
	return RunForming
}

func (r *Run) IsFilled() bool {
	return r.Filled
}

// Missing lists one entry per vacant slot in roster order.
func (r *Run) Missing() []Role {
	missing := make([]Role, 0, TeamSize)
	if r.Tank == nil {
		missing = append(missing, RoleTank)
	}
	if r.Healer == nil {
		missing = append(missing, RoleHealer)
	}
	for i := len(r.DPS); i < DPSSlots; i++ {
		missing = append(missing, RoleDPS)
	}
	return missing
}

// Needs reports whether a slot of the given role is vacant.
func (r *Run) Needs(role Role) bool {
	switch role {
	case RoleTank:
		return r.Tank == nil
	case RoleHealer:
		return r.Healer == nil
	case RoleDPS:
		return len(r.DPS) < DPSSlots
	}
	return false
}

// Has reports membership across slots and the overflow queue.
func (r *Run) Has(participantID int64) bool {
	return r.slotOf(participantID) != "" || r.overflowIndex(participantID) >= 0
}

// InOverflow reports whether the participant is queued rather than seated.
func (r *Run) InOverflow(participantID int64) bool {
	return r.overflowIndex(participantID) >= 0
}

// Members returns seated members in roster order: tank, healer, dps.
func (r *Run) Members() []Member {
	out := make([]Member, 0, TeamSize)
	if r.Tank != nil {
		out = append(out, *r.Tank)
	}
	if r.Healer != nil {
		out = append(out, *r.Healer)
	}
	return append(out, r.DPS...)
}

// Signup seats a participant or queues them in overflow.
//
// The target role is the primary role if still missing, else the secondary
// role if still missing, else the primary role (which lands in overflow).
func (r *Run) Signup(p *Participant) (AssignmentResult, error) {
	if len(p.Roles) == 0 {
		return AssignmentResult{}, fmt.Errorf("%w: participant %d has no roles", ErrInvalidParticipant, p.ID)
	}
	if r.Has(p.ID) {
		return AssignmentResult{}, fmt.Errorf("%w: participant %d is already on run %d", ErrInvalidTransition, p.ID, r.ID)
	}

	m := Member{ParticipantID: p.ID, Roles: append([]Role(nil), p.Roles...)}
	role, ok := resolveRole(m.Roles, r)
	if !ok {
		m.Role = p.Primary()
		r.Overflow = append(r.Overflow, m)
		return AssignmentResult{Role: m.Role, Overflow: true}, nil
	}

	wasFilled := r.Filled
	m.Role = role
	r.seat(m)
	return AssignmentResult{Role: role, Completed: !wasFilled && r.Filled}, nil
}

// Remove takes a participant off the run. Vacating a slot runs one FIFO pass
// over the overflow queue and promotes the first member whose primary or
// secondary role is now missing, skipping anyone who declined this run.
func (r *Run) Remove(participantID int64, declines DeclineChecker) (FillChange, error) {
	change := FillChange{WasFilled: r.Filled}

	if i := r.overflowIndex(participantID); i >= 0 {
		r.Overflow = append(r.Overflow[:i:i], r.Overflow[i+1:]...)
		change.FromOverflow = true
		change.NowFilled = r.Filled
		return change, nil
	}

	role := r.slotOf(participantID)
	if role == "" {
		return change, fmt.Errorf("%w: participant %d is not on run %d", ErrInvalidTransition, participantID, r.ID)
	}
	r.unseat(participantID, role)
	change.Vacated = role

	change.Promoted = r.promoteFromOverflow(declines)
	change.NowFilled = r.Filled
	return change, nil
}

func (r *Run) promoteFromOverflow(declines DeclineChecker) *Member {
	for i, m := range r.Overflow {
		if declines != nil && declines.HasDeclined(m.ParticipantID, r.ID) {
			continue
		}
		role, ok := resolveRole(m.Roles, r)
		if !ok {
			continue
		}
		r.Overflow = append(r.Overflow[:i:i], r.Overflow[i+1:]...)
		m.Role = role
		r.seat(m)
		return &m
	}
	return nil
}

func (r *Run) seat(m Member) {
	switch m.Role {
	case RoleTank:
		r.Tank = &m
	case RoleHealer:
		r.Healer = &m
	case RoleDPS:
		r.DPS = append(r.DPS, m)
	}
	r.SignupCount++
	r.Filled = r.SignupCount == TeamSize
}

func (r *Run) unseat(participantID int64, role Role) {
	switch role {
	case RoleTank:
		r.Tank = nil
	case RoleHealer:
		r.Healer = nil
	case RoleDPS:
		for i, m := range r.DPS {
			if m.ParticipantID == participantID {
				r.DPS = append(r.DPS[:i:i], r.DPS[i+1:]...)
				break
			}
		}
	}
	r.SignupCount--
	r.Filled = r.SignupCount == TeamSize
}

// Recount derives SignupCount and Filled from the seated members. Used when
// a run comes back from a snapshot.
func (r *Run) Recount() {
	r.SignupCount = len(r.Members())
	r.Filled = r.SignupCount == TeamSize
}

func (r *Run) slotOf(participantID int64) Role {
	if r.Tank != nil && r.Tank.ParticipantID == participantID {
		return RoleTank
	}
	if r.Healer != nil && r.Healer.ParticipantID == participantID {
		return RoleHealer
	}
	for _, m := range r.DPS {
		if m.ParticipantID == participantID {
			return RoleDPS
		}
	}
	return ""
}

func (r *Run) overflowIndex(participantID int64) int {
	for i, m := range r.Overflow {
		if m.ParticipantID == participantID {
			return i
		}
	}
	return -1
}

// resolveRole picks the primary role if missing, else the secondary role if
// missing.
func resolveRole(roles []Role, r *Run) (Role, bool) {
	for i, role := range roles {
		if i > 1 {
			break
		}
		if r.Needs(role) {
			return role, true
		}
	}
	return "", false
}

// SameSchedule reports whether two runs describe the same time slot: equal
// level and identical start instant (which fixes the date as well).
func (r *Run) SameSchedule(other *Run) bool {
	return r.Level == other.Level && r.StartTime.Equal(other.StartTime)
}

// Clone returns a deep copy safe to hand outside the state owner.
func (r *Run) Clone() Run {
	c := *r
	if r.Tank != nil {
		t := cloneMember(*r.Tank)
		c.Tank = &t
	}
	if r.Healer != nil {
		h := cloneMember(*r.Healer)
		c.Healer = &h
	}
	c.DPS = cloneMembers(r.DPS)
	c.Overflow = cloneMembers(r.Overflow)
	return c
}

func cloneMember(m Member) Member {
	m.Roles = append([]Role(nil), m.Roles...)
	return m
}

func cloneMembers(ms []Member) []Member {
	if ms == nil {
		return nil
	}
	out := make([]Member, len(ms))
	for i, m := range ms {
		out[i] = cloneMember(m)
	}
	return out
}
