package domain

import (
	"fmt"
	"time"
)

// Participant is a registered player. Committed and Declined are owned by the
// registry and only change through its AddRun/RemoveRun/Decline methods.
type Participant struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Mention   string         `json:"mention"`
	Class     string         `json:"class"`
	Roles     []Role         `json:"roles"`
	Timezone  string         `json:"timezone,omitempty"`
	Tier      Tier           `json:"tier"`
	Committed map[int64]bool `json:"committed,omitempty"`
	Declined  map[int64]bool `json:"declined,omitempty"`
}

// Validate checks the registration record handed over by the registration
// flow: an id, one or two distinct roles, a loadable timezone and a class
// that can play every listed role.
func (p Participant) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidParticipant)
	}
	if len(p.Roles) == 0 || len(p.Roles) > 2 {
		return fmt.Errorf("%w: expected a primary and at most one secondary role, got %d", ErrInvalidParticipant, len(p.Roles))
	}
	for _, r := range p.Roles {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidParticipant, r)
		}
	}
	if len(p.Roles) == 2 && p.Roles[0] == p.Roles[1] {
		return fmt.Errorf("%w: secondary role cannot be the same as primary role", ErrInvalidParticipant)
	}
	if !p.Tier.Valid() {
		return fmt.Errorf("%w: invalid tier", ErrInvalidParticipant)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidParticipant, p.Timezone, err)
		}
	}
	if p.Class != "" {
		if err := Classes.Allows(p.Class, p.Roles); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParticipant, err)
		}
	}
	return nil
}

func (p *Participant) Primary() Role {
	if len(p.Roles) == 0 {
		return ""
	}
	return p.Roles[0]
}

// Secondary returns the optional secondary role.
func (p *Participant) Secondary() (Role, bool) {
	if len(p.Roles) < 2 {
		return "", false
	}
	return p.Roles[1], true
}

func (p *Participant) IsCommitted(runID int64) bool {
	return p.Committed[runID]
}

func (p *Participant) HasDeclined(runID int64) bool {
	return p.Declined[runID]
}

// Commitments is the number of runs the participant is currently on.
func (p *Participant) Commitments() int {
	return len(p.Committed)
}

// Location resolves the participant's timezone, falling back to UTC.
func (p *Participant) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Display is the name used in run posts.
func (p *Participant) Display() string {
	if p.Mention != "" {
		return p.Mention
	}
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("#%d", p.ID)
}

// Clone returns a deep copy safe to hand outside the state owner.
func (p *Participant) Clone() Participant {
	c := *p
	c.Roles = append([]Role(nil), p.Roles...)
	c.Committed = cloneSet(p.Committed)
	c.Declined = cloneSet(p.Declined)
	return c
}

func cloneSet(s map[int64]bool) map[int64]bool {
	if s == nil {
		return nil
	}
	out := make(map[int64]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
