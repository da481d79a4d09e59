package service

import (
	"fmt"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
)

// RegisterParams is the finalized registration record. It is the JSON
// payload of register events and the body of the registration endpoint.
type RegisterParams struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Mention  string   `json:"mention,omitempty"`
	Class    string   `json:"class,omitempty"`
	Roles    []string `json:"roles"`
	Timezone string   `json:"timezone,omitempty"`
	Tier     string   `json:"tier"`
}

// Participant converts and validates the record.
func (p RegisterParams) Participant() (domain.Participant, error) {
	roles := make([]domain.Role, 0, len(p.Roles))
	for _, raw := range p.Roles {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return domain.Participant{}, fmt.Errorf("%w: %v", domain.ErrInvalidParticipant, err)
		}
		roles = append(roles, role)
	}

	tier := domain.TierLow
	if p.Tier != "" {
		var err error
		if tier, err = domain.ParseTier(p.Tier); err != nil {
			return domain.Participant{}, fmt.Errorf("%w: %v", domain.ErrInvalidParticipant, err)
		}
	}

	participant := domain.Participant{
		ID:       p.ID,
		Name:     p.Name,
		Mention:  p.Mention,
		Class:    p.Class,
		Roles:    roles,
		Timezone: p.Timezone,
		Tier:     tier,
	}
	if err := participant.Validate(); err != nil {
		return domain.Participant{}, err
	}
	return participant, nil
}

// RunRequestParams is the schedule of a requested run.
type RunRequestParams struct {
	Dungeon   string    `json:"dungeon"`
	Level     string    `json:"level"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

func (p RunRequestParams) request(requesterID int64) roster.RunRequest {
	return roster.RunRequest{
		RequesterID: requesterID,
		Dungeon:     p.Dungeon,
		Level:       p.Level,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
	}
}
