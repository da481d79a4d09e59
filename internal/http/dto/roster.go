package dto

import (
	"encoding/json"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
)

type RegisterParticipantRequest struct {
	ID       int64    `json:"id" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Mention  string   `json:"mention,omitempty"`
	Class    string   `json:"class,omitempty"`
	Roles    []string `json:"roles" binding:"required,min=1,max=2"`
	Timezone string   `json:"timezone,omitempty"`
	Tier     string   `json:"tier,omitempty"`
}

type RegisterParticipantResponse struct {
	Participant domain.Participant `json:"participant"`
	Created     bool               `json:"created"`
}

type SetAvailabilityRequest struct {
	Tier string `json:"tier" binding:"required"`
}

type RequestRunRequest struct {
	RequesterID int64     `json:"requester_id" binding:"required"`
	Dungeon     string    `json:"dungeon" binding:"required"`
	Level       string    `json:"level" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time,omitempty"`
}

type RequestRunResponse struct {
	Run        domain.RunSummary `json:"run"`
	Merged     bool              `json:"merged"`
	Assignment Assignment        `json:"assignment"`
}

type SignupRequest struct {
	ParticipantID int64 `json:"participant_id" binding:"required"`
}

type Assignment struct {
	Role      domain.Role `json:"role"`
	Overflow  bool        `json:"overflow"`
	Completed bool        `json:"completed"`
}

func NewAssignment(res domain.AssignmentResult) Assignment {
	return Assignment{Role: res.Role, Overflow: res.Overflow, Completed: res.Completed}
}

type WithdrawResponse struct {
	Vacated      domain.Role `json:"vacated,omitempty"`
	FromOverflow bool        `json:"from_overflow"`
	PromotedID   *int64      `json:"promoted_id,omitempty"`
	WasFilled    bool        `json:"was_filled"`
	NowFilled    bool        `json:"now_filled"`
}

func NewWithdrawResponse(c domain.FillChange) WithdrawResponse {
	resp := WithdrawResponse{
		Vacated:      c.Vacated,
		FromOverflow: c.FromOverflow,
		WasFilled:    c.WasFilled,
		NowFilled:    c.NowFilled,
	}
	if c.Promoted != nil {
		id := c.Promoted.ParticipantID
		resp.PromotedID = &id
	}
	return resp
}

type RespondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

type RespondResponse struct {
	Outcome    roster.ResponseOutcome `json:"outcome"`
	RunID      int64                  `json:"run_id"`
	Assignment *Assignment            `json:"assignment,omitempty"`
}

type IngestEventRequest struct {
	EventType     string          `json:"event_type" binding:"required"`
	ParticipantID *int64          `json:"participant_id,omitempty"`
	RunID         *int64          `json:"run_id,omitempty"`
	Handle        string          `json:"handle,omitempty"`
	Accept        bool            `json:"accept,omitempty"`
	Tier          string          `json:"tier,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type IngestEventResponse struct {
	EventType string `json:"event_type"`
	Enqueued  bool   `json:"enqueued"`
}
