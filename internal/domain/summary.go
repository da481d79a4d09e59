package domain

import (
	"fmt"
	"strings"
	"time"
)

// SeatView is a resolved member for rendering.
type SeatView struct {
	ParticipantID int64  `json:"participant_id"`
	Display       string `json:"display"`
	Role          Role   `json:"role"`
	Roles         []Role `json:"roles"`
}

// RunSummary is the public, render-ready view of a run.
type RunSummary struct {
	ID          int64      `json:"id"`
	Handle      string     `json:"handle,omitempty"`
	State       RunState   `json:"state"`
	Dungeon     string     `json:"dungeon"`
	Level       string     `json:"level"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Tank        *SeatView  `json:"tank,omitempty"`
	Healer      *SeatView  `json:"healer,omitempty"`
	DPS         []SeatView `json:"dps"`
	Overflow    []SeatView `json:"overflow"`
	Missing     []Role     `json:"missing"`
	SignupCount int        `json:"signup_count"`
	Filled      bool       `json:"filled"`
	Stage       Stage      `json:"stage"`
	Asks        int        `json:"asks"`
}

// Summarize resolves member names through lookup. Unknown ids render as
// "#<id>".
func (r *Run) Summarize(now time.Time, lookup func(int64) *Participant) RunSummary {
	view := func(m Member) SeatView {
		sv := SeatView{ParticipantID: m.ParticipantID, Role: m.Role, Roles: append([]Role(nil), m.Roles...)}
		if p := lookup(m.ParticipantID); p != nil {
			sv.Display = p.Display()
		} else {
			sv.Display = fmt.Sprintf("#%d", m.ParticipantID)
		}
		return sv
	}

	s := RunSummary{
		ID:          r.ID,
		Handle:      r.Handle,
		State:       r.State(now),
		Dungeon:     r.Dungeon,
		Level:       r.Level,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		DPS:         make([]SeatView, 0, DPSSlots),
		Overflow:    make([]SeatView, 0, len(r.Overflow)),
		Missing:     r.Missing(),
		SignupCount: r.SignupCount,
		Filled:      r.Filled,
		Stage:       r.Stage(),
		Asks:        r.Asks,
	}
	if r.Tank != nil {
		t := view(*r.Tank)
		s.Tank = &t
	}
	if r.Healer != nil {
		h := view(*r.Healer)
		s.Healer = &h
	}
	for _, m := range r.DPS {
		s.DPS = append(s.DPS, view(m))
	}
	for _, m := range r.Overflow {
		s.Overflow = append(s.Overflow, view(m))
	}
	return s
}

// Text renders the run post. Times are shown in loc.
func (s RunSummary) Text(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	start := s.StartTime.In(loc)

	var b strings.Builder
	b.WriteString("Scheduled Mythic+ Run\n")
	fmt.Fprintf(&b, "Date: %s\n", start.Format("2006-01-02"))
	if s.EndTime.IsZero() {
		fmt.Fprintf(&b, "Time: %s %s\n", start.Format("15:04"), start.Format("MST"))
	} else {
		fmt.Fprintf(&b, "Time: %s to %s %s\n", start.Format("15:04"), s.EndTime.In(loc).Format("15:04"), start.Format("MST"))
	}
	fmt.Fprintf(&b, "Dungeon: %s (Level %s)\n\n", s.Dungeon, s.Level)
	b.WriteString("React to this message to sign up. Remove your reaction if you can no longer attend.\n\n")

	fmt.Fprintf(&b, "Tank: %s\n", seatOrTBD(s.Tank))
	fmt.Fprintf(&b, "Healer: %s\n", seatOrTBD(s.Healer))
	fmt.Fprintf(&b, "DPS: %s\n", joinSeats(s.DPS, false, "TBD"))
	fmt.Fprintf(&b, "Overflow: %s\n", joinSeats(s.Overflow, true, "None"))
	if len(s.Missing) == 0 {
		b.WriteString("Missing: none, the group is full")
	} else {
		labels := make([]string, len(s.Missing))
		for i, r := range s.Missing {
			labels[i] = r.Label()
		}
		fmt.Fprintf(&b, "Missing: %s", strings.Join(labels, ", "))
	}
	return b.String()
}

func seatOrTBD(sv *SeatView) string {
	if sv == nil {
		return "TBD"
	}
	return sv.Display
}

func joinSeats(seats []SeatView, withRoles bool, empty string) string {
	if len(seats) == 0 {
		return empty
	}
	parts := make([]string, len(seats))
	for i, sv := range seats {
		if withRoles {
			parts[i] = fmt.Sprintf("%s (%s)", sv.Display, joinRoles(sv.Roles))
		} else {
			parts[i] = sv.Display
		}
	}
	return strings.Join(parts, ", ")
}
