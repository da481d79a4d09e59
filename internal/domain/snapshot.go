package domain

import "time"

// OutreachRecord is a pending solicitation keyed by its handle.
type OutreachRecord struct {
	Handle        string    `json:"handle"`
	ParticipantID int64     `json:"participant_id"`
	RunID         int64     `json:"run_id"`
	Role          Role      `json:"role"`
	SentAt        time.Time `json:"sent_at"`
	Attempt       int       `json:"attempt"`
}

// Snapshot is the full persisted roster state.
type Snapshot struct {
	Version      int              `json:"version"`
	SavedAt      time.Time        `json:"saved_at"`
	Participants []Participant    `json:"participants"`
	Runs         []Run            `json:"runs"`
	Outreach     []OutreachRecord `json:"outreach"`
}

// SnapshotVersion is bumped whenever the persisted shape changes.
const SnapshotVersion = 1

// EmptySnapshot is the default state when nothing has been saved yet.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Version:      SnapshotVersion,
		Participants: []Participant{},
		Runs:         []Run{},
		Outreach:     []OutreachRecord{},
	}
}
