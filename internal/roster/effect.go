package roster

import "github.com/Satokaheni/mythic-plus-bot/internal/domain"

// EffectKind names an outbound action produced by a roster operation.
type EffectKind string

const (
	EffectSolicit   EffectKind = "solicit"
	EffectNotify    EffectKind = "notify"
	EffectPostRun   EffectKind = "post_run"
	EffectEditRun   EffectKind = "edit_run"
	EffectDeleteRun EffectKind = "delete_run"
)

// Effect is a side effect the caller must perform after the mutation has been
// persisted. Operations never talk to the transport directly.
//
// Handle is the outreach handle for EffectSolicit and the post handle for
// EffectEditRun and EffectDeleteRun. Replaces is the post an EffectPostRun
// supersedes; it is deleted once the new post exists.
type Effect struct {
	Kind          EffectKind
	ParticipantID int64
	RunID         int64
	Handle        string
	Replaces      string
	Role          domain.Role
	Text          string
}

func notify(participantID int64, text string) Effect {
	return Effect{Kind: EffectNotify, ParticipantID: participantID, Text: text}
}
