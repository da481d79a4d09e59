package domain

// Escalation walks a fixed sequence of (tier, pass) stages:
//
//	low/primary -> low/secondary -> medium/primary -> medium/secondary -> high
//
// High is terminal and has no pass.

// Stage names the run's current escalation step.
type Stage struct {
	Tier        Tier `json:"tier"`
	PrimaryPass bool `json:"primary_pass"`
}

func (r *Run) Stage() Stage {
	return Stage{Tier: r.Tier, PrimaryPass: r.PrimaryPass}
}

// Exhausted reports whether the run sits at the terminal stage.
func (r *Run) Exhausted() bool {
	return r.Tier == TierHigh
}

// Advance moves one step forward and reports whether the run just reached the
// terminal stage. It is a no-op once exhausted.
func (r *Run) Advance() (reachedTerminal bool) {
	if r.Exhausted() {
		return false
	}
	if r.PrimaryPass {
		r.PrimaryPass = false
		return false
	}
	r.Tier++
	r.PrimaryPass = r.Tier != TierHigh
	return r.Tier == TierHigh
}

// ResetEscalation returns to low/primary and clears the ask counter and the
// overseer report flag.
func (r *Run) ResetEscalation() {
	r.Tier = TierLow
	r.PrimaryPass = true
	r.Asks = 0
	r.Reported = false
}

// SolicitRole returns the role a candidate would be asked to fill at the
// current stage, if any.
func (r *Run) SolicitRole(p *Participant) (Role, bool) {
	primary := p.Primary()
	secondary, hasSecondary := p.Secondary()
	switch {
	case r.Exhausted():
		if r.Needs(primary) {
			return primary, true
		}
		if hasSecondary && r.Needs(secondary) {
			return secondary, true
		}
	case r.PrimaryPass:
		if r.Needs(primary) {
			return primary, true
		}
	default:
		if hasSecondary && r.Needs(secondary) {
			return secondary, true
		}
	}
	return "", false
}
