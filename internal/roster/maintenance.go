package roster

import (
	"time"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// CycleReport summarizes one maintenance cycle.
type CycleReport struct {
	Reposted        []int64         `json:"reposted"`
	Solicited       []int64         `json:"solicited"`
	Escalated       []int64         `json:"escalated"`
	Exhausted       []int64         `json:"exhausted"`
	Reminded        []int64         `json:"reminded"`
	Expired         []int64         `json:"expired"`
	Retried         int             `json:"retried"`
	DroppedOutreach int             `json:"dropped_outreach"`
	Conflicts       []ConflictGroup `json:"conflicts"`
}

// Maintain runs one maintenance cycle at now.
//
// Forming runs are reposted after RepostAfter and solicited once quiescence
// has passed. After the first solicitation each cycle counts as an ask; once
// AskThreshold asks have gone unanswered the run escalates one stage and
// solicits again. Filled runs inside the reminder window remind their members
// once. Then stale outreach is swept, started runs are expired, and conflicts
// are reported to the overseer.
func (r *Roster) Maintain(now time.Time) (CycleReport, []Effect) {
	var (
		report  CycleReport
		effects []Effect
	)

	for _, run := range r.sortedRuns() {
		switch run.State(now) {
		case domain.RunForming:
			effects = append(effects, r.maintainForming(run, now, &report)...)
		case domain.RunFilled:
			if !run.Reminded && run.StartTime.Sub(now) <= r.cfg.ReminderWindow {
				run.Reminded = true
				for _, m := range r.membersOf(run) {
					effects = append(effects, notify(m.ID, reminderText(run, m)))
				}
				report.Reminded = append(report.Reminded, run.ID)
			}
		}
	}

	effects = append(effects, r.sweep(now, &report)...)
	effects = append(effects, r.expire(now, &report)...)

	report.Conflicts = r.Conflicts(now)
	if len(report.Conflicts) > 0 {
		effects = append(effects, r.toOverseer(conflictText(report.Conflicts))...)
	}
	return report, effects
}

func (r *Roster) maintainForming(run *domain.Run, now time.Time, report *CycleReport) []Effect {
	var effects []Effect

	if now.Sub(run.PostedAt) >= r.cfg.RepostAfter {
		old := run.Handle
		run.Handle = ""
		run.PostedAt = now
		delete(r.staleRender, run.ID)
		effects = append(effects, Effect{Kind: EffectPostRun, RunID: run.ID, Replaces: old, Text: r.postText(run, now)})
		report.Reposted = append(report.Reposted, run.ID)
	}

	if r.scheduler.Quiet(run, now) {
		return effects
	}

	switch {
	case !run.Solicited:
		effects = append(effects, r.solicit(run, now, false)...)
		report.Solicited = append(report.Solicited, run.ID)
	case run.Exhausted():
		// Terminal: the overseer has the run now. Only FillNow asks again.
	case run.Asks >= r.cfg.AskThreshold:
		run.Asks = 0
		if run.Advance() {
			effects = append(effects, r.reportExhausted(run)...)
			report.Exhausted = append(report.Exhausted, run.ID)
		}
		report.Escalated = append(report.Escalated, run.ID)
		effects = append(effects, r.solicit(run, now, false)...)
		report.Solicited = append(report.Solicited, run.ID)
	default:
		run.Asks++
	}
	return effects
}

// sweep retries stale outreach for forming runs that still want the
// participant and drops the rest. A retry asks for whatever role the current
// stage allows, which may differ from the first ask.
func (r *Roster) sweep(now time.Time, report *CycleReport) []Effect {
	retry := func(rec domain.OutreachRecord) (domain.Role, bool) {
		run, ok := r.runs[rec.RunID]
		if !ok || run.State(now) != domain.RunForming {
			return "", false
		}
		p := r.registry.Lookup(rec.ParticipantID)
		if p == nil {
			return "", false
		}
		return r.scheduler.Eligible(run, p, r.tracker)
	}

	res := r.tracker.Sweep(now, r.cfg.OutreachTimeout, retry)
	report.Retried = len(res.Retried)
	report.DroppedOutreach = len(res.Dropped)

	var effects []Effect
	for _, rec := range res.Retried {
		run := r.runs[rec.RunID]
		p := r.registry.Lookup(rec.ParticipantID)
		effects = append(effects, Effect{
			Kind:          EffectSolicit,
			ParticipantID: rec.ParticipantID,
			RunID:         rec.RunID,
			Handle:        rec.Handle,
			Role:          rec.Role,
			Text:          solicitText(run, p, rec.Role),
		})
	}
	return effects
}

// expire removes started runs with their outreach and registry references.
func (r *Roster) expire(now time.Time, report *CycleReport) []Effect {
	var effects []Effect
	for _, run := range r.sortedRuns() {
		if run.State(now) != domain.RunExpired {
			continue
		}
		r.tracker.DropRun(run.ID)
		r.registry.ForgetRun(run.ID)
		delete(r.runs, run.ID)
		delete(r.staleRender, run.ID)
		if run.Handle != "" {
			effects = append(effects, Effect{Kind: EffectDeleteRun, RunID: run.ID, Handle: run.Handle})
		}
		report.Expired = append(report.Expired, run.ID)
	}
	return effects
}
