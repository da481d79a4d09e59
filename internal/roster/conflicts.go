package roster

import (
	"sort"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// conflictSlotLayout buckets runs by date and start hour.
const conflictSlotLayout = "2006-01-02 15:00"

// ConflictGroup is two or more forming runs starting in the same hour.
type ConflictGroup struct {
	Slot string              `json:"slot"`
	Runs []domain.RunSummary `json:"runs"`
}

// Conflicts groups forming runs by (date, start hour) in UTC and returns every
// group with more than one run, ordered by slot.
func (r *Roster) Conflicts(now time.Time) []ConflictGroup {
	bySlot := make(map[string][]*domain.Run)
	for _, run := range r.sortedRuns() {
		if run.State(now) != domain.RunForming {
			continue
		}
		slot := run.StartTime.UTC().Format(conflictSlotLayout)
		bySlot[slot] = append(bySlot[slot], run)
	}

	var groups []ConflictGroup
	for slot, runs := range bySlot {
		if len(runs) < 2 {
			continue
		}
		g := ConflictGroup{Slot: slot}
		for _, run := range runs {
			g.Runs = append(g.Runs, r.summarize(run, now))
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Slot < groups[j].Slot })
	return groups
}
