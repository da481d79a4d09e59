package roster

import (
	"fmt"
	"strings"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

func runLabel(run *domain.Run, p *domain.Participant) string {
	start := run.StartTime.In(p.Location())
	return fmt.Sprintf("%s +%s on %s at %s", run.Dungeon, run.Level, start.Format("Mon Jan 2"), start.Format("15:04 MST"))
}

func registeredText(p *domain.Participant) string {
	roles := make([]string, len(p.Roles))
	for i, r := range p.Roles {
		roles[i] = r.Label()
	}
	if p.Class == "" {
		return fmt.Sprintf("You are registered as %s with %s availability.", strings.Join(roles, ", "), p.Tier)
	}
	return fmt.Sprintf("You are registered as %s (%s) with %s availability.", p.Class, strings.Join(roles, ", "), p.Tier)
}

func availabilityText(p *domain.Participant) string {
	return fmt.Sprintf("Your availability is now %s.", p.Tier)
}

func signedUpText(run *domain.Run, p *domain.Participant, res domain.AssignmentResult) string {
	if res.Overflow {
		return fmt.Sprintf("You are in the overflow queue as %s for %s. You will be moved in if a matching slot opens.", res.Role.Label(), runLabel(run, p))
	}
	return fmt.Sprintf("You are signed up as %s for %s.", res.Role.Label(), runLabel(run, p))
}

func withdrawnText(run *domain.Run, p *domain.Participant) string {
	return fmt.Sprintf("You have been removed from %s.", runLabel(run, p))
}

func promotedText(run *domain.Run, p *domain.Participant, role domain.Role) string {
	return fmt.Sprintf("A slot opened up: you moved from overflow to %s for %s.", role.Label(), runLabel(run, p))
}

func filledText(run *domain.Run, p *domain.Participant) string {
	return fmt.Sprintf("The group for %s is full. See you there!", runLabel(run, p))
}

func unfilledText(run *domain.Run, p *domain.Participant) string {
	return fmt.Sprintf("The group for %s lost a member and is looking for a %s again.", runLabel(run, p), missingLabels(run))
}

func solicitText(run *domain.Run, p *domain.Participant, role domain.Role) string {
	return fmt.Sprintf("A group for %s needs a %s. Can you join? Reply yes or no.", runLabel(run, p), role.Label())
}

func declinedText(run *domain.Run, p *domain.Participant) string {
	return fmt.Sprintf("No problem, you will not be asked about %s again.", runLabel(run, p))
}

func staleText(run *domain.Run, p *domain.Participant) string {
	return fmt.Sprintf("Thanks, but %s no longer needs you.", runLabel(run, p))
}

func reminderText(run *domain.Run, p *domain.Participant) string {
	return fmt.Sprintf("Reminder: %s starts soon.", runLabel(run, p))
}

func exhaustedText(run *domain.Run) string {
	return fmt.Sprintf("Run %d (%s +%s at %s UTC) has asked everyone and is still missing %s.",
		run.ID, run.Dungeon, run.Level, run.StartTime.UTC().Format("2006-01-02 15:04"), missingLabels(run))
}

func conflictText(groups []ConflictGroup) string {
	var b strings.Builder
	b.WriteString("Scheduling conflicts between unfilled runs:")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n%s UTC:", g.Slot)
		for _, s := range g.Runs {
			fmt.Fprintf(&b, "\n  run %d %s +%s: %d/%d signed up", s.ID, s.Dungeon, s.Level, s.SignupCount, domain.TeamSize)
			if len(s.Missing) > 0 {
				labels := make([]string, len(s.Missing))
				for i, r := range s.Missing {
					labels[i] = r.Label()
				}
				fmt.Fprintf(&b, ", missing %s", strings.Join(labels, ", "))
			}
		}
	}
	return b.String()
}

func missingLabels(run *domain.Run) string {
	seen := make(map[domain.Role]bool)
	var labels []string
	for _, r := range run.Missing() {
		if !seen[r] {
			seen[r] = true
			labels = append(labels, r.Label())
		}
	}
	if len(labels) == 0 {
		return "nobody"
	}
	return strings.Join(labels, " or ")
}
