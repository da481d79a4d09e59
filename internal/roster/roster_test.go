package roster_test

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
)

const overseer = int64(999)

var t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newRoster() *roster.Roster {
	var nextID int64 = 100
	var nextHandle int
	cfg := roster.DefaultConfig()
	cfg.OverseerID = overseer
	return roster.New(cfg,
		roster.WithIDFunc(func() int64 {
			nextID++
			return nextID
		}),
		roster.WithHandleFunc(func() string {
			nextHandle++
			return fmt.Sprintf("h%d", nextHandle)
		}),
	)
}

func register(r *roster.Roster, id int64, tier domain.Tier, roles ...domain.Role) {
	_, _, _, err := r.Register(domain.Participant{ID: id, Name: fmt.Sprintf("p%d", id), Roles: roles, Tier: tier})
	Expect(err).NotTo(HaveOccurred())
}

func request(r *roster.Roster, requester int64, start time.Time) domain.RunSummary {
	res, _, err := r.RequestRun(roster.RunRequest{
		RequesterID: requester,
		Dungeon:     "Stonevault",
		Level:       "10",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
	}, t0)
	Expect(err).NotTo(HaveOccurred())
	return res.Run
}

func kinds(effects []roster.Effect, kind roster.EffectKind) []roster.Effect {
	var out []roster.Effect
	for _, e := range effects {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func notified(effects []roster.Effect, participantID int64) bool {
	for _, e := range kinds(effects, roster.EffectNotify) {
		if e.ParticipantID == participantID {
			return true
		}
	}
	return false
}

var _ = Describe("Roster", func() {
	var r *roster.Roster

	BeforeEach(func() {
		r = newRoster()
		register(r, 1, domain.TierHigh, domain.RoleTank)
	})

	Describe("RequestRun", func() {
		It("creates a run with the requester signed up and posts it", func() {
			res, effects, err := r.RequestRun(roster.RunRequest{
				RequesterID: 1, Dungeon: "Stonevault", Level: "10", StartTime: t0.Add(48 * time.Hour),
			}, t0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Merged).To(BeFalse())
			Expect(res.Run.Tank.ParticipantID).To(Equal(int64(1)))
			Expect(res.Run.Missing).To(HaveLen(4))
			Expect(kinds(effects, roster.EffectPostRun)).To(HaveLen(1))

			p, _ := r.Participant(1)
			Expect(p.IsCommitted(res.Run.ID)).To(BeTrue())
		})

		It("merges a request with the same schedule", func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			first := request(r, 1, t0.Add(48*time.Hour))

			res, effects, err := r.RequestRun(roster.RunRequest{
				RequesterID: 2, Dungeon: "Other", Level: "10", StartTime: t0.Add(48 * time.Hour),
			}, t0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Merged).To(BeTrue())
			Expect(res.Run.ID).To(Equal(first.ID))
			Expect(res.Run.Healer.ParticipantID).To(Equal(int64(2)))
			Expect(kinds(effects, roster.EffectPostRun)).To(BeEmpty())
			Expect(r.Runs(t0)).To(HaveLen(1))
		})

		It("requires a registered requester", func() {
			_, _, err := r.RequestRun(roster.RunRequest{
				RequesterID: 42, Level: "10", StartTime: t0.Add(time.Hour),
			}, t0)
			Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Signup and Withdraw", func() {
		var run domain.RunSummary

		BeforeEach(func() {
			run = request(r, 1, t0.Add(48*time.Hour))
			r.RunPosted(run.ID, "post-1", t0)
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			register(r, 3, domain.TierHigh, domain.RoleDPS)
			register(r, 4, domain.TierHigh, domain.RoleDPS)
			register(r, 5, domain.TierHigh, domain.RoleDPS)
			register(r, 6, domain.TierHigh, domain.RoleDPS)
		})

		It("notifies every member when the group fills", func() {
			var effects []roster.Effect
			for _, id := range []int64{2, 3, 4, 5} {
				_, e, err := r.Signup(id, run.ID, t0)
				Expect(err).NotTo(HaveOccurred())
				effects = e
			}
			Expect(kinds(effects, roster.EffectNotify)).To(HaveLen(1 + domain.TeamSize))
			Expect(kinds(effects, roster.EffectEditRun)[0].Handle).To(Equal("post-1"))

			summary, _ := r.Run(run.ID, t0)
			Expect(summary.State).To(Equal(domain.RunFilled))
		})

		It("promotes from overflow and tells the promoted participant", func() {
			for _, id := range []int64{2, 3, 4, 5, 6} {
				_, _, err := r.Signup(id, run.ID, t0)
				Expect(err).NotTo(HaveOccurred())
			}

			change, effects, err := r.Withdraw(3, run.ID, t0)
			Expect(err).NotTo(HaveOccurred())
			Expect(change.Promoted.ParticipantID).To(Equal(int64(6)))
			Expect(notified(effects, 6)).To(BeTrue())

			summary, _ := r.Run(run.ID, t0)
			Expect(summary.Filled).To(BeTrue())
			p, _ := r.Participant(3)
			Expect(p.IsCommitted(run.ID)).To(BeFalse())
		})

		It("tells remaining members when the group loses its full status", func() {
			for _, id := range []int64{2, 3, 4, 5} {
				_, _, err := r.Signup(id, run.ID, t0)
				Expect(err).NotTo(HaveOccurred())
			}

			change, effects, err := r.Withdraw(2, run.ID, t0)
			Expect(err).NotTo(HaveOccurred())
			Expect(change.Changed()).To(BeTrue())
			Expect(notified(effects, 1)).To(BeTrue())
		})

		It("rejects signups for a started run", func() {
			_, _, err := r.Signup(2, run.ID, run.StartTime)
			Expect(errors.Is(err, domain.ErrInvalidTransition)).To(BeTrue())
		})
	})

	Describe("solicitation", func() {
		var run domain.RunSummary

		BeforeEach(func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			register(r, 3, domain.TierMedium, domain.RoleHealer)
			run = request(r, 1, t0.Add(48*time.Hour))
		})

		It("waits for quiescence before asking anyone", func() {
			report, effects := r.Maintain(t0.Add(30 * time.Minute))
			Expect(report.Solicited).To(BeEmpty())
			Expect(kinds(effects, roster.EffectSolicit)).To(BeEmpty())

			report, effects = r.Maintain(t0.Add(time.Hour))
			Expect(report.Solicited).To(ConsistOf(run.ID))
			solicits := kinds(effects, roster.EffectSolicit)
			Expect(solicits).To(HaveLen(1))
			Expect(solicits[0].ParticipantID).To(Equal(int64(2)))
			Expect(solicits[0].Role).To(Equal(domain.RoleHealer))
		})

		It("signs up a participant who accepts", func() {
			_, effects := r.Maintain(t0.Add(time.Hour))
			handle := kinds(effects, roster.EffectSolicit)[0].Handle

			resp, _, err := r.Respond(handle, true, t0.Add(90*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Outcome).To(Equal(roster.ResponseAccepted))
			Expect(resp.Assignment.Role).To(Equal(domain.RoleHealer))
			Expect(r.Outreach()).To(BeEmpty())

			_, _, err = r.Respond(handle, true, t0.Add(90*time.Minute))
			Expect(errors.Is(err, domain.ErrStaleReference)).To(BeTrue())
		})

		It("never asks a participant again after a decline", func() {
			_, effects := r.Maintain(t0.Add(time.Hour))
			handle := kinds(effects, roster.EffectSolicit)[0].Handle

			resp, _, err := r.Respond(handle, false, t0.Add(90*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Outcome).To(Equal(roster.ResponseDeclined))

			summary, _, err := r.FillNow(run.ID, t0.Add(2*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage.PrimaryPass).To(BeFalse())
			for i := 0; i < 4; i++ {
				_, effects, err = r.FillNow(run.ID, t0.Add(2*time.Hour))
				Expect(err).NotTo(HaveOccurred())
				for _, e := range kinds(effects, roster.EffectSolicit) {
					Expect(e.ParticipantID).NotTo(Equal(int64(2)))
				}
			}
		})

		It("drops an undeliverable ask without recording a decline", func() {
			_, effects := r.Maintain(t0.Add(time.Hour))
			handle := kinds(effects, roster.EffectSolicit)[0].Handle

			Expect(r.DeliveryFailed(handle)).To(BeTrue())
			Expect(r.Outreach()).To(BeEmpty())
			p, _ := r.Participant(2)
			Expect(p.HasDeclined(run.ID)).To(BeFalse())
		})

		It("escalates after the ask threshold and reports exhaustion once", func() {
			now := t0.Add(time.Hour)
			r.Maintain(now)

			var exhausted []int64
			var overseerMessages int
			for cycle := 1; cycle <= 40; cycle++ {
				now = now.Add(time.Hour)
				report, effects := r.Maintain(now)
				exhausted = append(exhausted, report.Exhausted...)
				for _, e := range kinds(effects, roster.EffectNotify) {
					if e.ParticipantID == overseer {
						overseerMessages++
					}
				}
			}

			summary, err := r.Run(run.ID, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage.Tier).To(Equal(domain.TierHigh))
			Expect(exhausted).To(ConsistOf(run.ID))
			Expect(overseerMessages).To(Equal(1))
		})

		It("stops asking on its own once the run is exhausted", func() {
			now := t0.Add(time.Hour)
			r.Maintain(now)
			for i := 0; i < 4; i++ {
				_, _, err := r.FillNow(run.ID, now)
				Expect(err).NotTo(HaveOccurred())
			}
			summary, err := r.Run(run.ID, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage.Tier).To(Equal(domain.TierHigh))

			register(r, 4, domain.TierLow, domain.RoleDPS)
			for cycle := 1; cycle <= 6; cycle++ {
				now = now.Add(30 * time.Minute)
				_, effects := r.Maintain(now)
				for _, e := range kinds(effects, roster.EffectSolicit) {
					Expect(e.ParticipantID).NotTo(Equal(int64(4)))
				}
			}

			_, effects, err := r.FillNow(run.ID, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(kinds(effects, roster.EffectSolicit)).To(ContainElement(
				HaveField("ParticipantID", int64(4))))
		})

		It("tells a participant who accepts a filled run that it no longer needs them", func() {
			_, effects := r.Maintain(t0.Add(time.Hour))
			handle := kinds(effects, roster.EffectSolicit)[0].Handle

			register(r, 4, domain.TierHigh, domain.RoleDPS)
			register(r, 5, domain.TierHigh, domain.RoleDPS)
			register(r, 6, domain.TierHigh, domain.RoleDPS)
			for _, id := range []int64{3, 4, 5, 6} {
				_, _, err := r.Signup(id, run.ID, t0.Add(time.Hour))
				Expect(err).NotTo(HaveOccurred())
			}

			resp, effects, err := r.Respond(handle, true, t0.Add(2*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Outcome).To(Equal(roster.ResponseStale))
			Expect(notified(effects, 2)).To(BeTrue())
			Expect(r.Outreach()).To(BeEmpty())
		})
	})

	Describe("Maintain", func() {
		It("reposts a stale run under the same id with a new post", func() {
			run := request(r, 1, t0.Add(72*time.Hour))
			r.RunPosted(run.ID, "post-1", t0)

			report, effects := r.Maintain(t0.Add(24 * time.Hour))
			Expect(report.Reposted).To(ConsistOf(run.ID))
			posts := kinds(effects, roster.EffectPostRun)
			Expect(posts).To(HaveLen(1))
			Expect(posts[0].RunID).To(Equal(run.ID))
			Expect(posts[0].Replaces).To(Equal("post-1"))

			r.RunPosted(run.ID, "post-2", t0.Add(24*time.Hour))
			summary, _ := r.Run(run.ID, t0.Add(24*time.Hour))
			Expect(summary.Handle).To(Equal("post-2"))
		})

		It("reminds a filled group once inside the reminder window", func() {
			run := request(r, 1, t0.Add(3*time.Hour))
			for id, role := range map[int64]domain.Role{2: domain.RoleHealer, 3: domain.RoleDPS, 4: domain.RoleDPS, 5: domain.RoleDPS} {
				register(r, id, domain.TierHigh, role)
				_, _, err := r.Signup(id, run.ID, t0)
				Expect(err).NotTo(HaveOccurred())
			}

			report, _ := r.Maintain(t0.Add(30 * time.Minute))
			Expect(report.Reminded).To(BeEmpty())

			report, effects := r.Maintain(t0.Add(time.Hour))
			Expect(report.Reminded).To(ConsistOf(run.ID))
			Expect(kinds(effects, roster.EffectNotify)).To(HaveLen(domain.TeamSize))

			report, _ = r.Maintain(t0.Add(2 * time.Hour))
			Expect(report.Reminded).To(BeEmpty())
		})

		It("expires started runs with their outreach and commitments", func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			run := request(r, 1, t0.Add(3*time.Hour))
			r.RunPosted(run.ID, "post-1", t0)
			r.Maintain(t0.Add(time.Hour))
			Expect(r.Outreach()).To(HaveLen(1))

			report, effects := r.Maintain(run.StartTime)
			Expect(report.Expired).To(ConsistOf(run.ID))
			Expect(kinds(effects, roster.EffectDeleteRun)).To(HaveLen(1))
			Expect(r.Outreach()).To(BeEmpty())
			Expect(r.Runs(run.StartTime)).To(BeEmpty())

			p, _ := r.Participant(1)
			Expect(p.Commitments()).To(BeZero())
		})

		It("retries a stale ask for a forming run exactly once", func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			run := request(r, 1, t0.Add(48*time.Hour))
			r.Maintain(t0.Add(time.Hour))
			before := r.Outreach()
			Expect(before).To(HaveLen(1))

			sweepAt := t0.Add(3 * time.Hour)
			report, effects := r.Maintain(sweepAt)
			Expect(report.Retried).To(Equal(1))

			after := r.Outreach()
			Expect(after).To(HaveLen(1))
			Expect(after[0].RunID).To(Equal(run.ID))
			Expect(after[0].Handle).NotTo(Equal(before[0].Handle))
			Expect(after[0].SentAt).To(Equal(sweepAt))
			Expect(after[0].Attempt).To(Equal(2))
			Expect(kinds(effects, roster.EffectSolicit)).To(HaveLen(1))
		})

		It("retries a stale ask for the role the current stage needs", func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer, domain.RoleDPS)
			run := request(r, 1, t0.Add(48*time.Hour))
			_, effects := r.Maintain(t0.Add(time.Hour))
			first := kinds(effects, roster.EffectSolicit)
			Expect(first).To(HaveLen(1))
			Expect(first[0].Role).To(Equal(domain.RoleHealer))

			register(r, 3, domain.TierLow, domain.RoleHealer)
			_, _, err := r.Signup(3, run.ID, t0.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			summary, _, err := r.FillNow(run.ID, t0.Add(90*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Stage.PrimaryPass).To(BeFalse())

			report, effects := r.Maintain(t0.Add(3 * time.Hour))
			Expect(report.Retried).To(Equal(1))
			retried := kinds(effects, roster.EffectSolicit)
			Expect(retried).To(HaveLen(1))
			Expect(retried[0].ParticipantID).To(Equal(int64(2)))
			Expect(retried[0].Role).To(Equal(domain.RoleDPS))
			Expect(retried[0].Text).NotTo(ContainSubstring("Healer"))
			Expect(r.Outreach()[0].Role).To(Equal(domain.RoleDPS))
		})

		It("drops a stale ask for a filled run without retrying", func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			register(r, 3, domain.TierHigh, domain.RoleHealer)
			run := request(r, 1, t0.Add(48*time.Hour))
			r.Maintain(t0.Add(time.Hour))
			Expect(r.Outreach()).To(HaveLen(2))

			for id, role := range map[int64]domain.Role{4: domain.RoleHealer, 5: domain.RoleDPS, 6: domain.RoleDPS, 7: domain.RoleDPS} {
				register(r, id, domain.TierLow, role)
				_, _, err := r.Signup(id, run.ID, t0.Add(time.Hour))
				Expect(err).NotTo(HaveOccurred())
			}

			report, _ := r.Maintain(t0.Add(3 * time.Hour))
			Expect(report.Retried).To(BeZero())
			Expect(report.DroppedOutreach).To(Equal(2))
			Expect(r.Outreach()).To(BeEmpty())
		})

		It("reports two unfilled runs in the same hour as one conflict", func() {
			register(r, 2, domain.TierHigh, domain.RoleTank)
			a := request(r, 1, t0.Add(48*time.Hour))
			res, _, err := r.RequestRun(roster.RunRequest{
				RequesterID: 2, Dungeon: "Mists", Level: "12+", StartTime: t0.Add(48*time.Hour + 30*time.Minute),
			}, t0)
			Expect(err).NotTo(HaveOccurred())
			request(r, 1, t0.Add(50*time.Hour))

			groups := r.Conflicts(t0)
			Expect(groups).To(HaveLen(1))
			Expect(groups[0].Runs).To(HaveLen(2))
			Expect([]int64{groups[0].Runs[0].ID, groups[0].Runs[1].ID}).To(ConsistOf(a.ID, res.Run.ID))

			_, effects := r.Maintain(t0.Add(10 * time.Minute))
			Expect(notified(effects, overseer)).To(BeTrue())
		})
	})

	Describe("Snapshot", func() {
		It("restores the same state", func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			run := request(r, 1, t0.Add(48*time.Hour))
			r.Maintain(t0.Add(time.Hour))

			snap := r.Snapshot(t0)
			restored := roster.Restore(r.Config(), snap)

			Expect(restored.Runs(t0)).To(Equal(r.Runs(t0)))
			Expect(restored.Outreach()).To(Equal(r.Outreach()))
			Expect(restored.Participants()).To(Equal(r.Participants()))
			_, err := restored.Run(run.ID, t0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("derives the signup count from the seated members", func() {
			register(r, 2, domain.TierHigh, domain.RoleHealer)
			run := request(r, 1, t0.Add(48*time.Hour))
			_, _, err := r.Signup(2, run.ID, t0)
			Expect(err).NotTo(HaveOccurred())

			snap := r.Snapshot(t0)
			Expect(snap.Runs).To(HaveLen(1))
			snap.Runs[0].SignupCount = domain.TeamSize
			snap.Runs[0].Filled = true

			restored := roster.Restore(r.Config(), snap)
			summary, err := restored.Run(run.ID, t0)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.SignupCount).To(Equal(2))
			Expect(summary.Filled).To(BeFalse())
			Expect(summary.SignupCount).To(Equal(domain.TeamSize - len(summary.Missing)))
		})
	})
})
