package backfill_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Satokaheni/mythic-plus-bot/internal/backfill"
	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

type pendingSet map[int64]bool

func (p pendingSet) Pending(participantID, _ int64) bool {
	return p[participantID]
}

func member(id int64, tier domain.Tier, roles ...domain.Role) *domain.Participant {
	return &domain.Participant{
		ID:        id,
		Roles:     roles,
		Tier:      tier,
		Committed: map[int64]bool{},
		Declined:  map[int64]bool{},
	}
}

func ids(cs []backfill.Candidate) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.Participant.ID
	}
	return out
}

var _ = Describe("Scheduler", func() {
	var (
		sched   *backfill.Scheduler
		run     *domain.Run
		created time.Time
		later   time.Time
	)

	BeforeEach(func() {
		sched = backfill.NewScheduler(backfill.DefaultQuiescence)
		created = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		later = created.Add(90 * time.Minute)

		var err error
		run, err = domain.NewRun(100, "Dawnbreaker", "11", created.Add(24*time.Hour), time.Time{}, created)
		Expect(err).NotTo(HaveOccurred())
	})

	It("solicits nobody during quiescence", func() {
		pool := []*domain.Participant{member(1, domain.TierHigh, domain.RoleTank)}
		Expect(sched.Candidates(run, pool, nil, created.Add(59*time.Minute))).To(BeEmpty())
		Expect(sched.Candidates(run, pool, nil, created.Add(time.Hour))).To(HaveLen(1))
	})

	It("admits only the most willing at low urgency", func() {
		pool := []*domain.Participant{
			member(1, domain.TierHigh, domain.RoleDPS),
			member(2, domain.TierMedium, domain.RoleDPS),
			member(3, domain.TierLow, domain.RoleDPS),
		}
		Expect(ids(sched.Candidates(run, pool, nil, later))).To(Equal([]int64{1}))

		run.Advance()
		run.Advance()
		Expect(ids(sched.Candidates(run, pool, nil, later))).To(Equal([]int64{1, 2}))

		for !run.Exhausted() {
			run.Advance()
		}
		Expect(ids(sched.Candidates(run, pool, nil, later))).To(Equal([]int64{1, 2, 3}))
	})

	It("ranks by availability, then commitments, then id", func() {
		busy := member(1, domain.TierHigh, domain.RoleDPS)
		busy.Committed[7] = true
		pool := []*domain.Participant{
			member(4, domain.TierMedium, domain.RoleDPS),
			busy,
			member(3, domain.TierHigh, domain.RoleDPS),
			member(2, domain.TierHigh, domain.RoleDPS),
		}
		for !run.Exhausted() {
			run.Advance()
		}
		Expect(ids(sched.Candidates(run, pool, nil, later))).To(Equal([]int64{2, 3, 1, 4}))
	})

	It("excludes pending, committed and declined participants", func() {
		committed := member(2, domain.TierHigh, domain.RoleDPS)
		committed.Committed[run.ID] = true
		declined := member(3, domain.TierHigh, domain.RoleDPS)
		declined.Declined[run.ID] = true
		pool := []*domain.Participant{
			member(1, domain.TierHigh, domain.RoleDPS),
			committed,
			declined,
			member(4, domain.TierHigh, domain.RoleDPS),
		}
		got := sched.Candidates(run, pool, pendingSet{4: true}, later)
		Expect(ids(got)).To(Equal([]int64{1}))
	})

	It("gates on the primary role during the primary pass", func() {
		_, err := run.Signup(member(9, domain.TierHigh, domain.RoleTank))
		Expect(err).NotTo(HaveOccurred())

		pool := []*domain.Participant{
			member(1, domain.TierHigh, domain.RoleTank, domain.RoleDPS),
			member(2, domain.TierHigh, domain.RoleHealer),
		}
		got := sched.Candidates(run, pool, nil, later)
		Expect(ids(got)).To(Equal([]int64{2}))
		Expect(got[0].Role).To(Equal(domain.RoleHealer))

		run.Advance()
		got = sched.Candidates(run, pool, nil, later)
		Expect(ids(got)).To(Equal([]int64{1}))
		Expect(got[0].Role).To(Equal(domain.RoleDPS))
	})
})
