package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/engine"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
	"github.com/Satokaheni/mythic-plus-bot/internal/transport"
)

type memoryStore struct {
	mu    sync.Mutex
	snap  domain.Snapshot
	saves int
	fail  error
}

func (s *memoryStore) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *memoryStore) Save(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.fail != nil {
		return s.fail
	}
	s.snap = snap
	return nil
}

func (s *memoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *memoryStore) Last() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

type recordingTransport struct {
	mu          sync.Mutex
	unreachable map[int64]bool
	notified    []int64
	solicited   []int64
	posted      []int64
	deleted     []string
	nextPost    int
}

func (t *recordingTransport) Notify(_ context.Context, pid int64, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notified = append(t.notified, pid)
	return nil
}

func (t *recordingTransport) Solicit(_ context.Context, pid int64, _ string, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unreachable[pid] {
		return transport.ErrUnreachable
	}
	t.solicited = append(t.solicited, pid)
	return nil
}

func (t *recordingTransport) PostRun(_ context.Context, runID int64, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextPost++
	t.posted = append(t.posted, runID)
	return fmt.Sprintf("post-%d", t.nextPost), nil
}

func (t *recordingTransport) EditRun(_ context.Context, _ string, _ string) error {
	return nil
}

func (t *recordingTransport) DeleteRun(_ context.Context, handle string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = append(t.deleted, handle)
	return nil
}

func (t *recordingTransport) Solicited() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.solicited...)
}

func (t *recordingTransport) Posted() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.posted...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		st     *memoryStore
		tr     *recordingTransport
		eng    *engine.Engine
		clock  *fakeClock
		runErr chan error
	)

	t0 := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	register := func(id int64, tier domain.Tier, roles ...domain.Role) {
		err := eng.Do(ctx, "register", func(r *roster.Roster, _ time.Time) ([]roster.Effect, error) {
			_, _, effects, err := r.Register(domain.Participant{ID: id, Name: fmt.Sprintf("p%d", id), Roles: roles, Tier: tier})
			return effects, err
		})
		Expect(err).NotTo(HaveOccurred())
	}

	requestRun := func() int64 {
		var runID int64
		err := eng.Do(ctx, "request_run", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
			res, effects, err := r.RequestRun(roster.RunRequest{
				RequesterID: 1,
				Dungeon:     "Ara-Kara",
				Level:       "10",
				StartTime:   now.Add(48 * time.Hour),
			}, now)
			runID = res.Run.ID
			return effects, err
		})
		Expect(err).NotTo(HaveOccurred())
		return runID
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		st = &memoryStore{snap: domain.EmptySnapshot()}
		tr = &recordingTransport{unreachable: map[int64]bool{}}
		clock = &fakeClock{now: t0}

		cfg := roster.DefaultConfig()
		cfg.OverseerID = 999
		var nextID int64
		eng = engine.New(ctx, cfg, st, tr, engine.Config{
			SendTimeout:    time.Second,
			MaxConcurrency: 4,
			Now:            clock.Now,
		}, roster.WithIDFunc(func() int64 {
			nextID++
			return nextID
		}))

		runErr = make(chan error, 1)
		go func() { runErr <- eng.Run(ctx) }()
	})

	AfterEach(func() {
		eng.Stop()
		cancel()
		Eventually(runErr).Should(Receive(BeNil()))
	})

	It("saves a snapshot after every mutation", func() {
		register(1, domain.TierHigh, domain.RoleTank)
		register(2, domain.TierHigh, domain.RoleHealer)

		Expect(st.Saves()).To(Equal(2))
		Expect(st.Last().Participants).To(HaveLen(2))
	})

	It("returns the mutation error and still saves", func() {
		err := eng.Do(ctx, "signup", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
			_, effects, err := r.Signup(5, 77, now)
			return effects, err
		})
		Expect(errors.Is(err, domain.ErrNotFound)).To(BeTrue())
		Expect(st.Saves()).To(Equal(1))
	})

	It("keeps working when the store fails", func() {
		st.fail = domain.ErrPersistence
		register(1, domain.TierHigh, domain.RoleTank)

		var participants []domain.Participant
		Expect(eng.Read(ctx, func(r *roster.Roster, _ time.Time) {
			participants = r.Participants()
		})).To(Succeed())
		Expect(participants).To(HaveLen(1))
	})

	It("records the post handle once the transport returns it", func() {
		register(1, domain.TierHigh, domain.RoleTank)
		runID := requestRun()

		Eventually(tr.Posted).Should(ConsistOf(runID))
		Eventually(func() string {
			var handle string
			_ = eng.Read(ctx, func(r *roster.Roster, now time.Time) {
				s, err := r.Run(runID, now)
				if err == nil {
					handle = s.Handle
				}
			})
			return handle
		}).Should(Equal("post-1"))
	})

	It("drops outreach to an unreachable participant", func() {
		register(1, domain.TierHigh, domain.RoleTank)
		register(2, domain.TierHigh, domain.RoleHealer)
		register(3, domain.TierHigh, domain.RoleHealer)
		tr.unreachable[3] = true
		runID := requestRun()

		clock.Advance(time.Hour)
		Expect(eng.Do(ctx, "maintain", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
			_, effects := r.Maintain(now)
			return effects, nil
		})).To(Succeed())

		Eventually(tr.Solicited).Should(ContainElement(int64(2)))
		Eventually(func() []int64 {
			var pending []int64
			_ = eng.Read(ctx, func(r *roster.Roster, _ time.Time) {
				for _, rec := range r.Outreach() {
					pending = append(pending, rec.ParticipantID)
				}
			})
			return pending
		}).Should(ConsistOf(int64(2)))

		var p domain.Participant
		Expect(eng.Read(ctx, func(r *roster.Roster, _ time.Time) {
			p, _ = r.Participant(3)
		})).To(Succeed())
		Expect(p.HasDeclined(runID)).To(BeFalse())
	})

	It("refuses work after Stop", func() {
		eng.Stop()
		err := eng.Do(ctx, "noop", func(_ *roster.Roster, _ time.Time) ([]roster.Effect, error) {
			return nil, nil
		})
		Expect(err).To(MatchError(engine.ErrStopped))
	})
})
