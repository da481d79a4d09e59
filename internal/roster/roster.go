// Package roster owns all mutable state of the roster-fill engine: the
// participant registry, the run set and the outreach tracker.
//
// Every method is synchronous and must be called from a single goroutine
// (see package engine). Operations return the Effects the caller performs
// after persisting the new state.
package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/common/id"
	"github.com/Satokaheni/mythic-plus-bot/internal/backfill"
	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/outreach"
	"github.com/Satokaheni/mythic-plus-bot/internal/registry"
)

// Config holds the timers and thresholds of the fill protocol.
type Config struct {
	OverseerID      int64
	RepostAfter     time.Duration
	AskThreshold    int
	OutreachTimeout time.Duration
	ReminderWindow  time.Duration
	Quiescence      time.Duration
}

// DefaultConfig returns the protocol defaults.
func DefaultConfig() Config {
	return Config{
		RepostAfter:     24 * time.Hour,
		AskThreshold:    5,
		OutreachTimeout: 2 * time.Hour,
		ReminderWindow:  2 * time.Hour,
		Quiescence:      backfill.DefaultQuiescence,
	}
}

type Roster struct {
	cfg       Config
	registry  *registry.Registry
	tracker   *outreach.Tracker
	scheduler *backfill.Scheduler
	runs      map[int64]*domain.Run
	newID     func() int64

	// Runs edited before their first post finished; re-rendered once the
	// handle arrives.
	staleRender map[int64]bool
}

type Option func(*options)

type options struct {
	newID     func() int64
	newHandle func() string
}

// WithIDFunc overrides run id generation.
func WithIDFunc(fn func() int64) Option {
	return func(o *options) { o.newID = fn }
}

// WithHandleFunc overrides outreach handle generation.
func WithHandleFunc(fn func() string) Option {
	return func(o *options) { o.newHandle = fn }
}

func New(cfg Config, opts ...Option) *Roster {
	return Restore(cfg, domain.EmptySnapshot(), opts...)
}

// Restore rebuilds a roster from a snapshot. Outreach records pointing at
// unknown runs or participants are discarded.
func Restore(cfg Config, snap domain.Snapshot, opts ...Option) *Roster {
	o := options{newID: id.New, newHandle: id.NewHandle}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.AskThreshold < 1 {
		cfg.AskThreshold = 1
	}

	r := &Roster{
		cfg:         cfg,
		registry:    registry.Restore(snap.Participants),
		scheduler:   backfill.NewScheduler(cfg.Quiescence),
		runs:        make(map[int64]*domain.Run, len(snap.Runs)),
		newID:       o.newID,
		staleRender: make(map[int64]bool),
	}
	for i := range snap.Runs {
		run := snap.Runs[i].Clone()
		run.Recount()
		r.runs[run.ID] = &run
	}

	records := make([]domain.OutreachRecord, 0, len(snap.Outreach))
	for _, rec := range snap.Outreach {
		if _, ok := r.runs[rec.RunID]; !ok {
			continue
		}
		if r.registry.Lookup(rec.ParticipantID) == nil {
			continue
		}
		records = append(records, rec)
	}
	r.tracker = outreach.Restore(records, outreach.WithHandleFunc(o.newHandle))
	return r
}

// Snapshot captures the full state as deep copies.
func (r *Roster) Snapshot(now time.Time) domain.Snapshot {
	snap := domain.EmptySnapshot()
	snap.SavedAt = now
	snap.Participants = r.registry.Snapshot()
	for _, run := range r.sortedRuns() {
		snap.Runs = append(snap.Runs, run.Clone())
	}
	snap.Outreach = r.tracker.Records()
	return snap
}

func (r *Roster) Config() Config {
	return r.cfg
}

func (r *Roster) Participant(participantID int64) (domain.Participant, error) {
	p, err := r.registry.Get(participantID)
	if err != nil {
		return domain.Participant{}, err
	}
	return p.Clone(), nil
}

func (r *Roster) Participants() []domain.Participant {
	return r.registry.Snapshot()
}

func (r *Roster) Run(runID int64, now time.Time) (domain.RunSummary, error) {
	run, err := r.run(runID)
	if err != nil {
		return domain.RunSummary{}, err
	}
	return r.summarize(run, now), nil
}

// Runs lists every run ordered by start time.
func (r *Roster) Runs(now time.Time) []domain.RunSummary {
	runs := r.sortedRuns()
	out := make([]domain.RunSummary, len(runs))
	for i, run := range runs {
		out[i] = r.summarize(run, now)
	}
	return out
}

func (r *Roster) Outreach() []domain.OutreachRecord {
	return r.tracker.Records()
}

func (r *Roster) run(runID int64) (*domain.Run, error) {
	run, ok := r.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: run %d", domain.ErrNotFound, runID)
	}
	return run, nil
}

// sortedRuns orders by start time, then id.
func (r *Roster) sortedRuns() []*domain.Run {
	out := make([]*domain.Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Roster) summarize(run *domain.Run, now time.Time) domain.RunSummary {
	return run.Summarize(now, r.registry.Lookup)
}

func (r *Roster) postText(run *domain.Run, now time.Time) string {
	return r.summarize(run, now).Text(time.UTC)
}

// render emits an edit of the run post, or defers it until the first post
// reports its handle.
func (r *Roster) render(run *domain.Run, now time.Time) []Effect {
	if run.Handle == "" {
		r.staleRender[run.ID] = true
		return nil
	}
	return []Effect{{Kind: EffectEditRun, RunID: run.ID, Handle: run.Handle, Text: r.postText(run, now)}}
}

func (r *Roster) toOverseer(text string) []Effect {
	if r.cfg.OverseerID == 0 {
		return nil
	}
	return []Effect{notify(r.cfg.OverseerID, text)}
}

// membersOf lists registered seated members.
func (r *Roster) membersOf(run *domain.Run) []*domain.Participant {
	var out []*domain.Participant
	for _, m := range run.Members() {
		if p := r.registry.Lookup(m.ParticipantID); p != nil {
			out = append(out, p)
		}
	}
	return out
}
