// Package engine serializes every roster mutation through one goroutine,
// snapshots state after each mutation and dispatches the resulting effects.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
	"github.com/Satokaheni/mythic-plus-bot/internal/store"
	"github.com/Satokaheni/mythic-plus-bot/internal/transport"
)

// ErrStopped is returned for work submitted after the engine stopped.
var ErrStopped = errors.New("engine stopped")

// Mutation changes roster state and returns the effects to perform once the
// new state is saved.
type Mutation func(r *roster.Roster, now time.Time) ([]roster.Effect, error)

// View reads roster state. It must not mutate.
type View func(r *roster.Roster, now time.Time)

type Config struct {
	SendTimeout    time.Duration
	MaxConcurrency int
	// Now defaults to time.Now.
	Now func() time.Time
}

type op struct {
	ctx    context.Context
	name   string
	mutate Mutation
	view   View
	done   chan error
}

type Engine struct {
	roster    *roster.Roster
	store     store.SnapshotStore
	transport transport.Transport
	cfg       Config

	ops       chan op
	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  sync.Once
	inflight  sync.WaitGroup
}

// New loads the last snapshot and builds the roster. A snapshot that cannot
// be read is logged and replaced by empty state.
func New(ctx context.Context, rosterCfg roster.Config, st store.SnapshotStore, tr transport.Transport, cfg Config, opts ...roster.Option) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	snap, err := st.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load roster snapshot, starting empty", "error", err)
		snap = domain.EmptySnapshot()
	}

	slog.InfoContext(ctx, "roster state loaded",
		"participants", len(snap.Participants),
		"runs", len(snap.Runs),
		"outreach", len(snap.Outreach))

	return &Engine{
		roster:    roster.Restore(rosterCfg, snap, opts...),
		store:     st,
		transport: tr,
		cfg:       cfg,
		ops:       make(chan op),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run executes submitted work until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "roster.engine"})
	defer close(e.stoppedCh)

	slog.InfoContext(ctx, "engine started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			slog.InfoContext(ctx, "engine stopping")
			return nil
		case o := <-e.ops:
			o.done <- e.execute(o)
		}
	}
}

// Stop ends the loop and waits for in-flight effect dispatches.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	<-e.stoppedCh
	e.inflight.Wait()
}

// Do runs a mutation on the owner goroutine and waits for it to finish.
func (e *Engine) Do(ctx context.Context, name string, fn Mutation) error {
	return e.submit(ctx, op{ctx: ctx, name: name, mutate: fn, done: make(chan error, 1)})
}

// Read runs a read-only view on the owner goroutine.
func (e *Engine) Read(ctx context.Context, fn View) error {
	return e.submit(ctx, op{ctx: ctx, name: "read", view: fn, done: make(chan error, 1)})
}

func (e *Engine) submit(ctx context.Context, o op) error {
	select {
	case e.ops <- o:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopCh:
		return ErrStopped
	}
	select {
	case err := <-o.done:
		return err
	case <-e.stoppedCh:
		// The loop may have exited right after taking the op.
		select {
		case err := <-o.done:
			return err
		default:
			return ErrStopped
		}
	}
}

func (e *Engine) execute(o op) (err error) {
	now := e.cfg.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(o.ctx, "panic recovered in roster operation", "panic", r, "operation", o.name)
			err = fmt.Errorf("panic in %s: %v", o.name, r)
		}
	}()

	if o.view != nil {
		o.view(e.roster, now)
		return nil
	}

	sc := logger.StartSpan(o.ctx, "engine."+o.name)
	defer sc.End()
	ctx := sc.Context()

	effects, err := o.mutate(e.roster, now)
	if err != nil {
		sc.RecordError(err)
	}

	e.persist(ctx, now)
	e.dispatch(ctx, effects)
	return err
}

// persist saves the full state. A failed save is logged; the next mutation
// saves everything again.
func (e *Engine) persist(ctx context.Context, now time.Time) {
	if err := e.store.Save(ctx, e.roster.Snapshot(now)); err != nil {
		slog.ErrorContext(ctx, "failed to save roster snapshot", "error", err)
	}
}

// dispatch sends effects on a separate goroutine so the owner loop is never
// blocked by the transport.
func (e *Engine) dispatch(ctx context.Context, effects []roster.Effect) {
	if len(effects) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.MaxConcurrency)
		for _, eff := range effects {
			g.Go(func() error {
				e.perform(gctx, eff)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (e *Engine) perform(ctx context.Context, eff roster.Effect) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout)
	defer cancel()

	fields := logger.LogFields{EventType: logger.Ptr(string(eff.Kind))}
	if eff.RunID != 0 {
		fields.RunID = logger.Ptr(eff.RunID)
	}
	if eff.ParticipantID != 0 {
		fields.ParticipantID = logger.Ptr(eff.ParticipantID)
	}
	if eff.Handle != "" {
		fields.Handle = logger.Ptr(eff.Handle)
	}
	ctx = logger.WithLogFields(ctx, fields)

	switch eff.Kind {
	case roster.EffectNotify:
		if err := e.transport.Notify(ctx, eff.ParticipantID, eff.Text); err != nil {
			slog.WarnContext(ctx, "notification not delivered", "error", err)
		}

	case roster.EffectSolicit:
		err := e.transport.Solicit(ctx, eff.ParticipantID, eff.Handle, eff.Text)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "solicitation not delivered, dropping outreach", "error", err)
		handle := eff.Handle
		e.submitAsync(ctx, "delivery_failed", func(r *roster.Roster, _ time.Time) ([]roster.Effect, error) {
			r.DeliveryFailed(handle)
			return nil, nil
		})

	case roster.EffectPostRun:
		handle, err := e.transport.PostRun(ctx, eff.RunID, eff.Text)
		if err != nil {
			slog.ErrorContext(ctx, "failed to post run", "error", err)
			return
		}
		if eff.Replaces != "" {
			if err := e.transport.DeleteRun(ctx, eff.Replaces); err != nil {
				slog.WarnContext(ctx, "failed to delete replaced run post", "error", err, "replaced", eff.Replaces)
			}
		}
		runID := eff.RunID
		e.submitAsync(ctx, "run_posted", func(r *roster.Roster, now time.Time) ([]roster.Effect, error) {
			return r.RunPosted(runID, handle, now), nil
		})

	case roster.EffectEditRun:
		if err := e.transport.EditRun(ctx, eff.Handle, eff.Text); err != nil {
			slog.WarnContext(ctx, "failed to edit run post", "error", err)
		}

	case roster.EffectDeleteRun:
		if err := e.transport.DeleteRun(ctx, eff.Handle); err != nil {
			slog.WarnContext(ctx, "failed to delete run post", "error", err)
		}

	default:
		slog.ErrorContext(ctx, "unknown effect kind", "kind", eff.Kind)
	}
}

// submitAsync feeds a transport result back into the owner loop. It gives up
// silently once the engine is stopping.
func (e *Engine) submitAsync(ctx context.Context, name string, fn Mutation) {
	o := op{ctx: context.WithoutCancel(ctx), name: name, mutate: fn, done: make(chan error, 1)}
	select {
	case e.ops <- o:
	case <-e.stopCh:
		slog.WarnContext(ctx, "engine stopped, dropping result", "operation", name)
	}
}
