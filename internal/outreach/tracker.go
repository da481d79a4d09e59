// Package outreach tracks pending solicitations until they are answered,
// dropped or swept.
package outreach

import (
	"fmt"
	"sort"
	"time"

	"github.com/Satokaheni/mythic-plus-bot/common/id"
	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

type pairKey struct {
	participantID int64
	runID         int64
}

// Tracker is the only writer of the outreach map. It is not safe for
// concurrent use.
type Tracker struct {
	byHandle  map[string]*domain.OutreachRecord
	byPair    map[pairKey]string
	newHandle func() string
}

type Option func(*Tracker)

// WithHandleFunc overrides handle generation.
func WithHandleFunc(fn func() string) Option {
	return func(t *Tracker) { t.newHandle = fn }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		byHandle:  make(map[string]*domain.OutreachRecord),
		byPair:    make(map[pairKey]string),
		newHandle: id.NewHandle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore rebuilds the tracker from persisted records. Duplicate pairs keep
// the most recent attempt.
func Restore(records []domain.OutreachRecord, opts ...Option) *Tracker {
	t := New(opts...)
	for _, rec := range records {
		key := pairKey{rec.ParticipantID, rec.RunID}
		if h, ok := t.byPair[key]; ok {
			if t.byHandle[h].Attempt >= rec.Attempt {
				continue
			}
			delete(t.byHandle, h)
		}
		r := rec
		t.byHandle[r.Handle] = &r
		t.byPair[key] = r.Handle
	}
	return t
}

// Send creates a record for the pair. It returns false when one is already
// pending.
func (t *Tracker) Send(participantID, runID int64, role domain.Role, now time.Time) (domain.OutreachRecord, bool) {
	return t.send(participantID, runID, role, now, 1)
}

func (t *Tracker) send(participantID, runID int64, role domain.Role, now time.Time, attempt int) (domain.OutreachRecord, bool) {
	key := pairKey{participantID, runID}
	if h, ok := t.byPair[key]; ok {
		return *t.byHandle[h], false
	}
	rec := &domain.OutreachRecord{
		Handle:        t.newHandle(),
		ParticipantID: participantID,
		RunID:         runID,
		Role:          role,
		SentAt:        now,
		Attempt:       attempt,
	}
	t.byHandle[rec.Handle] = rec
	t.byPair[key] = rec.Handle
	return *rec, true
}

// Pending reports whether a record exists for the pair.
func (t *Tracker) Pending(participantID, runID int64) bool {
	_, ok := t.byPair[pairKey{participantID, runID}]
	return ok
}

func (t *Tracker) Get(handle string) (domain.OutreachRecord, bool) {
	rec, ok := t.byHandle[handle]
	if !ok {
		return domain.OutreachRecord{}, false
	}
	return *rec, true
}

// Resolve removes and returns the record for a response.
func (t *Tracker) Resolve(handle string) (domain.OutreachRecord, error) {
	rec, ok := t.byHandle[handle]
	if !ok {
		return domain.OutreachRecord{}, fmt.Errorf("%w: no pending outreach for handle %q", domain.ErrStaleReference, handle)
	}
	t.remove(rec)
	return *rec, nil
}

// Drop removes a record without any further effect. It reports whether the
// record existed.
func (t *Tracker) Drop(handle string) bool {
	rec, ok := t.byHandle[handle]
	if !ok {
		return false
	}
	t.remove(rec)
	return true
}

// DropPair removes the record for a participant and run, if any.
func (t *Tracker) DropPair(participantID, runID int64) bool {
	h, ok := t.byPair[pairKey{participantID, runID}]
	if !ok {
		return false
	}
	return t.Drop(h)
}

// DropRun deletes every record that references the run.
func (t *Tracker) DropRun(runID int64) int {
	n := 0
	for _, rec := range t.byHandle {
		if rec.RunID == runID {
			t.remove(rec)
			n++
		}
	}
	return n
}

// SweepResult lists what Sweep did.
type SweepResult struct {
	Retried []domain.OutreachRecord
	Dropped []domain.OutreachRecord
}

// RetryFunc decides whether a stale record should be asked again and for
// which role.
type RetryFunc func(rec domain.OutreachRecord) (domain.Role, bool)

// Sweep handles records older than timeout. For each, retry decides whether
// the pair should be asked again; if so the record is replaced by exactly one
// fresh record for the returned role with the next attempt number, otherwise
// it is dropped.
func (t *Tracker) Sweep(now time.Time, timeout time.Duration, retry RetryFunc) SweepResult {
	var stale []*domain.OutreachRecord
	for _, rec := range t.byHandle {
		if now.Sub(rec.SentAt) >= timeout {
			stale = append(stale, rec)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].Handle < stale[j].Handle })

	var res SweepResult
	for _, rec := range stale {
		t.remove(rec)
		if retry != nil {
			if role, ok := retry(*rec); ok {
				fresh, _ := t.send(rec.ParticipantID, rec.RunID, role, now, rec.Attempt+1)
				res.Retried = append(res.Retried, fresh)
				continue
			}
		}
		res.Dropped = append(res.Dropped, *rec)
	}
	return res
}

// Records returns copies of every record ordered by run, then participant.
func (t *Tracker) Records() []domain.OutreachRecord {
	out := make([]domain.OutreachRecord, 0, len(t.byHandle))
	for _, rec := range t.byHandle {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RunID != out[j].RunID {
			return out[i].RunID < out[j].RunID
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out
}

func (t *Tracker) Len() int {
	return len(t.byHandle)
}

func (t *Tracker) remove(rec *domain.OutreachRecord) {
	delete(t.byHandle, rec.Handle)
	delete(t.byPair, pairKey{rec.ParticipantID, rec.RunID})
}
