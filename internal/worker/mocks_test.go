package worker_test

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
	"github.com/Satokaheni/mythic-plus-bot/internal/worker"
)

type mockConsumer struct {
	mu       sync.Mutex
	batches  [][]queue.Message
	acked    []string
	requeued []string
	dlq      []string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func (m *mockConsumer) Ack(ctx context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, msg.ID)
	return nil
}

func (m *mockConsumer) SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlq = append(m.dlq, msg.ID)
	return nil
}

func (m *mockConsumer) snapshot() (acked, requeued, dlq []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...), append([]string(nil), m.requeued...), append([]string(nil), m.dlq...)
}

type mockHandler struct {
	registerFn        func(ctx context.Context, params service.RegisterParams) (domain.Participant, bool, error)
	setAvailabilityFn func(ctx context.Context, participantID int64, tier domain.Tier) error
	requestRunFn      func(ctx context.Context, participantID int64, params service.RunRequestParams) (roster.RequestResult, error)
	signupFn          func(ctx context.Context, participantID, runID int64) (domain.AssignmentResult, error)
	withdrawFn        func(ctx context.Context, participantID, runID int64) (domain.FillChange, error)
	respondFn         func(ctx context.Context, handle string, accept bool) (roster.Response, error)
	deliveryFailedFn  func(ctx context.Context, handle string) (bool, error)
}

func (m *mockHandler) Register(ctx context.Context, params service.RegisterParams) (domain.Participant, bool, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, params)
	}
	return domain.Participant{ID: params.ID}, true, nil
}

func (m *mockHandler) SetAvailability(ctx context.Context, participantID int64, tier domain.Tier) error {
	if m.setAvailabilityFn != nil {
		return m.setAvailabilityFn(ctx, participantID, tier)
	}
	return nil
}

func (m *mockHandler) RequestRun(ctx context.Context, participantID int64, params service.RunRequestParams) (roster.RequestResult, error) {
	if m.requestRunFn != nil {
		return m.requestRunFn(ctx, participantID, params)
	}
	return roster.RequestResult{}, nil
}

func (m *mockHandler) Signup(ctx context.Context, participantID, runID int64) (domain.AssignmentResult, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, participantID, runID)
	}
	return domain.AssignmentResult{}, nil
}

func (m *mockHandler) Withdraw(ctx context.Context, participantID, runID int64) (domain.FillChange, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, participantID, runID)
	}
	return domain.FillChange{}, nil
}

func (m *mockHandler) Respond(ctx context.Context, handle string, accept bool) (roster.Response, error) {
	if m.respondFn != nil {
		return m.respondFn(ctx, handle, accept)
	}
	return roster.Response{}, nil
}

func (m *mockHandler) DeliveryFailed(ctx context.Context, handle string) (bool, error) {
	if m.deliveryFailedFn != nil {
		return m.deliveryFailedFn(ctx, handle)
	}
	return true, nil
}

type mockPendingStream struct {
	staleFn func(ctx context.Context, minIdle time.Duration, count int64) ([]worker.PendingMessage, error)
	claimFn func(ctx context.Context, id string, minIdle time.Duration) (redis.XMessage, bool, error)
}

func (m *mockPendingStream) Stale(ctx context.Context, minIdle time.Duration, count int64) ([]worker.PendingMessage, error) {
	if m.staleFn != nil {
		return m.staleFn(ctx, minIdle, count)
	}
	return nil, nil
}

func (m *mockPendingStream) Claim(ctx context.Context, id string, minIdle time.Duration) (redis.XMessage, bool, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, id, minIdle)
	}
	return redis.XMessage{}, false, nil
}
