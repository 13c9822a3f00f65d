package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"wasla/internal/types"
)

type memStore struct {
	mu   sync.Mutex
	subs map[string]*Subscription // keyed by endpoint
}

func newMemStore() *memStore {
	return &memStore{subs: make(map[string]*Subscription)}
}

func (m *memStore) Upsert(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.subs[sub.Endpoint]; ok && cur.UserID == sub.UserID {
		cur.P256dh = sub.P256dh
		cur.Auth = sub.Auth
		cur.FailureCount = 0
		return nil
	}
	cp := *sub
	cp.CreatedAt = time.Now().UTC()
	m.subs[sub.Endpoint] = &cp
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID types.ID) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Subscription
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) DeleteByEndpoint(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, endpoint)
	return nil
}

func (m *memStore) RecordGoneFailure(_ context.Context, endpoint string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[endpoint]
	if !ok {
		return 0, nil
	}
	s.FailureCount++
	return s.FailureCount, nil
}

func (m *memStore) ResetFailures(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[endpoint]; ok {
		s.FailureCount = 0
	}
	return nil
}

type scriptedSender struct {
	mu      sync.Mutex
	results []SendResult
	calls   int
}

func (s *scriptedSender) Send(context.Context, Subscription, []byte) SendResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return SendDelivered
	}
	res := s.results[0]
	s.results = s.results[1:]
	return res
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastRegistry(store Store, sender Sender) *Registry {
	return NewRegistry(store, sender, zap.NewNop(),
		WithRetryPolicy(3, 100*time.Millisecond, time.Millisecond))
}

func TestRegisterUpsertsPerUserEndpoint(t *testing.T) {
	store := newMemStore()
	reg := fastRegistry(store, &scriptedSender{})
	ctx := context.Background()

	if err := reg.Register(ctx, "u1", "ep1", "keyA", "authA"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(ctx, "u1", "ep1", "keyB", "authB"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	subs, _ := store.ListByUser(ctx, "u1")
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription after re-register, got %d", len(subs))
	}
	if subs[0].P256dh != "keyB" {
		t.Fatalf("keys must be refreshed, got %s", subs[0].P256dh)
	}
}

func TestTransientFailureRetriedThenDropped(t *testing.T) {
	store := newMemStore()
	sender := &scriptedSender{results: []SendResult{SendTransient, SendTransient, SendTransient}}
	reg := fastRegistry(store, sender)
	ctx := context.Background()

	_ = reg.Register(ctx, "u1", "ep1", "k", "a")
	reg.SendToUser(ctx, "u1", []byte(`{"t":"x"}`))

	if got := sender.callCount(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	// Transient failures never prune.
	subs, _ := store.ListByUser(ctx, "u1")
	if len(subs) != 1 {
		t.Fatalf("subscription must survive transient failures, got %d", len(subs))
	}
}

func TestTransientThenDeliveredResetsBudget(t *testing.T) {
	store := newMemStore()
	sender := &scriptedSender{results: []SendResult{SendTransient, SendDelivered}}
	reg := fastRegistry(store, sender)
	ctx := context.Background()

	_ = reg.Register(ctx, "u1", "ep1", "k", "a")
	reg.SendToUser(ctx, "u1", []byte("{}"))

	if got := sender.callCount(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

// Three consecutive "endpoint gone" deliveries prune the subscription; a
// later event for that user attempts zero sends to it.
func TestGoneStrikesPrune(t *testing.T) {
	store := newMemStore()
	sender := &scriptedSender{results: []SendResult{SendGone, SendGone, SendGone}}
	reg := fastRegistry(store, sender)
	ctx := context.Background()

	_ = reg.Register(ctx, "u1", "ep1", "k", "a")
	for i := 0; i < 3; i++ {
		reg.SendToUser(ctx, "u1", []byte("{}"))
	}
	if got := sender.callCount(); got != 3 {
		t.Fatalf("gone is never retried in-flight: expected 3 sends, got %d", got)
	}
	subs, _ := store.ListByUser(ctx, "u1")
	if len(subs) != 0 {
		t.Fatalf("expected pruned subscription, got %d", len(subs))
	}

	reg.SendToUser(ctx, "u1", []byte("{}"))
	if got := sender.callCount(); got != 3 {
		t.Fatalf("pruned endpoint must receive zero sends, got %d total", got)
	}
}

func TestDeliveryResetsGoneStrikes(t *testing.T) {
	store := newMemStore()
	sender := &scriptedSender{results: []SendResult{SendGone, SendGone, SendDelivered, SendGone}}
	reg := fastRegistry(store, sender)
	ctx := context.Background()

	_ = reg.Register(ctx, "u1", "ep1", "k", "a")
	for i := 0; i < 4; i++ {
		reg.SendToUser(ctx, "u1", []byte("{}"))
	}
	// Two strikes, then success wiped them, then one more strike: not pruned.
	subs, _ := store.ListByUser(ctx, "u1")
	if len(subs) != 1 {
		t.Fatalf("subscription must survive a non-consecutive strike run, got %d", len(subs))
	}
	if subs[0].FailureCount != 1 {
		t.Fatalf("expected 1 strike after reset, got %d", subs[0].FailureCount)
	}
}

func TestSendToUserFansOutPerSubscription(t *testing.T) {
	store := newMemStore()
	sender := &scriptedSender{}
	reg := fastRegistry(store, sender)
	ctx := context.Background()

	_ = reg.Register(ctx, "u1", "ep-phone", "k", "a")
	_ = reg.Register(ctx, "u1", "ep-tablet", "k", "a")
	_ = reg.Register(ctx, "u2", "ep-other", "k", "a")

	reg.SendToUser(ctx, "u1", []byte("{}"))
	if got := sender.callCount(); got != 2 {
		t.Fatalf("expected a send per owned subscription, got %d", got)
	}
}
