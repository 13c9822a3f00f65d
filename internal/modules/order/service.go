// Order state machine: validates and applies status transitions, serialized
// per order, and emits one domain event per applied transition.
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"wasla/internal/events"
	"wasla/internal/metrics"
	"wasla/internal/types"
)

var (
	ErrNotFound               = errors.New("order not found")
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrUnauthorizedTransition = errors.New("role not permitted for this transition")
	ErrConflict               = errors.New("order state conflict")
	ErrDriverRequired         = errors.New("driver id required for this transition")
)

const defaultSlotWait = 2 * time.Second

type Service struct {
	store    Store
	bus      *events.Bus
	log      *zap.Logger
	slots    *slotTable
	slotWait time.Duration
}

func NewService(store Store, bus *events.Bus, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		bus:      bus,
		log:      log,
		slots:    newSlotTable(),
		slotWait: defaultSlotWait,
	}
}

type TransitionCommand struct {
	OrderID types.ID
	Target  Status
	Actor   types.Actor
	// DriverID is consulted when the transition enters OUT_FOR_DELIVERY.
	// A DRIVER actor self-assigns when it is absent.
	DriverID *types.ID
}

// RequestTransition applies one status transition. At most one mutation is
// in flight per order: a caller that cannot take the order's slot within the
// bounded wait, or that loses the compare-and-set, gets ErrConflict and
// should re-read before retrying. Re-requesting the current status is an
// idempotent no-op and emits no event.
func (s *Service) RequestTransition(ctx context.Context, cmd TransitionCommand) (*Order, error) {
	if err := s.slots.acquire(ctx, cmd.OrderID, s.slotWait); err != nil {
		metrics.TransitionsRejected.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("%w: serialization slot busy", ErrConflict)
	}
	defer s.slots.release(cmd.OrderID)

	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.TransitionsRejected.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	if o.Status == cmd.Target {
		return o, nil
	}
	if !CanTransition(o.Status, cmd.Target) {
		metrics.TransitionsRejected.WithLabelValues("illegal").Inc()
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, cmd.Target)
	}
	if !RoleAllowed(cmd.Actor.Role, o.Status, cmd.Target) {
		metrics.TransitionsRejected.WithLabelValues("unauthorized").Inc()
		return nil, fmt.Errorf("%w: %s on %s -> %s", ErrUnauthorizedTransition, cmd.Actor.Role, o.Status, cmd.Target)
	}

	driverID := o.DriverID
	if cmd.Target == StatusOutForDelivery {
		switch {
		case cmd.DriverID != nil:
			driverID = cmd.DriverID
		case cmd.Actor.Role == types.RoleDriver:
			id := cmd.Actor.ID
			driverID = &id
		case driverID == nil:
			return nil, ErrDriverRequired
		}
	}

	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.Target, o.StatusVersion, driverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.TransitionsRejected.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("%w: lost update race", ErrConflict)
	}

	now := time.Now().UTC()
	applied := *o
	applied.Status = cmd.Target
	applied.StatusVersion = o.StatusVersion + 1
	applied.DriverID = driverID
	applied.UpdatedAt = now

	metrics.TransitionsApplied.WithLabelValues(string(o.Status), string(cmd.Target)).Inc()
	s.bus.Publish(events.OrderStatusChanged{
		OrderID:        applied.ID,
		CustomerID:     applied.CustomerID,
		DriverID:       applied.DriverID,
		ServiceAreaID:  applied.ServiceAreaID,
		PreviousStatus: string(o.Status),
		NewStatus:      string(applied.Status),
		Actor:          cmd.Actor,
		At:             now,
	})
	return &applied, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, orderID types.ID) ([]Item, error) {
	return s.store.ListItems(ctx, orderID)
}

// slotTable hands out one in-process slot per order id with a bounded wait.
type slotTable struct {
	mu    sync.Mutex
	slots map[types.ID]chan struct{}
}

func newSlotTable() *slotTable {
	return &slotTable{slots: make(map[types.ID]chan struct{})}
}

func (t *slotTable) acquire(ctx context.Context, id types.ID, wait time.Duration) error {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		t.mu.Lock()
		release, held := t.slots[id]
		if !held {
			t.slots[id] = make(chan struct{})
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-release:
		case <-deadline.C:
			return ErrConflict
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *slotTable) release(id types.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.slots[id]; ok {
		delete(t.slots, id)
		close(ch)
	}
}
