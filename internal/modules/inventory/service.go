package inventory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wasla/internal/events"
	"wasla/internal/modules/order"
	"wasla/internal/types"
)

// ItemSource yields the line items of an order (satisfied by order.Store).
type ItemSource interface {
	ListItems(ctx context.Context, orderID types.ID) ([]order.Item, error)
}

// Publisher is the outbound side of the event bus.
type Publisher interface {
	Publish(e events.Event)
}

// Service decrements stock as orders are confirmed and raises low-stock
// events when a product crosses its threshold.
type Service struct {
	store Store
	items ItemSource
	bus   Publisher
	log   *zap.Logger
}

func NewService(store Store, items ItemSource, bus Publisher, log *zap.Logger) *Service {
	return &Service{store: store, items: items, bus: bus, log: log}
}

// Run consumes the event channel until it closes or the context ends.
func (s *Service) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if ev, ok := e.(events.OrderStatusChanged); ok && ev.NewStatus == string(order.StatusConfirmed) {
				s.ReserveForOrder(ctx, ev.OrderID)
			}
		}
	}
}

// ReserveForOrder decrements stock for every line item of the order.
// Failures are logged per item; a shortfall on one item does not block the
// others, the operations team reconciles from the audit trail.
func (s *Service) ReserveForOrder(ctx context.Context, orderID types.ID) {
	items, err := s.items.ListItems(ctx, orderID)
	if err != nil {
		s.log.Error("inventory: list order items failed",
			zap.String("order_id", string(orderID)), zap.Error(err))
		return
	}
	for _, it := range items {
		level, err := s.store.Decrement(ctx, it.ProductID, it.Quantity)
		if errors.Is(err, ErrInsufficientStock) {
			s.log.Warn("inventory: oversold product",
				zap.String("order_id", string(orderID)),
				zap.String("product_id", string(it.ProductID)),
				zap.Int("quantity", it.Quantity))
			continue
		}
		if err != nil {
			s.log.Error("inventory: decrement failed",
				zap.String("product_id", string(it.ProductID)), zap.Error(err))
			continue
		}
		if level.CrossedThreshold(it.Quantity) {
			s.bus.Publish(events.LowStock{
				ProductID: level.ProductID,
				Name:      level.Name,
				Remaining: level.Remaining,
				Threshold: level.Threshold,
				At:        time.Now().UTC(),
			})
		}
	}
}
