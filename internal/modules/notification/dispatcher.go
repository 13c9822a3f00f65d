// The dispatcher resolves each domain event to its audience, persists the
// durable notification rows, and accelerates delivery: live room broadcast
// when the recipient is connected, push fallback when not.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"wasla/internal/events"
	"wasla/internal/metrics"
	"wasla/internal/modules/order"
	"wasla/internal/realtime"
	"wasla/internal/types"
)

const lowStockWindow = 24 * time.Hour

// Broadcaster is the live-transport boundary (satisfied by realtime.Hub).
type Broadcaster interface {
	Broadcast(room, event string, payload []byte)
	IsMember(room string) bool
}

// Pusher is the durable push fallback (satisfied by push.Registry).
type Pusher interface {
	SendToUser(ctx context.Context, userID types.ID, payload []byte)
}

// ETAEstimator enriches out-for-delivery notices. Optional.
type ETAEstimator interface {
	DeliveryETA(ctx context.Context, serviceAreaID types.ID) (string, error)
}

type Dispatcher struct {
	store Store
	dir   Directory
	rooms Broadcaster
	push  Pusher
	dedup Deduper
	eta   ETAEstimator
	log   *zap.Logger
}

func NewDispatcher(store Store, dir Directory, rooms Broadcaster, push Pusher, dedup Deduper, eta ETAEstimator, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store: store,
		dir:   dir,
		rooms: rooms,
		push:  push,
		dedup: dedup,
		eta:   eta,
		log:   log,
	}
}

// Run consumes the event channel until it closes or the context ends.
func (d *Dispatcher) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			d.Dispatch(ctx, e)
		}
	}
}

// Dispatch handles one event. Delivery failures are logged, never returned:
// notification delivery is a side effect of the business operation, not part
// of its contract.
func (d *Dispatcher) Dispatch(ctx context.Context, e events.Event) {
	switch ev := e.(type) {
	case events.OrderStatusChanged:
		d.dispatchOrderStatus(ctx, ev)
	case events.NewTicketMessage:
		d.dispatchTicketMessage(ctx, ev)
	case events.LowStock:
		d.dispatchLowStock(ctx, ev)
	default:
		d.log.Warn("dispatcher: unknown event kind", zap.String("kind", string(e.EventKind())))
	}
}

func (d *Dispatcher) dispatchOrderStatus(ctx context.Context, ev events.OrderStatusChanged) {
	payload := map[string]any{
		"order_id":        string(ev.OrderID),
		"previous_status": ev.PreviousStatus,
		"new_status":      ev.NewStatus,
	}
	if ev.NewStatus == string(order.StatusOutForDelivery) && d.eta != nil {
		if eta, err := d.eta.DeliveryETA(ctx, ev.ServiceAreaID); err == nil {
			payload["eta"] = eta
		} else {
			d.log.Debug("dispatcher: eta estimate unavailable", zap.Error(err))
		}
	}

	// The customer is always in the audience; the driver only once assigned.
	recipients := []types.ID{ev.CustomerID}
	if ev.DriverID != nil {
		recipients = append(recipients, *ev.DriverID)
	}
	for _, userID := range recipients {
		d.deliverToUser(ctx, userID, EventOrderStatusChanged, payload)
	}

	// Staff dashboards react to orders entering, leaving, or aborting the
	// pipeline. Connected audiences only: staff fetch state on demand.
	switch order.Status(ev.NewStatus) {
	case order.StatusPending, order.StatusOutForDelivery, order.StatusCancelled:
		raw := mustJSON(payload)
		d.rooms.Broadcast(realtime.RoleRoom(types.RoleOperations), EventOrderStatusChanged, raw)
		d.rooms.Broadcast(realtime.RoleRoom(types.RoleAdmin), EventOrderStatusChanged, raw)
	}
}

func (d *Dispatcher) dispatchTicketMessage(ctx context.Context, ev events.NewTicketMessage) {
	payload := map[string]any{
		"ticket_id":  string(ev.TicketID),
		"message_id": string(ev.MessageID),
		"author_id":  string(ev.AuthorID),
		"preview":    ev.Preview,
	}
	d.deliverToUser(ctx, ev.RecipientID, EventNotificationNew, payload)
}

func (d *Dispatcher) dispatchLowStock(ctx context.Context, ev events.LowStock) {
	first, err := d.dedup.FirstInWindow(ctx, "lowstock:"+string(ev.ProductID), lowStockWindow)
	if err != nil {
		// Dedup store down: better a repeat notice than a missed depletion.
		d.log.Warn("dispatcher: dedup unavailable, notifying anyway", zap.Error(err))
	} else if !first {
		return
	}

	staff, err := d.dir.ListStaffIDs(ctx)
	if err != nil {
		d.log.Error("dispatcher: staff lookup failed", zap.Error(err))
		return
	}
	payload := map[string]any{
		"product_id": string(ev.ProductID),
		"name":       ev.Name,
		"remaining":  ev.Remaining,
		"threshold":  ev.Threshold,
	}
	for _, userID := range staff {
		d.deliverToUser(ctx, userID, EventNotificationNew, payload)
	}
}

// deliverToUser persists the durable row, then accelerates: the live room if
// the user is connected, push otherwise. The row is written regardless of
// delivery outcome.
func (d *Dispatcher) deliverToUser(ctx context.Context, userID types.ID, event string, payload map[string]any) {
	n := &Notification{
		UserID:  userID,
		Type:    event,
		Payload: payload,
	}
	if err := d.store.Create(ctx, n); err != nil {
		d.log.Error("dispatcher: persist notification failed",
			zap.String("user_id", string(userID)),
			zap.String("type", event),
			zap.Error(err))
		// Still attempt delivery: the user should hear about it even if the
		// durable record is momentarily unavailable.
	}
	metrics.NotificationsDispatched.WithLabelValues(event).Inc()

	wire := map[string]any{"notification_id": string(n.ID)}
	for k, v := range payload {
		wire[k] = v
	}
	raw := mustJSON(wire)

	room := realtime.UserRoom(userID)
	if d.rooms.IsMember(room) {
		d.rooms.Broadcast(room, event, raw)
		metrics.LiveDeliveries.Inc()
		return
	}
	d.push.SendToUser(ctx, userID, raw)
}

func mustJSON(v map[string]any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return raw
}
