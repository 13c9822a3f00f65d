package notification

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"wasla/internal/events"
	"wasla/internal/realtime"
	"wasla/internal/types"
)

type memStore struct {
	mu   sync.Mutex
	rows []Notification
}

func (m *memStore) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = types.ID("n" + time.Now().Format("150405.000000000"))
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID types.ID, _ int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, id, userID types.ID) error { return nil }

func (m *memStore) rowsFor(userID types.ID) []Notification {
	out, _ := m.ListByUser(context.Background(), userID, 0)
	return out
}

type staffDirectory struct{ ids []types.ID }

func (d *staffDirectory) ListStaffIDs(context.Context) ([]types.ID, error) {
	return d.ids, nil
}

type fakePusher struct {
	mu    sync.Mutex
	sends map[types.ID][][]byte
}

func newFakePusher() *fakePusher {
	return &fakePusher{sends: make(map[types.ID][][]byte)}
}

func (p *fakePusher) SendToUser(_ context.Context, userID types.ID, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends[userID] = append(p.sends[userID], payload)
}

func (p *fakePusher) count(userID types.ID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sends[userID])
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDeduper() *memDeduper { return &memDeduper{seen: make(map[string]bool)} }

func (d *memDeduper) FirstInWindow(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

type sink struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	event   string
	payload string
}

func (s *sink) Send(event string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{event, string(payload)})
	return nil
}

func (s *sink) received() []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedEvent(nil), s.events...)
}

type fixture struct {
	store *memStore
	hub   *realtime.Hub
	push  *fakePusher
	dedup *memDeduper
	disp  *Dispatcher
}

func newFixture(staff ...types.ID) *fixture {
	f := &fixture{
		store: &memStore{},
		hub:   realtime.NewHub(zap.NewNop()),
		push:  newFakePusher(),
		dedup: newMemDeduper(),
	}
	f.disp = NewDispatcher(f.store, &staffDirectory{ids: staff}, f.hub, f.push, f.dedup, nil, zap.NewNop())
	return f
}

func (f *fixture) connect(userID types.ID, rooms ...string) *sink {
	c := &sink{}
	f.hub.Connect(c)
	f.hub.Join(c, realtime.UserRoom(userID))
	for _, r := range rooms {
		f.hub.Join(c, r)
	}
	return c
}

func orderEvent(newStatus string, driver *types.ID) events.OrderStatusChanged {
	return events.OrderStatusChanged{
		OrderID:        "o1",
		CustomerID:     "cust1",
		DriverID:       driver,
		ServiceAreaID:  "area-1",
		PreviousStatus: "PENDING",
		NewStatus:      newStatus,
		Actor:          types.Actor{ID: "cust1", Role: types.RoleCustomer},
		At:             time.Now().UTC(),
	}
}

// A recipient with no live connection and no push subscription still gets a
// persisted row: durability does not depend on any delivery channel.
func TestDurableRowWithoutChannels(t *testing.T) {
	f := newFixture()
	f.disp.Dispatch(context.Background(), orderEvent("CANCELLED", nil))

	rows := f.store.rowsFor("cust1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 persisted row, got %d", len(rows))
	}
	if rows[0].Type != EventOrderStatusChanged {
		t.Fatalf("unexpected type %s", rows[0].Type)
	}
	if rows[0].Payload["new_status"] != "CANCELLED" {
		t.Fatalf("unexpected payload: %v", rows[0].Payload)
	}
}

// No assigned driver means the driver is never in the audience.
func TestUnassignedDriverNotInAudience(t *testing.T) {
	f := newFixture()
	f.disp.Dispatch(context.Background(), orderEvent("CONFIRMED", nil))

	if len(f.store.rows) != 1 {
		t.Fatalf("expected only the customer row, got %d rows", len(f.store.rows))
	}
	if f.store.rows[0].UserID != "cust1" {
		t.Fatalf("unexpected recipient %s", f.store.rows[0].UserID)
	}
}

func TestAssignedDriverInAudience(t *testing.T) {
	f := newFixture()
	driver := types.ID("drv1")
	f.disp.Dispatch(context.Background(), orderEvent("OUT_FOR_DELIVERY", &driver))

	if len(f.store.rowsFor("cust1")) != 1 || len(f.store.rowsFor("drv1")) != 1 {
		t.Fatalf("expected customer and driver rows, got %d total", len(f.store.rows))
	}
}

// Live delivery wins: a connected recipient gets the room event and no push.
func TestLiveDeliverySuppressesPush(t *testing.T) {
	f := newFixture()
	conn := f.connect("cust1")

	f.disp.Dispatch(context.Background(), orderEvent("CONFIRMED", nil))

	got := conn.received()
	if len(got) != 1 || got[0].event != EventOrderStatusChanged {
		t.Fatalf("expected one live order-status-changed, got %v", got)
	}
	if f.push.count("cust1") != 0 {
		t.Fatal("push must not be attempted for a live recipient")
	}
	// The durable row exists regardless.
	if len(f.store.rowsFor("cust1")) != 1 {
		t.Fatal("row must be persisted even when delivered live")
	}
}

func TestOfflineRecipientFallsBackToPush(t *testing.T) {
	f := newFixture()
	f.disp.Dispatch(context.Background(), orderEvent("CONFIRMED", nil))

	if f.push.count("cust1") != 1 {
		t.Fatalf("expected 1 push attempt, got %d", f.push.count("cust1"))
	}
	var wire map[string]any
	if err := json.Unmarshal(f.push.sends["cust1"][0], &wire); err != nil {
		t.Fatalf("push payload not json: %v", err)
	}
	if wire["order_id"] != "o1" {
		t.Fatalf("payload must carry the identifiers to re-fetch state: %v", wire)
	}
}

// Staff rooms hear about orders entering PENDING, OUT_FOR_DELIVERY and
// CANCELLED, and only those.
func TestStaffRoomBroadcastOnTriageStates(t *testing.T) {
	f := newFixture()
	ops := f.connect("staff1", realtime.RoleRoom(types.RoleOperations))
	admin := f.connect("staff2", realtime.RoleRoom(types.RoleAdmin))

	f.disp.Dispatch(context.Background(), orderEvent("CANCELLED", nil))
	if len(ops.received()) != 1 || len(admin.received()) != 1 {
		t.Fatalf("staff rooms must hear a cancellation: ops=%d admin=%d", len(ops.received()), len(admin.received()))
	}

	f.disp.Dispatch(context.Background(), orderEvent("PREPARING", nil))
	if len(ops.received()) != 1 || len(admin.received()) != 1 {
		t.Fatal("kitchen-only states must not reach staff rooms")
	}

	// Staff broadcast is connected-audiences-only: no rows for staff.
	if len(f.store.rowsFor("staff1"))+len(f.store.rowsFor("staff2")) != 0 {
		t.Fatal("order events must not persist rows for staff")
	}
}

// The customer cancel scenario end to end: row persisted, customer room and
// connected staff rooms both hear order-status-changed.
func TestCustomerCancelScenario(t *testing.T) {
	f := newFixture()
	cust := f.connect("cust1")
	ops := f.connect("staff1", realtime.RoleRoom(types.RoleOperations))

	f.disp.Dispatch(context.Background(), orderEvent("CANCELLED", nil))

	if len(f.store.rowsFor("cust1")) != 1 {
		t.Fatal("customer row must be persisted")
	}
	if got := cust.received(); len(got) != 1 || got[0].event != EventOrderStatusChanged {
		t.Fatalf("customer must receive order-status-changed, got %v", got)
	}
	if got := ops.received(); len(got) != 1 || got[0].event != EventOrderStatusChanged {
		t.Fatalf("operations room must receive order-status-changed, got %v", got)
	}
}

func TestTicketMessageNeverNotifiesAuthor(t *testing.T) {
	f := newFixture()
	f.disp.Dispatch(context.Background(), events.NewTicketMessage{
		TicketID:    "t1",
		MessageID:   "m1",
		AuthorID:    "cust1",
		RecipientID: "staff1",
		Preview:     "أين طلبي؟",
	})

	if len(f.store.rowsFor("staff1")) != 1 {
		t.Fatal("recipient must get a row")
	}
	if len(f.store.rowsFor("cust1")) != 0 {
		t.Fatal("author must never be notified of their own message")
	}
}

func TestLowStockNotifiesAllStaffOnce(t *testing.T) {
	f := newFixture("staff1", "staff2")
	ev := events.LowStock{ProductID: "p1", Name: "قهوة عربية", Remaining: 2, Threshold: 5}

	f.disp.Dispatch(context.Background(), ev)
	if len(f.store.rowsFor("staff1")) != 1 || len(f.store.rowsFor("staff2")) != 1 {
		t.Fatalf("all staff must be notified, got %d rows", len(f.store.rows))
	}

	// Same product within the window: suppressed.
	f.disp.Dispatch(context.Background(), ev)
	if len(f.store.rows) != 2 {
		t.Fatalf("repeat low-stock within 24h must be deduplicated, got %d rows", len(f.store.rows))
	}

	// A different product is its own key.
	f.disp.Dispatch(context.Background(), events.LowStock{ProductID: "p2", Name: "تمر", Remaining: 1, Threshold: 4})
	if len(f.store.rows) != 4 {
		t.Fatalf("distinct products dedupe independently, got %d rows", len(f.store.rows))
	}
}

func TestNotificationNewCarriesRowID(t *testing.T) {
	f := newFixture("staff1")
	staff := f.connect("staff1")

	f.disp.Dispatch(context.Background(), events.LowStock{ProductID: "p1", Name: "هيل", Remaining: 0, Threshold: 3})

	got := staff.received()
	if len(got) != 1 || got[0].event != EventNotificationNew {
		t.Fatalf("expected notification-new, got %v", got)
	}
	var wire map[string]any
	if err := json.Unmarshal([]byte(got[0].payload), &wire); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if wire["notification_id"] == "" || wire["notification_id"] == nil {
		t.Fatalf("live payload must reference the persisted row: %v", wire)
	}
}
