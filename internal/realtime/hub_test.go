package realtime

import (
	"sync"
	"testing"

	"go.uber.org/zap"

	"wasla/internal/types"
)

type recordedEvent struct {
	event   string
	payload string
}

type fakeConn struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (c *fakeConn) Send(event string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{event, string(payload)})
	return nil
}

func (c *fakeConn) received() []recordedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedEvent(nil), c.events...)
}

func TestRoomNames(t *testing.T) {
	if got := UserRoom("u1"); got != "user:u1" {
		t.Errorf("UserRoom = %q", got)
	}
	if got := RoleRoom(types.RoleAdmin); got != "role:ADMIN" {
		t.Errorf("RoleRoom = %q", got)
	}
}

// A connection holds no memberships until it joins explicitly.
func TestConnectDoesNotPresumeMembership(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := &fakeConn{}
	h.Connect(c)

	h.Broadcast(UserRoom("u1"), "order-status-changed", []byte("{}"))
	if len(c.received()) != 0 {
		t.Fatal("unjoined connection must receive nothing")
	}
	if h.IsMember(UserRoom("u1")) {
		t.Fatal("room must be empty before join")
	}
}

func TestJoinBroadcastLeave(t *testing.T) {
	h := NewHub(zap.NewNop())
	c1, c2 := &fakeConn{}, &fakeConn{}
	h.Connect(c1)
	h.Connect(c2)
	h.Join(c1, RoleRoom(types.RoleOperations))
	h.Join(c2, RoleRoom(types.RoleOperations))

	h.Broadcast(RoleRoom(types.RoleOperations), "order-status-changed", []byte(`{"order_id":"o1"}`))
	if len(c1.received()) != 1 || len(c2.received()) != 1 {
		t.Fatal("all joined members must receive the broadcast")
	}
	if got := c1.received()[0]; got.event != "order-status-changed" || got.payload != `{"order_id":"o1"}` {
		t.Fatalf("unexpected delivery: %+v", got)
	}

	h.Leave(c2, RoleRoom(types.RoleOperations))
	h.Broadcast(RoleRoom(types.RoleOperations), "order-status-changed", []byte("{}"))
	if len(c1.received()) != 2 {
		t.Fatal("remaining member must still receive")
	}
	if len(c2.received()) != 1 {
		t.Fatal("left member must not receive")
	}
}

// Members joining after the call do not receive it: membership is read at
// time of call.
func TestBroadcastIsAtTimeOfCall(t *testing.T) {
	h := NewHub(zap.NewNop())
	early, late := &fakeConn{}, &fakeConn{}
	h.Connect(early)
	h.Connect(late)
	h.Join(early, UserRoom("u1"))

	h.Broadcast(UserRoom("u1"), "notification-new", []byte("{}"))
	h.Join(late, UserRoom("u1"))

	if len(early.received()) != 1 {
		t.Fatal("early member must receive")
	}
	if len(late.received()) != 0 {
		t.Fatal("no replay for late joiners")
	}
}

func TestDisconnectDropsAllMemberships(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := &fakeConn{}
	h.Connect(c)
	h.Join(c, UserRoom("u1"))
	h.Join(c, RoleRoom(types.RoleAdmin))

	h.Disconnect(c)
	if h.IsMember(UserRoom("u1")) || h.IsMember(RoleRoom(types.RoleAdmin)) {
		t.Fatal("disconnect must drop every membership")
	}

	// Rejoining requires a fresh connect; a stale handle joins nothing.
	h.Join(c, UserRoom("u1"))
	if h.IsMember(UserRoom("u1")) {
		t.Fatal("disconnected connection must not rejoin implicitly")
	}
}

func TestConcurrentJoinBroadcast(t *testing.T) {
	h := NewHub(zap.NewNop())
	var wg sync.WaitGroup
	conns := make([]*fakeConn, 16)
	for i := range conns {
		conns[i] = &fakeConn{}
		h.Connect(conns[i])
	}
	for _, c := range conns {
		wg.Add(2)
		go func(c *fakeConn) {
			defer wg.Done()
			h.Join(c, RoleRoom(types.RoleOperations))
		}(c)
		go func() {
			defer wg.Done()
			h.Broadcast(RoleRoom(types.RoleOperations), "order-status-changed", []byte("{}"))
		}()
	}
	wg.Wait()
	if h.RoomSize(RoleRoom(types.RoleOperations)) != len(conns) {
		t.Fatalf("expected %d members, got %d", len(conns), h.RoomSize(RoleRoom(types.RoleOperations)))
	}
}
