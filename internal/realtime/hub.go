// Package realtime routes live events to named rooms. One room per user
// (user:<id>) carries private events; one room per staff role (role:ADMIN,
// role:OPERATIONS) carries broadcast-to-staff events.
package realtime

import (
	"sync"

	"go.uber.org/zap"

	"wasla/internal/types"
)

// Conn is one live client connection. Send must not block: a slow consumer
// misses the event (durability is the notification rows' job, not this
// layer's).
type Conn interface {
	Send(event string, payload []byte) error
}

func UserRoom(id types.ID) string     { return "user:" + string(id) }
func RoleRoom(role types.Role) string { return "role:" + string(role) }

// Hub tracks connections and their room memberships as explicit sets.
// A connection holds no memberships until it joins; disconnect drops them
// all, and a reconnecting client must re-join. There is no event replay.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
	conns map[Conn]map[string]struct{}
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[Conn]struct{}),
		conns: make(map[Conn]map[string]struct{}),
		log:   log,
	}
}

// Connect registers the connection with no memberships.
func (h *Hub) Connect(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		h.conns[c] = make(map[string]struct{})
	}
}

// Join adds the connection to a room. Unknown connections are ignored:
// joining is only meaningful between Connect and Disconnect.
func (h *Hub) Join(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	memberships, ok := h.conns[c]
	if !ok {
		return
	}
	memberships[room] = struct{}{}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[Conn]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) Leave(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if memberships, ok := h.conns[c]; ok {
		delete(memberships, room)
	}
	h.dropFromRoom(c, room)
}

// Disconnect drops every membership and forgets the connection.
func (h *Hub) Disconnect(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.conns[c] {
		h.dropFromRoom(c, room)
	}
	delete(h.conns, c)
}

func (h *Hub) dropFromRoom(c Conn, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast delivers to every member of the room at time of call,
// at-most-once, best-effort. Members joining afterwards receive nothing.
func (h *Hub) Broadcast(room, event string, payload []byte) {
	h.mu.RLock()
	members := make([]Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if err := c.Send(event, payload); err != nil {
			h.log.Debug("realtime: dropped send", zap.String("room", room), zap.Error(err))
		}
	}
}

// IsMember reports whether the room currently has at least one connection.
func (h *Hub) IsMember(room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room]) > 0
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
