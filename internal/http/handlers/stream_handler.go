// Live event stream over SSE. Each connection joins the caller's private
// room, plus the role room for staff. There is no replay: missed events are
// recovered by fetching notifications.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wasla/internal/http/middleware"
	"wasla/internal/realtime"
)

const streamBuffer = 16

type StreamHandler struct {
	hub *realtime.Hub
	log *zap.Logger
}

func NewStreamHandler(hub *realtime.Hub, log *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, log: log}
}

type frame struct {
	event   string
	payload []byte
}

// sseConn adapts one SSE response to the hub. Send never blocks: a full
// buffer drops the frame and the client catches up from the durable rows.
type sseConn struct {
	frames chan frame
}

var errSlowConsumer = errors.New("stream buffer full")

func (c *sseConn) Send(event string, payload []byte) error {
	select {
	case c.frames <- frame{event: event, payload: payload}:
		return nil
	default:
		return errSlowConsumer
	}
}

func (h *StreamHandler) Stream(c *gin.Context) {
	actor := middleware.CallerActor(c)
	if actor.ID == "" {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	conn := &sseConn{frames: make(chan frame, streamBuffer)}
	h.hub.Connect(conn)
	defer h.hub.Disconnect(conn)

	h.hub.Join(conn, realtime.UserRoom(actor.ID))
	if actor.Role.Staff() {
		h.hub.Join(conn, realtime.RoleRoom(actor.Role))
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case f := <-conn.frames:
			c.SSEvent(f.event, string(f.payload))
			return true
		}
	})
}

var _ realtime.Conn = (*sseConn)(nil)
