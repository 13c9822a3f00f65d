package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wasla/internal/http/middleware"
	"wasla/internal/modules/ticket"
	"wasla/internal/types"
)

type TicketHandler struct {
	ticket *ticket.Service
}

func NewTicketHandler(svc *ticket.Service) *TicketHandler {
	return &TicketHandler{ticket: svc}
}

type postMessageReq struct {
	Body string `json:"body"`
}

func (h *TicketHandler) PostMessage(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing ticket id")
		return
	}
	var req postMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	m, err := h.ticket.PostMessage(c.Request.Context(), types.ID(id), middleware.CallerActor(c), req.Body)
	if err != nil {
		writeTicketError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"message_id": m.ID,
		"ticket_id":  m.TicketID,
		"created_at": m.CreatedAt,
	})
}

func (h *TicketHandler) Thread(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing ticket id")
		return
	}
	msgs, err := h.ticket.Thread(c.Request.Context(), types.ID(id), intQuery(c, "limit", 50))
	if err != nil {
		writeTicketError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"messages": msgs})
}
