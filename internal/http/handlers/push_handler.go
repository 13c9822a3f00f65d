package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wasla/internal/http/middleware"
	"wasla/internal/modules/audit"
	"wasla/internal/modules/push"
	"wasla/internal/types"
)

type PushHandler struct {
	registry *push.Registry
	audit    *audit.Service
}

func NewPushHandler(registry *push.Registry, auditSvc *audit.Service) *PushHandler {
	return &PushHandler{registry: registry, audit: auditSvc}
}

type subscribeReq struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Subscribe registers (or refreshes) the caller's device endpoint.
func (h *PushHandler) Subscribe(c *gin.Context) {
	var req subscribeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Endpoint == "" {
		writeError(c, http.StatusBadRequest, "missing endpoint")
		return
	}
	actor := middleware.CallerActor(c)
	if err := h.registry.Register(c.Request.Context(), actor.ID, req.Endpoint, req.P256dh, req.Auth); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	h.recordAudit(c, actor, audit.ActionCreate, req.Endpoint)
	writeJSON(c, http.StatusCreated, gin.H{"status": "subscribed"})
}

type unsubscribeReq struct {
	Endpoint string `json:"endpoint"`
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var req unsubscribeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Endpoint == "" {
		writeError(c, http.StatusBadRequest, "missing endpoint")
		return
	}
	actor := middleware.CallerActor(c)
	if err := h.registry.Unregister(c.Request.Context(), req.Endpoint); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	h.recordAudit(c, actor, audit.ActionDelete, req.Endpoint)
	writeJSON(c, http.StatusOK, gin.H{"status": "unsubscribed"})
}

func (h *PushHandler) recordAudit(c *gin.Context, actor types.Actor, action audit.Action, endpoint string) {
	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	e := audit.Entry{
		ActorUserID: audit.EntryActor(actor),
		Action:      action,
		Entity:      "push_subscription",
		EntityID:    actor.ID,
		IPAddress:   &ip,
		UserAgent:   &ua,
	}
	if action == audit.ActionDelete {
		e.OldData = map[string]any{"endpoint": endpoint}
	} else {
		e.NewData = map[string]any{"endpoint": endpoint}
	}
	h.audit.Record(c.Request.Context(), e)
}
