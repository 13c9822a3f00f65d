// Administrative audit-log queries and the manual retention sweep trigger.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wasla/internal/modules/audit"
	"wasla/internal/types"
)

type AuditHandler struct {
	audit        *audit.Service
	retentionDay int
	sweepBatch   int
}

func NewAuditHandler(svc *audit.Service, retentionDays, sweepBatch int) *AuditHandler {
	return &AuditHandler{audit: svc, retentionDay: retentionDays, sweepBatch: sweepBatch}
}

func (h *AuditHandler) List(c *gin.Context) {
	f := audit.Filters{
		ActorUserID: types.ID(c.Query("actor_user_id")),
		Entity:      c.Query("entity"),
		EntityID:    types.ID(c.Query("entity_id")),
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		f.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		f.To = t
	}
	p := audit.Page{
		Offset: intQuery(c, "offset", 0),
		Limit:  intQuery(c, "limit", 50),
	}

	entries, err := h.audit.Query(c.Request.Context(), f, p)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"entries": entries, "offset": p.Offset, "limit": p.Limit})
}

func (h *AuditHandler) Sweep(c *gin.Context) {
	deleted, err := h.audit.RunRetentionSweep(c.Request.Context(), h.retentionDay, h.sweepBatch)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deleted": deleted})
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
