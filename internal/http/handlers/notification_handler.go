package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wasla/internal/http/middleware"
	"wasla/internal/modules/notification"
	"wasla/internal/types"
)

type NotificationHandler struct {
	store notification.Store
}

func NewNotificationHandler(store notification.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := types.ID(middleware.CallerUID(c))
	limit := intQuery(c, "limit", 50)

	items, err := h.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": items})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing notification id")
		return
	}
	userID := types.ID(middleware.CallerUID(c))
	if err := h.store.MarkRead(c.Request.Context(), types.ID(id), userID); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
