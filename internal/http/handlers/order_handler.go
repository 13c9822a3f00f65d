// Order handlers: read state, request a status transition.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wasla/internal/http/middleware"
	"wasla/internal/modules/order"
	"wasla/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type transitionReq struct {
	Target   string `json:"target"`
	DriverID string `json:"driver_id"`
}

func (h *OrderHandler) Transition(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	target := order.Status(req.Target)
	if !target.Known() {
		writeError(c, http.StatusBadRequest, "unknown target status")
		return
	}

	cmd := order.TransitionCommand{
		OrderID: types.ID(id),
		Target:  target,
		Actor:   middleware.CallerActor(c),
	}
	if req.DriverID != "" {
		d := types.ID(req.DriverID)
		cmd.DriverID = &d
	}

	o, err := h.order.RequestTransition(c.Request.Context(), cmd)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	// Customers may only read their own orders.
	actor := middleware.CallerActor(c)
	if actor.Role == types.RoleCustomer && actor.ID != o.CustomerID {
		writeError(c, http.StatusForbidden, "not your order")
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

func orderView(o *order.Order) map[string]any {
	v := map[string]any{
		"order_id":       o.ID,
		"customer_id":    o.CustomerID,
		"status":         o.Status,
		"status_version": o.StatusVersion,
		"total":          o.Total.Amount,
		"currency":       o.Total.Currency,
		"updated_at":     o.UpdatedAt,
	}
	if o.DriverID != nil {
		v["driver_id"] = *o.DriverID
	}
	return v
}
