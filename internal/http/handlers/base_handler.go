// JSON helpers and service-error to status-code mapping.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wasla/internal/modules/order"
	"wasla/internal/modules/ticket"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrDriverRequired):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrUnauthorizedTransition):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrIllegalTransition), errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeTicketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ticket.ErrEmptyBody):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ticket.ErrNotParticipant):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ticket.ErrTicketClosed):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
