// Package events defines the domain events emitted by the business modules
// and an in-process bus that fans them out to independent consumers.
package events

import (
	"time"

	"wasla/internal/types"
)

type Kind string

const (
	KindOrderStatusChanged Kind = "order-status-changed"
	KindNewTicketMessage   Kind = "new-ticket-message"
	KindLowStock           Kind = "low-stock"
)

type Event interface {
	EventKind() Kind
}

// OrderStatusChanged is emitted exactly once per applied order transition.
// Statuses are carried as plain strings so consumers do not depend on the
// order package.
type OrderStatusChanged struct {
	OrderID        types.ID
	CustomerID     types.ID
	DriverID       *types.ID
	ServiceAreaID  types.ID
	PreviousStatus string
	NewStatus      string
	Actor          types.Actor
	At             time.Time
}

func (OrderStatusChanged) EventKind() Kind { return KindOrderStatusChanged }

// NewTicketMessage is emitted when a participant posts on a support ticket.
// RecipientID is already resolved to the other participant.
type NewTicketMessage struct {
	TicketID    types.ID
	MessageID   types.ID
	AuthorID    types.ID
	RecipientID types.ID
	Preview     string
	At          time.Time
}

func (NewTicketMessage) EventKind() Kind { return KindNewTicketMessage }

// LowStock is emitted when a product's stock crosses its threshold.
type LowStock struct {
	ProductID types.ID
	Name      string
	Remaining int
	Threshold int
	At        time.Time
}

func (LowStock) EventKind() Kind { return KindLowStock }
