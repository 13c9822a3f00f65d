// Order aggregate, status definitions, and the transition/authorization tables.
package order

import (
	"time"

	"wasla/internal/types"
)

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusReady          Status = "READY"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

type Order struct {
	ID            types.ID
	CustomerID    types.ID
	DriverID      *types.ID
	ServiceAreaID types.ID
	Status        Status
	StatusVersion int
	Subtotal      types.Money
	DeliveryFee   types.Money
	Total         types.Money
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Item belongs to exactly one order. Quantity and unit price are immutable
// once the order leaves PENDING.
type Item struct {
	ID        types.ID
	OrderID   types.ID
	ProductID types.ID
	Quantity  int
	UnitPrice types.Money
}

// AllowedTransitions represents the order lifecycle diagram as code.
// DELIVERED and CANCELLED are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type edge struct {
	from, to Status
}

// edgeRoles is the single authorization table consulted per transition.
// ADMIN appears on every edge, which is what the admin override amounts to.
var edgeRoles = map[edge][]types.Role{
	{StatusPending, StatusConfirmed}:        {types.RoleOperations, types.RoleAdmin},
	{StatusPending, StatusCancelled}:        {types.RoleCustomer, types.RoleOperations, types.RoleAdmin},
	{StatusConfirmed, StatusPreparing}:      {types.RoleOperations, types.RoleAdmin},
	{StatusConfirmed, StatusCancelled}:      {types.RoleOperations, types.RoleAdmin},
	{StatusPreparing, StatusReady}:          {types.RoleOperations, types.RoleAdmin},
	{StatusPreparing, StatusCancelled}:      {types.RoleOperations, types.RoleAdmin},
	{StatusReady, StatusOutForDelivery}:     {types.RoleDriver, types.RoleOperations, types.RoleAdmin},
	{StatusOutForDelivery, StatusDelivered}: {types.RoleDriver, types.RoleAdmin},
}

// RoleAllowed reports whether the role may drive the (from, to) edge.
func RoleAllowed(role types.Role, from, to Status) bool {
	for _, r := range edgeRoles[edge{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}
