// Push subscription lifecycle: register, deduplicate, prune.
package push

import (
	"context"
	"time"

	"wasla/internal/types"
)

// Subscription is one device endpoint. At most one row exists per
// (UserID, Endpoint) pair.
type Subscription struct {
	ID           types.ID
	UserID       types.ID
	Endpoint     string
	P256dh       string
	Auth         string
	FailureCount int
	CreatedAt    time.Time
}

// SendResult classifies one delivery attempt by the external transport.
type SendResult int

const (
	SendDelivered SendResult = iota
	SendGone
	SendTransient
)

// Sender is the external push-transport collaborator.
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload []byte) SendResult
}

type Store interface {
	Upsert(ctx context.Context, sub *Subscription) error
	ListByUser(ctx context.Context, userID types.ID) ([]Subscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	// RecordGoneFailure bumps the endpoint's consecutive-failure counter and
	// returns the new count. Delivery success resets it.
	RecordGoneFailure(ctx context.Context, endpoint string) (int, error)
	ResetFailures(ctx context.Context, endpoint string) error
}
