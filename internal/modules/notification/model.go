// Notifications: the durable record of what each user must be told.
// Rows are created only by the dispatcher, never by request handlers.
package notification

import (
	"time"

	"wasla/internal/types"
)

type Notification struct {
	ID        types.ID
	UserID    types.ID
	Type      string
	Payload   map[string]any
	CreatedAt time.Time
	ReadAt    *time.Time
}

// Wire event names delivered on rooms.
const (
	EventOrderStatusChanged = "order-status-changed"
	EventNotificationNew    = "notification-new"
)
