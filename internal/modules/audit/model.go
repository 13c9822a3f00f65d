// Audit trail of every mutating action, with before/after snapshots.
package audit

import (
	"time"

	"wasla/internal/types"
)

type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
)

// Entry is one append-only audit row. ActorUserID is nil for unauthenticated
// attempts such as failed logins.
type Entry struct {
	ID          int64
	ActorUserID *types.ID
	Action      Action
	Entity      string
	EntityID    types.ID
	OldData     map[string]any
	NewData     map[string]any
	IPAddress   *string
	UserAgent   *string
	CreatedAt   time.Time
}

// Filters narrows an administrative query. Zero values mean "no constraint".
type Filters struct {
	ActorUserID types.ID
	Entity      string
	EntityID    types.ID
	From        time.Time
	To          time.Time
}

type Page struct {
	Offset int
	Limit  int
}
