// Support tickets: one customer, one assigned staff member, a message thread.
package ticket

import (
	"time"

	"wasla/internal/types"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

type Ticket struct {
	ID         types.ID
	CustomerID types.ID
	AssigneeID *types.ID
	Subject    string
	Status     Status
	CreatedAt  time.Time
}

type Message struct {
	ID        types.ID
	TicketID  types.ID
	AuthorID  types.ID
	Body      string
	CreatedAt time.Time
}

const previewRunes = 120

// Preview returns the first runes of the body for notification payloads.
func (m Message) Preview() string {
	r := []rune(m.Body)
	if len(r) <= previewRunes {
		return m.Body
	}
	return string(r[:previewRunes])
}
