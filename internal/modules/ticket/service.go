package ticket

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"wasla/internal/events"
	"wasla/internal/types"
)

var (
	ErrNotParticipant = errors.New("actor is not a participant of this ticket")
	ErrEmptyBody      = errors.New("message body is empty")
	ErrTicketClosed   = errors.New("ticket is closed")
)

type Publisher interface {
	Publish(e events.Event)
}

type Service struct {
	store Store
	bus   Publisher
	log   *zap.Logger
}

func NewService(store Store, bus Publisher, log *zap.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// PostMessage appends a message to the ticket thread and notifies the other
// participant. Staff with ADMIN or OPERATIONS roles may post on any ticket;
// customers only on their own.
func (s *Service) PostMessage(ctx context.Context, ticketID types.ID, author types.Actor, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	t, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusClosed {
		return nil, ErrTicketClosed
	}

	recipient, err := resolveRecipient(t, author)
	if err != nil {
		return nil, err
	}

	m := &Message{
		TicketID:  ticketID,
		AuthorID:  author.ID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	if recipient != "" {
		s.bus.Publish(events.NewTicketMessage{
			TicketID:    ticketID,
			MessageID:   m.ID,
			AuthorID:    author.ID,
			RecipientID: recipient,
			Preview:     m.Preview(),
			At:          m.CreatedAt,
		})
	}
	return m, nil
}

func (s *Service) Thread(ctx context.Context, ticketID types.ID, limit int) ([]Message, error) {
	return s.store.ListMessages(ctx, ticketID, limit)
}

// resolveRecipient picks the other participant. A staff message goes to the
// customer; a customer message goes to the assignee, or nowhere when the
// ticket is still unassigned.
func resolveRecipient(t *Ticket, author types.Actor) (types.ID, error) {
	if author.Role.Staff() {
		return t.CustomerID, nil
	}
	if author.ID != t.CustomerID {
		return "", ErrNotParticipant
	}
	if t.AssigneeID == nil {
		return "", nil
	}
	return *t.AssigneeID, nil
}
