package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wasla/internal/types"
)

var ErrNotFound = errors.New("ticket not found")

type Store interface {
	Get(ctx context.Context, id types.ID) (*Ticket, error)
	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, ticketID types.ID, limit int) ([]Message, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Ticket, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, assignee_id, subject, status, created_at
		FROM tickets
		WHERE id = $1`, string(id),
	)
	var t Ticket
	var assignee *string
	err := row.Scan(&t.ID, &t.CustomerID, &assignee, &t.Subject, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if assignee != nil {
		a := types.ID(*assignee)
		t.AssigneeID = &a
	}
	return &t, nil
}

func (s *PgStore) CreateMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = types.ID(uuid.NewString())
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO ticket_messages (id, ticket_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(m.ID), string(m.TicketID), string(m.AuthorID), m.Body, m.CreatedAt,
	)
	return err
}

func (s *PgStore) ListMessages(ctx context.Context, ticketID types.ID, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, ticket_id, author_id, body, created_at
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, string(ticketID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ Store = (*PgStore)(nil)
