package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"wasla/internal/types"
)

type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID types.ID) error
}

// Directory is the read-mostly view of users consumed by audience resolution.
type Directory interface {
	ListStaffIDs(ctx context.Context) ([]types.ID, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = types.ID(uuid.NewString())
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(n.ID),
		string(n.UserID),
		n.Type,
		n.Payload,
		n.CreatedAt,
	)
	return err
}

func (s *PgStore) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, payload, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, string(userID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Payload, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead stamps read_at. Read state is presentation-only: it never affects
// audience resolution or later deliveries.
func (s *PgStore) MarkRead(ctx context.Context, id, userID types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		string(id), string(userID),
	)
	return err
}

var _ Store = (*PgStore)(nil)

type PgDirectory struct {
	db *pgxpool.Pool
}

func NewPgDirectory(db *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{db: db}
}

func (d *PgDirectory) ListStaffIDs(ctx context.Context) ([]types.ID, error) {
	rows, err := d.db.Query(ctx, `SELECT id FROM users WHERE role IN ('ADMIN', 'OPERATIONS')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ID(id))
	}
	return ids, rows.Err()
}

var _ Directory = (*PgDirectory)(nil)
