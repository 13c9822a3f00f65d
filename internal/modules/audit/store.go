// Audit store backed by PostgreSQL. Rows are only ever appended; the
// retention sweep is the single sanctioned delete path.
package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"wasla/internal/types"
)

type Store interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filters, p Page) ([]Entry, error)
	// DeleteOlderThan removes at most limit rows older than cutoff,
	// oldest-first, and reports how many went.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Append(ctx context.Context, e *Entry) error {
	var actor *string
	if e.ActorUserID != nil {
		v := string(*e.ActorUserID)
		actor = &v
	}
	return s.db.QueryRow(ctx, `
		INSERT INTO audit_logs (
			actor_user_id, action, entity, entity_id,
			old_data, new_data, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		actor,
		string(e.Action),
		e.Entity,
		string(e.EntityID),
		e.OldData,
		e.NewData,
		e.IPAddress,
		e.UserAgent,
		e.CreatedAt,
	).Scan(&e.ID)
}

func (s *PgStore) List(ctx context.Context, f Filters, p Page) ([]Entry, error) {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}

	query := `
		SELECT id, actor_user_id, action, entity, entity_id,
		       old_data, new_data, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE 1=1`
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return "$" + strconv.Itoa(n)
	}
	if f.ActorUserID != "" {
		query += " AND actor_user_id = " + arg(string(f.ActorUserID))
	}
	if f.Entity != "" {
		query += " AND entity = " + arg(f.Entity)
	}
	if f.EntityID != "" {
		query += " AND entity_id = " + arg(string(f.EntityID))
	}
	if !f.From.IsZero() {
		query += " AND created_at >= " + arg(f.From)
	}
	if !f.To.IsZero() {
		query += " AND created_at <= " + arg(f.To)
	}
	query += " ORDER BY created_at DESC, id DESC OFFSET " + arg(p.Offset) + " LIMIT " + arg(p.Limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var actor *string
		if err := rows.Scan(
			&e.ID, &actor, &e.Action, &e.Entity, &e.EntityID,
			&e.OldData, &e.NewData, &e.IPAddress, &e.UserAgent, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if actor != nil {
			a := types.ID(*actor)
			e.ActorUserID = &a
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM audit_logs
		WHERE id IN (
			SELECT id FROM audit_logs
			WHERE created_at < $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2
		)`, cutoff, limit,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*PgStore)(nil)
