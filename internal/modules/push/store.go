package push

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"wasla/internal/types"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Upsert(ctx context.Context, sub *Subscription) error {
	if sub.ID == "" {
		sub.ID = types.ID(uuid.NewString())
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, failure_count, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (user_id, endpoint)
		DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, failure_count = 0`,
		string(sub.ID),
		string(sub.UserID),
		sub.Endpoint,
		sub.P256dh,
		sub.Auth,
		sub.CreatedAt,
	)
	return err
}

func (s *PgStore) ListByUser(ctx context.Context, userID types.ID) ([]Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, endpoint, p256dh, auth, failure_count, created_at
		FROM push_subscriptions
		WHERE user_id = $1`, string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.FailureCount, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PgStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

func (s *PgStore) RecordGoneFailure(ctx context.Context, endpoint string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		UPDATE push_subscriptions
		SET failure_count = failure_count + 1
		WHERE endpoint = $1
		RETURNING failure_count`, endpoint,
	).Scan(&count)
	return count, err
}

func (s *PgStore) ResetFailures(ctx context.Context, endpoint string) error {
	_, err := s.db.Exec(ctx, `UPDATE push_subscriptions SET failure_count = 0 WHERE endpoint = $1`, endpoint)
	return err
}

var _ Store = (*PgStore)(nil)
