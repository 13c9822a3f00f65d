// Order store backed by PostgreSQL.
package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wasla/internal/types"
)

// Store is the persistence contract the state machine depends on.
type Store interface {
	Get(ctx context.Context, id types.ID) (*Order, error)
	// UpdateStatus applies a compare-and-set on (status, status_version).
	// Returns false when another writer got there first.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID) (bool, error)
	ListItems(ctx context.Context, orderID types.ID) ([]Item, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, driver_id, service_area_id, status, status_version,
		       subtotal, delivery_fee, total, currency, created_at, updated_at
		FROM orders
		WHERE id = $1`, string(id),
	)

	var o Order
	var driverID *string
	var currency string
	err := row.Scan(
		&o.ID, &o.CustomerID, &driverID, &o.ServiceAreaID, &o.Status, &o.StatusVersion,
		&o.Subtotal.Amount, &o.DeliveryFee.Amount, &o.Total.Amount, &currency,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		d := types.ID(*driverID)
		o.DriverID = &d
	}
	o.Subtotal.Currency = currency
	o.DeliveryFee.Currency = currency
	o.Total.Currency = currency
	return &o, nil
}

func (s *PgStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID) (bool, error) {
	var d *string
	if driverID != nil {
		v := string(*driverID)
		d = &v
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    driver_id = COALESCE($2, driver_id),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		d,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) ListItems(ctx context.Context, orderID types.ID) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, currency
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var currency string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice.Amount, &currency); err != nil {
			return nil, err
		}
		it.UnitPrice.Currency = currency
		items = append(items, it)
	}
	return items, rows.Err()
}

var _ Store = (*PgStore)(nil)
