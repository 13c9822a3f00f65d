package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wasla/internal/types"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Store interface {
	// Decrement atomically subtracts qty from the product's stock and returns
	// the resulting level. ErrInsufficientStock when the count would go
	// negative.
	Decrement(ctx context.Context, productID types.ID, qty int) (StockLevel, error)
	Get(ctx context.Context, productID types.ID) (*Product, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Decrement(ctx context.Context, productID types.ID, qty int) (StockLevel, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
		RETURNING name, stock, threshold`,
		string(productID), qty,
	)

	level := StockLevel{ProductID: productID}
	err := row.Scan(&level.Name, &level.Remaining, &level.Threshold)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the product does not exist or the guard refused the update.
		if _, gerr := s.Get(ctx, productID); gerr != nil {
			return StockLevel{}, gerr
		}
		return StockLevel{}, ErrInsufficientStock
	}
	if err != nil {
		return StockLevel{}, err
	}
	return level, nil
}

func (s *PgStore) Get(ctx context.Context, productID types.ID) (*Product, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, name_ar, price, stock, threshold
		FROM products
		WHERE id = $1`, string(productID),
	)
	p := Product{Price: types.Money{Currency: "SAR"}}
	err := row.Scan(&p.ID, &p.Name, &p.NameAr, &p.Price.Amount, &p.Stock, &p.Threshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var _ Store = (*PgStore)(nil)
