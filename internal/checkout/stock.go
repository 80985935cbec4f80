package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// StockStore adjusts the stock ledger. Decrement is conditional at the data
// layer (stock = stock - qty only where stock >= qty), so two concurrent
// checkouts can never drive a count below zero.
type StockStore interface {
	Decrement(ctx context.Context, productID string, variantID *string, qty int) error
	Restore(ctx context.Context, productID string, variantID *string, qty int) error
}

type PGStockStore struct{ db *pgxpool.Pool }

func NewPGStockStore(db *pgxpool.Pool) *PGStockStore { return &PGStockStore{db: db} }

func (s *PGStockStore) Decrement(ctx context.Context, productID string, variantID *string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
    UPDATE product_stock
    SET stock = stock - $3
    WHERE product_id=$1 AND variant_id=COALESCE($2,'') AND stock >= $3
  `, productID, variantID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *PGStockStore) Restore(ctx context.Context, productID string, variantID *string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
    UPDATE product_stock
    SET stock = stock + $3
    WHERE product_id=$1 AND variant_id=COALESCE($2,'')
  `, productID, variantID, qty)
	return err
}
