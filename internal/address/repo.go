// Package address reads shipping addresses. Address CRUD lives in another
// service; checkout only resolves an id and checks ownership.
package address

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Address struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FullName   string    `json:"full_name"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OwnedBy reports whether the address belongs to the given user. Callers
// must check this before stamping the address onto an order.
func (a *Address) OwnedBy(userID string) bool {
	return a != nil && a.UserID == userID
}

type Repository interface {
	FindByID(ctx context.Context, id string) (*Address, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// FindByID returns (nil, nil) when the address does not exist.
func (r *PGRepo) FindByID(ctx context.Context, id string) (*Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, full_name, line1, COALESCE(line2,''), city, state, postal_code, COALESCE(phone,''), created_at
		FROM addresses WHERE id=$1
	`, id)
	var a Address
	if err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Phone, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
