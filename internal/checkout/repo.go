package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("seller order not found")

	// ErrDuplicatePayment fires the unique index on
	// (gateway_payment_id, seller_id): another finalize of the same payment
	// already created this seller's order. This is the idempotent-hit
	// signal, not a fault.
	ErrDuplicatePayment = errors.New("seller order already exists for this payment")
)

const duplicatePaymentConstraint = "uq_seller_orders_payment_seller"

type Repository interface {
	Create(ctx context.Context, o *SellerOrder) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*SellerOrder, error)
	ListByGatewayPaymentID(ctx context.Context, paymentID string) ([]SellerOrder, error)
	ListByCheckoutID(ctx context.Context, checkoutID string) ([]SellerOrder, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// Create persists the order header and all of its lines in one transaction:
// either every line for the seller is attached or the order does not exist.
func (r *PGRepo) Create(ctx context.Context, o *SellerOrder) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO seller_orders
      (id, buyer_id, seller_id, subtotal, shipping_cost, gst, platform_fee, total,
       payment_method, payment_status, status, checkout_id, shipping_address_id,
       gateway_payment_id, gateway_signature, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW(),NOW())
  `, o.ID, o.BuyerID, o.SellerID,
		o.Subtotal.StringFixed(2), o.ShippingCost.StringFixed(2), o.GST.StringFixed(2),
		o.PlatformFee.StringFixed(2), o.Total.StringFixed(2),
		o.PaymentMethod, o.PaymentStatus, o.Status, o.CheckoutID, o.ShippingAddressID,
		nullIfEmpty(o.GatewayPaymentID), nullIfEmpty(o.GatewaySignature)); err != nil {
		return mapCreateErr(err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO seller_order_items
        (id, order_id, product_id, variant_id, name, image, price_at_purchase, quantity, seller_id)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, it.ID, o.ID, it.ProductID, it.VariantID, it.Name, nullIfEmpty(it.Image),
			it.PriceAtPurchase.StringFixed(2), it.Quantity, it.SellerID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Delete removes the order; its lines go with it (ON DELETE CASCADE).
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM seller_orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*SellerOrder, error) {
	orders, err := r.list(ctx, `WHERE o.id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (r *PGRepo) ListByGatewayPaymentID(ctx context.Context, paymentID string) ([]SellerOrder, error) {
	return r.list(ctx, `WHERE o.gateway_payment_id=$1 ORDER BY o.created_at, o.id`, paymentID)
}

func (r *PGRepo) ListByCheckoutID(ctx context.Context, checkoutID string) ([]SellerOrder, error) {
	return r.list(ctx, `WHERE o.checkout_id=$1 ORDER BY o.created_at, o.id`, checkoutID)
}

func (r *PGRepo) list(ctx context.Context, where string, arg any) ([]SellerOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
    SELECT o.id, o.buyer_id, o.seller_id,
           o.subtotal::text, o.shipping_cost::text, o.gst::text, o.platform_fee::text, o.total::text,
           o.payment_method, o.payment_status, o.status, o.checkout_id, o.shipping_address_id,
           COALESCE(o.gateway_payment_id,''), COALESCE(o.gateway_signature,''),
           o.created_at, o.updated_at
    FROM seller_orders o `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SellerOrder
	for rows.Next() {
		var o SellerOrder
		var sub, ship, gst, fee, total string
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.SellerID,
			&sub, &ship, &gst, &fee, &total,
			&o.PaymentMethod, &o.PaymentStatus, &o.Status, &o.CheckoutID, &o.ShippingAddressID,
			&o.GatewayPaymentID, &o.GatewaySignature, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.Subtotal, err = decimal.NewFromString(sub); err != nil {
			return nil, err
		}
		if o.ShippingCost, err = decimal.NewFromString(ship); err != nil {
			return nil, err
		}
		if o.GST, err = decimal.NewFromString(gst); err != nil {
			return nil, err
		}
		if o.PlatformFee, err = decimal.NewFromString(fee); err != nil {
			return nil, err
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.getItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *PGRepo) getItems(ctx context.Context, orderID string) ([]OrderLine, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, order_id, product_id, variant_id, name, COALESCE(image,''), price_at_purchase::text, quantity, seller_id
    FROM seller_order_items WHERE order_id=$1 ORDER BY id
  `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderLine
	for rows.Next() {
		var it OrderLine
		var price string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Name, &it.Image, &price, &it.Quantity, &it.SellerID); err != nil {
			return nil, err
		}
		if it.PriceAtPurchase, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func mapCreateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == duplicatePaymentConstraint {
		return ErrDuplicatePayment
	}
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
