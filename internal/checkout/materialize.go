package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Materializer turns partitions into persisted seller orders, one per seller
// in partition order, decrementing stock as it goes. Every committed step
// registers its inverse on the attempt's saga, so a failure at seller k
// leaves the caller with exactly the compensations for sellers 1..k-1 plus
// any stock already taken for seller k.
type Materializer struct {
	repo  Repository
	stock StockStore
}

func NewMaterializer(repo Repository, stock StockStore) *Materializer {
	return &Materializer{repo: repo, stock: stock}
}

// Create stops at the first failure and returns the IDs created so far; it
// never attempts the remaining sellers. On full success the returned IDs are
// exactly one order per partition, in partition order.
func (m *Materializer) Create(ctx context.Context, att Attempt, parts []Partition, saga *Saga) ([]string, error) {
	var ids []string
	for _, p := range parts {
		for _, ln := range p.Lines {
			ln := ln
			if err := m.stock.Decrement(ctx, ln.ProductID, ln.VariantID, ln.Quantity); err != nil {
				return ids, fmt.Errorf("decrement stock for product %s: %w", ln.ProductID, err)
			}
			saga.Record("restore stock "+ln.ProductID, func(ctx context.Context) error {
				return m.stock.Restore(ctx, ln.ProductID, ln.VariantID, ln.Quantity)
			})
		}

		o := buildOrder(att, p)
		if err := m.repo.Create(ctx, o); err != nil {
			return ids, fmt.Errorf("create order for seller %s: %w", p.SellerID, err)
		}
		orderID := o.ID
		saga.Record("delete order "+orderID, func(ctx context.Context) error {
			return m.repo.Delete(ctx, orderID)
		})
		ids = append(ids, orderID)
	}
	return ids, nil
}

func buildOrder(att Attempt, p Partition) *SellerOrder {
	now := time.Now().UTC()
	o := &SellerOrder{
		ID:                uuid.NewString(),
		BuyerID:           att.BuyerID,
		SellerID:          p.SellerID,
		Subtotal:          p.Subtotal,
		ShippingCost:      p.Shipping,
		GST:               p.GST,
		PlatformFee:       p.PlatformFee,
		Total:             p.Total,
		PaymentMethod:     att.PaymentMethod,
		PaymentStatus:     att.PaymentStatus,
		Status:            StatusPending,
		CheckoutID:        att.CheckoutID,
		ShippingAddressID: att.AddressID,
		GatewayPaymentID:  att.GatewayPaymentID,
		GatewaySignature:  att.GatewaySignature,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, ln := range p.Lines {
		ln.ID = uuid.NewString()
		ln.OrderID = o.ID
		o.Items = append(o.Items, ln)
	}
	return o
}
