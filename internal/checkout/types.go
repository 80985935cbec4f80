// Package checkout is the orchestration engine: it revalues carts, splits
// them into one order per seller, materializes those orders and compensates
// on partial failure. Online payments go through an intent/finalize pair,
// cash on delivery is a single synchronous pass.
package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"

	StatusPending = "PENDING"
)

// OrderLine is one purchased line inside a seller order. PriceAtPurchase is
// the revalued unit price, never the client-supplied one.
type OrderLine struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	ProductID       string          `json:"product_id"`
	VariantID       *string         `json:"variant_id,omitempty"`
	Name            string          `json:"name"`
	Image           string          `json:"image,omitempty"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Quantity        int             `json:"quantity"`
	SellerID        string          `json:"seller_id"`
}

// SellerOrder is one order scoped to a single seller's subset of the cart.
// Orders from the same checkout are siblings correlated only by CheckoutID.
// Total = Subtotal + ShippingCost + GST + PlatformFee.
type SellerOrder struct {
	ID                string          `json:"id"`
	BuyerID           string          `json:"buyer_id"`
	SellerID          string          `json:"seller_id"`
	Items             []OrderLine     `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	GST               decimal.Decimal `json:"gst"`
	PlatformFee       decimal.Decimal `json:"platform_fee"`
	Total             decimal.Decimal `json:"total"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentStatus     string          `json:"payment_status"`
	Status            string          `json:"status"`
	CheckoutID        string          `json:"checkout_id"`
	ShippingAddressID string          `json:"shipping_address_id"`
	GatewayPaymentID  string          `json:"gateway_payment_id,omitempty"`
	GatewaySignature  string          `json:"gateway_signature,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Attempt is the immutable correlation context of one checkout run. It is
// passed explicitly to every component call; nothing about an attempt lives
// in globals or closures.
type Attempt struct {
	BuyerID          string
	CheckoutID       string
	AddressID        string
	PaymentMethod    string
	PaymentStatus    string
	GatewayPaymentID string
	GatewaySignature string
}
