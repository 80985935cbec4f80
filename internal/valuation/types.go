// Package valuation is the client for the cart valuation collaborator.
// It owns the wire contract: line items go in, authoritative prices and
// cart-wide totals come out. Client-supplied prices are never used.
package valuation

import "github.com/shopspring/decimal"

// CartLine is one untrusted line item as submitted by the buyer.
// Prices are deliberately absent.
type CartLine struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
}

// ValuedLine is one line item after revaluation. Price is the
// authoritative unit price; SellerID attributes the line to its vendor.
type ValuedLine struct {
	ProductID string          `json:"product_id"`
	VariantID *string         `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	SellerID  string          `json:"seller_id"`
	Stock     int             `json:"stock"`
}

// Result is the full valuation of a cart. Subtotal equals the sum of
// Price*Quantity over Items. When IsStockProblem is set no order may be
// created from this result; StockErrors carries the per-item messages.
type Result struct {
	Items          []ValuedLine    `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	Tax            decimal.Decimal `json:"tax"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	Total          decimal.Decimal `json:"total"`
	IsStockProblem bool            `json:"is_stock_problem"`
	StockErrors    []string        `json:"stock_errors,omitempty"`
}
