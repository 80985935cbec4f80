package checkout

import (
	"errors"
	"strings"
)

var (
	// Validation: fail fast, no side effects, never retried as-is.
	ErrEmptyCart     = errors.New("cart is empty")
	ErrMissingSeller = errors.New("line item has no seller")

	// Authorization: the address does not exist or is not the buyer's.
	ErrInvalidAddress = errors.New("Invalid address")

	// The gateway confirmation failed HMAC verification. Logged as a
	// potential security event, no side effects.
	ErrInvalidSignature = errors.New("Invalid payment signature")

	// Stock went bad between intent and finalize. Funds are already
	// captured; this is a support reconciliation case, not a refund.
	ErrStockChanged = errors.New("Stock changed during payment")

	// Generic failure after compensation ran. The buyer retries; details
	// are in the logs.
	ErrCheckoutFailed = errors.New("checkout failed, please try again")

	// Orders could not be created although payment was captured. Higher
	// severity than ErrCheckoutFailed: money has moved.
	ErrPaymentCapturedOrderFailed = errors.New("payment captured but order creation failed, contact support")
)

// StockError carries the valuator's per-item stock messages so the buyer
// can adjust the cart and retry.
type StockError struct {
	Problems []string
}

func (e *StockError) Error() string {
	if len(e.Problems) == 0 {
		return "stock problem"
	}
	return "stock problem: " + strings.Join(e.Problems, "; ")
}
