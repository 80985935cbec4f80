package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stondral/marketplace-checkout/internal/checkout"
	"github.com/stondral/marketplace-checkout/internal/httpx"
	"github.com/stondral/marketplace-checkout/internal/valuation"
)

// checkoutService is what the handlers need; the tests plug in a stub.
type checkoutService interface {
	DirectCheckout(ctx context.Context, buyerID string, in checkout.CheckoutInput) (*checkout.Result, error)
	CreatePaymentIntent(ctx context.Context, buyerID string, in checkout.CheckoutInput) (*checkout.Intent, error)
	FinalizePayment(ctx context.Context, buyerID string, conf checkout.Confirmation) (*checkout.Result, error)
}

type checkoutItem struct {
	ProductID string  `json:"product_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"   example:"2"`
}

// CreateCheckoutRequest payload for the cash-on-delivery path.
// swagger:model CreateCheckoutRequest
type CreateCheckoutRequest struct {
	Items        []checkoutItem `json:"items"`
	AddressID    string         `json:"address_id"`
	DiscountCode string         `json:"discount_code,omitempty"`
}

// PaymentIntentRequest payload for opening a gateway payment order.
// swagger:model PaymentIntentRequest
type PaymentIntentRequest struct {
	Items        []checkoutItem `json:"items"`
	DiscountCode string         `json:"discount_code,omitempty"`
}

// FinalizePaymentRequest is the captured-payment confirmation.
// swagger:model FinalizePaymentRequest
type FinalizePaymentRequest struct {
	GatewayOrderID   string         `json:"gateway_order_id"`
	GatewayPaymentID string         `json:"gateway_payment_id"`
	Signature        string         `json:"signature"`
	Items            []checkoutItem `json:"items"`
	AddressID        string         `json:"address_id"`
	DiscountCode     string         `json:"discount_code,omitempty"`
}

func toCartLines(items []checkoutItem) []valuation.CartLine {
	out := make([]valuation.CartLine, 0, len(items))
	for _, it := range items {
		out = append(out, valuation.CartLine{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
	}
	return out
}

// buyerID reads the identity the upstream gateway injected after session
// lookup. Empty means the request never went through auth.
func buyerID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return "", false
	}
	return id, true
}

func createCheckoutHandler(svc checkoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := buyerID(c)
		if !ok {
			return
		}
		var req CreateCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		res, err := svc.DirectCheckout(c.Request.Context(), uid, checkout.CheckoutInput{
			Items:        toCartLines(req.Items),
			AddressID:    req.AddressID,
			DiscountCode: req.DiscountCode,
		})
		if err != nil {
			writeCheckoutError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order_ids": res.OrderIDs, "checkout_id": res.CheckoutID})
	}
}

func createPaymentIntentHandler(svc checkoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := buyerID(c)
		if !ok {
			return
		}
		var req PaymentIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		intent, err := svc.CreatePaymentIntent(c.Request.Context(), uid, checkout.CheckoutInput{
			Items:        toCartLines(req.Items),
			DiscountCode: req.DiscountCode,
		})
		if err != nil {
			writeCheckoutError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"gateway_order_id": intent.GatewayOrderID,
			"amount":           intent.Amount,
			"currency":         intent.Currency,
			"total":            intent.Total,
			"items":            intent.Items,
		})
	}
}

func finalizePaymentHandler(svc checkoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := buyerID(c)
		if !ok {
			return
		}
		var req FinalizePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		res, err := svc.FinalizePayment(c.Request.Context(), uid, checkout.Confirmation{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Signature:        req.Signature,
			Items:            toCartLines(req.Items),
			AddressID:        req.AddressID,
			DiscountCode:     req.DiscountCode,
		})
		if err != nil {
			if errors.Is(err, checkout.ErrPaymentCapturedOrderFailed) {
				// Money moved. Keep this line grep-able for alerting.
				log.Printf("[checkout] rid=%s payment-captured-order-failed payment=%s", httpx.RID(c), req.GatewayPaymentID)
			}
			writeCheckoutError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_ids": res.OrderIDs, "checkout_id": res.CheckoutID})
	}
}

func writeCheckoutError(c *gin.Context, err error) {
	var stockErr *checkout.StockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{"error": "stock problem", "stock_errors": stockErr.Problems})
	case errors.Is(err, checkout.ErrStockChanged):
		c.JSON(http.StatusConflict, gin.H{"error": checkout.ErrStockChanged.Error()})
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrMissingSeller):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": checkout.ErrInvalidAddress.Error()})
	case errors.Is(err, checkout.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": checkout.ErrInvalidSignature.Error()})
	case errors.Is(err, checkout.ErrPaymentCapturedOrderFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": checkout.ErrPaymentCapturedOrderFailed.Error()})
	default:
		log.Printf("[checkout] rid=%s internal error: %v", httpx.RID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "please try again"})
	}
}
