package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/stondral/marketplace-checkout/internal/checkout"
	"github.com/stondral/marketplace-checkout/internal/valuation"
)

//
// ---------- STUBS ----------
//

// stubService implements checkoutService with canned results per operation.
type stubService struct {
	directRes   *checkout.Result
	directErr   error
	intentRes   *checkout.Intent
	intentErr   error
	finalizeRes *checkout.Result
	finalizeErr error

	lastBuyer string
	lastInput checkout.CheckoutInput
	lastConf  checkout.Confirmation
}

func (s *stubService) DirectCheckout(ctx context.Context, buyerID string, in checkout.CheckoutInput) (*checkout.Result, error) {
	s.lastBuyer, s.lastInput = buyerID, in
	return s.directRes, s.directErr
}

func (s *stubService) CreatePaymentIntent(ctx context.Context, buyerID string, in checkout.CheckoutInput) (*checkout.Intent, error) {
	s.lastBuyer, s.lastInput = buyerID, in
	return s.intentRes, s.intentErr
}

func (s *stubService) FinalizePayment(ctx context.Context, buyerID string, conf checkout.Confirmation) (*checkout.Result, error) {
	s.lastBuyer, s.lastConf = buyerID, conf
	return s.finalizeRes, s.finalizeErr
}

func doJSON(t *testing.T, r *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	r.ServeHTTP(w, req)
	return w
}

//
// ---------- TESTS ----------
//

func TestCreateCheckout_HappyPath(t *testing.T) {
	t.Parallel()

	svc := &stubService{directRes: &checkout.Result{
		OrderIDs:   []string{"o1", "o2"},
		CheckoutID: "COD-1700000000000-abcd1234",
	}}
	r := gin.New()
	r.POST("/checkout", createCheckoutHandler(svc))

	body := `{"items":[{"product_id":"p1","quantity":2},{"product_id":"p2","quantity":1}],"address_id":"addr-1"}`
	w := doJSON(t, r, http.MethodPost, "/checkout", "buyer-1", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		OrderIDs   []string `json:"order_ids"`
		CheckoutID string   `json:"checkout_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(out.OrderIDs) != 2 || out.CheckoutID == "" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if svc.lastBuyer != "buyer-1" {
		t.Fatalf("buyer=%s, expected buyer-1", svc.lastBuyer)
	}
	if len(svc.lastInput.Items) != 2 || svc.lastInput.Items[0].ProductID != "p1" {
		t.Fatalf("items not passed through: %+v", svc.lastInput.Items)
	}
}

func TestCreateCheckout_MissingIdentity(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	r := gin.New()
	r.POST("/checkout", createCheckoutHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout", "", `{"items":[],"address_id":"a"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, expected 401", w.Code)
	}
}

func TestCreateCheckout_StockConflict(t *testing.T) {
	t.Parallel()

	svc := &stubService{directErr: &checkout.StockError{Problems: []string{"p1: only 1 left"}}}
	r := gin.New()
	r.POST("/checkout", createCheckoutHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout", "buyer-1",
		`{"items":[{"product_id":"p1","quantity":5}],"address_id":"addr-1"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s, expected 409", w.Code, w.Body.String())
	}
	var out struct {
		StockErrors []string `json:"stock_errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || len(out.StockErrors) != 1 {
		t.Fatalf("per-item messages missing: %s", w.Body.String())
	}
}

func TestCreateCheckout_InvalidAddress(t *testing.T) {
	t.Parallel()

	svc := &stubService{directErr: checkout.ErrInvalidAddress}
	r := gin.New()
	r.POST("/checkout", createCheckoutHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout", "buyer-1",
		`{"items":[{"product_id":"p1","quantity":1}],"address_id":"addr-x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, expected 400", w.Code)
	}
	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte("Invalid address")) {
		t.Fatalf("body=%s, expected Invalid address", body)
	}
}

func TestCreateCheckout_GenericFailure(t *testing.T) {
	t.Parallel()

	svc := &stubService{directErr: checkout.ErrCheckoutFailed}
	r := gin.New()
	r.POST("/checkout", createCheckoutHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout", "buyer-1",
		`{"items":[{"product_id":"p1","quantity":1}],"address_id":"addr-1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, expected 500", w.Code)
	}
}

func TestCreatePaymentIntent_HappyPath(t *testing.T) {
	t.Parallel()

	svc := &stubService{intentRes: &checkout.Intent{
		GatewayOrderID: "gworder_1",
		Amount:         55000,
		Currency:       "INR",
		Total:          decimal.RequireFromString("550.00"),
		Items:          []valuation.ValuedLine{{ProductID: "p1", Quantity: 2, SellerID: "s1"}},
	}}
	r := gin.New()
	r.POST("/checkout/payment-intent", createPaymentIntentHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout/payment-intent", "buyer-1",
		`{"items":[{"product_id":"p1","quantity":2}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		GatewayOrderID string `json:"gateway_order_id"`
		Amount         int64  `json:"amount"`
		Currency       string `json:"currency"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if out.GatewayOrderID != "gworder_1" || out.Amount != 55000 || out.Currency != "INR" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestFinalizePayment_HappyPath(t *testing.T) {
	t.Parallel()

	svc := &stubService{finalizeRes: &checkout.Result{
		OrderIDs:   []string{"o1", "o2"},
		CheckoutID: "gworder_1",
	}}
	r := gin.New()
	r.POST("/checkout/payment-finalize", finalizePaymentHandler(svc))

	body := `{"gateway_order_id":"gworder_1","gateway_payment_id":"pay_1","signature":"deadbeef",
		"items":[{"product_id":"p1","quantity":2}],"address_id":"addr-1"}`
	w := doJSON(t, r, http.MethodPost, "/checkout/payment-finalize", "buyer-1", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastConf.GatewayPaymentID != "pay_1" || svc.lastConf.Signature != "deadbeef" {
		t.Fatalf("confirmation not passed through: %+v", svc.lastConf)
	}
}

func TestFinalizePayment_BadSignature(t *testing.T) {
	t.Parallel()

	svc := &stubService{finalizeErr: checkout.ErrInvalidSignature}
	r := gin.New()
	r.POST("/checkout/payment-finalize", finalizePaymentHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout/payment-finalize", "buyer-1",
		`{"gateway_order_id":"g","gateway_payment_id":"p","signature":"bad","items":[],"address_id":"a"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, expected 400", w.Code)
	}
	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte("Invalid payment signature")) {
		t.Fatalf("body=%s, expected Invalid payment signature", body)
	}
}

func TestFinalizePayment_CapturedButFailed(t *testing.T) {
	t.Parallel()

	svc := &stubService{finalizeErr: checkout.ErrPaymentCapturedOrderFailed}
	r := gin.New()
	r.POST("/checkout/payment-finalize", finalizePaymentHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout/payment-finalize", "buyer-1",
		`{"gateway_order_id":"g","gateway_payment_id":"p","signature":"s","items":[],"address_id":"a"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, expected 500", w.Code)
	}
	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte("contact support")) {
		t.Fatalf("body=%s, expected contact support message", body)
	}
}

func TestCreateCheckout_InvalidJSON(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	r := gin.New()
	r.POST("/checkout", createCheckoutHandler(svc))

	w := doJSON(t, r, http.MethodPost, "/checkout", "buyer-1", `{"items": not-json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, expected 400", w.Code)
	}
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	log.SetOutput(io.Discard)
}
