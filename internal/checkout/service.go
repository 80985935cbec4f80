package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stondral/marketplace-checkout/internal/address"
	"github.com/stondral/marketplace-checkout/internal/gateway"
	"github.com/stondral/marketplace-checkout/internal/valuation"
)

// Valuator revalues a cart. Implemented by the valuation service client.
type Valuator interface {
	Valuate(ctx context.Context, lines []valuation.CartLine, discountCode string) (*valuation.Result, error)
}

// Gateway is the online payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, receipt string, amountMinor int64, currency string) (*gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// AddressStore resolves shipping addresses. FindByID returns (nil, nil) for
// a missing address.
type AddressStore interface {
	FindByID(ctx context.Context, id string) (*address.Address, error)
}

// Publisher emits domain events after a successful checkout. Publish
// failures never fail the checkout.
type Publisher interface {
	SellerOrderCreated(ctx context.Context, o *SellerOrder) error
}

// CheckoutInput is what the buyer submits: line ids and quantities only.
type CheckoutInput struct {
	Items        []valuation.CartLine
	AddressID    string
	DiscountCode string
}

// Confirmation is the gateway callback after the client SDK captured the
// payment. Items are the original line items, resent for revaluation;
// nothing price-like in here is trusted.
type Confirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Items            []valuation.CartLine
	AddressID        string
	DiscountCode     string
}

// Result of a completed checkout: one order id per seller, plus the
// correlation id stamped on all of them.
type Result struct {
	OrderIDs   []string
	CheckoutID string
}

// Intent is a gateway payment order awaiting client-side capture. No seller
// order exists yet.
type Intent struct {
	GatewayOrderID string
	Amount         int64 // minor units
	Currency       string
	Total          decimal.Decimal
	Items          []valuation.ValuedLine
}

type Service struct {
	repo      Repository
	mat       *Materializer
	addresses AddressStore
	valuator  Valuator
	gateway   Gateway
	events    Publisher
	currency  string
}

func NewService(repo Repository, stock StockStore, addresses AddressStore, valuator Valuator, gw Gateway, events Publisher, currency string) *Service {
	return &Service{
		repo:      repo,
		mat:       NewMaterializer(repo, stock),
		addresses: addresses,
		valuator:  valuator,
		gateway:   gw,
		events:    events,
		currency:  currency,
	}
}

// DirectCheckout is the cash-on-delivery path: revalue, split, materialize,
// all in one synchronous pass. Orders come out with payment pending.
func (s *Service) DirectCheckout(ctx context.Context, buyerID string, in CheckoutInput) (*Result, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := s.resolveAddress(ctx, buyerID, in.AddressID); err != nil {
		return nil, err
	}

	calc, err := s.valuator.Valuate(ctx, in.Items, in.DiscountCode)
	if err != nil {
		return nil, fmt.Errorf("valuate cart: %w", err)
	}
	if calc.IsStockProblem {
		return nil, &StockError{Problems: calc.StockErrors}
	}

	parts, err := SplitBySeller(calc)
	if err != nil {
		return nil, err
	}

	att := Attempt{
		BuyerID:       buyerID,
		CheckoutID:    newCheckoutID(),
		AddressID:     in.AddressID,
		PaymentMethod: PaymentMethodCOD,
		PaymentStatus: PaymentStatusPending,
	}

	saga := &Saga{}
	ids, err := s.mat.Create(ctx, att, parts, saga)
	if err != nil {
		log.Printf("[checkout] attempt %s failed after %d of %d orders, rolling back: %v",
			att.CheckoutID, len(ids), len(parts), err)
		saga.Compensate(ctx)
		return nil, ErrCheckoutFailed
	}

	s.publishCreated(ctx, att.CheckoutID)
	return &Result{OrderIDs: ids, CheckoutID: att.CheckoutID}, nil
}

// CreatePaymentIntent opens a gateway order for the full cart value. This is
// the payment-first half of the online path: money is never owed to a seller
// until the gateway confirms capture, so nothing is persisted here.
func (s *Service) CreatePaymentIntent(ctx context.Context, buyerID string, in CheckoutInput) (*Intent, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}

	calc, err := s.valuator.Valuate(ctx, in.Items, in.DiscountCode)
	if err != nil {
		return nil, fmt.Errorf("valuate cart: %w", err)
	}
	if calc.IsStockProblem {
		return nil, &StockError{Problems: calc.StockErrors}
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	amountMinor := calc.Total.Shift(2).Round(0).IntPart()

	gwOrder, err := s.gateway.CreateOrder(ctx, receipt, amountMinor, s.currency)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	return &Intent{
		GatewayOrderID: gwOrder.ID,
		Amount:         gwOrder.Amount,
		Currency:       gwOrder.Currency,
		Total:          calc.Total,
		Items:          calc.Items,
	}, nil
}

// FinalizePayment is the second half of the online path. It verifies the
// gateway signature, short-circuits replayed confirmations, revalues the
// original line items and only then materializes seller orders, stamped with
// the gateway payment id that makes future replays idempotent.
func (s *Service) FinalizePayment(ctx context.Context, buyerID string, conf Confirmation) (*Result, error) {
	if !s.gateway.VerifySignature(conf.GatewayOrderID, conf.GatewayPaymentID, conf.Signature) {
		log.Printf("[checkout] signature mismatch for gateway order %s, rejecting", conf.GatewayOrderID)
		return nil, ErrInvalidSignature
	}

	// Duplicate callback or client retry: hand back the original result.
	if res, ok, err := s.replayResult(ctx, conf.GatewayPaymentID); err != nil {
		return nil, err
	} else if ok {
		return res, nil
	}

	if len(conf.Items) == 0 {
		return nil, ErrEmptyCart
	}

	calc, err := s.valuator.Valuate(ctx, conf.Items, conf.DiscountCode)
	if err != nil {
		return nil, fmt.Errorf("valuate cart: %w", err)
	}
	if calc.IsStockProblem {
		// Funds are captured already; support reconciles this one.
		return nil, fmt.Errorf("%w: %s", ErrStockChanged, strings.Join(calc.StockErrors, "; "))
	}

	if err := s.resolveAddress(ctx, buyerID, conf.AddressID); err != nil {
		return nil, err
	}

	parts, err := SplitBySeller(calc)
	if err != nil {
		return nil, err
	}

	att := Attempt{
		BuyerID:          buyerID,
		CheckoutID:       conf.GatewayOrderID,
		AddressID:        conf.AddressID,
		PaymentMethod:    PaymentMethodOnline,
		PaymentStatus:    PaymentStatusPaid,
		GatewayPaymentID: conf.GatewayPaymentID,
		GatewaySignature: conf.Signature,
	}

	saga := &Saga{}
	ids, err := s.mat.Create(ctx, att, parts, saga)
	if err != nil {
		saga.Compensate(ctx)

		if errors.Is(err, ErrDuplicatePayment) {
			// Lost the race against a concurrent finalize of the same
			// payment; the winner's orders are the result.
			if res, ok, rerr := s.replayResult(ctx, conf.GatewayPaymentID); rerr == nil && ok {
				return res, nil
			}
		}

		log.Printf("[checkout] ALERT payment %s captured but order creation failed after %d of %d orders: %v",
			conf.GatewayPaymentID, len(ids), len(parts), err)
		return nil, ErrPaymentCapturedOrderFailed
	}

	s.publishCreated(ctx, att.CheckoutID)
	return &Result{OrderIDs: ids, CheckoutID: att.CheckoutID}, nil
}

func (s *Service) replayResult(ctx context.Context, paymentID string) (*Result, bool, error) {
	existing, err := s.repo.ListByGatewayPaymentID(ctx, paymentID)
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup for payment %s: %w", paymentID, err)
	}
	if len(existing) == 0 {
		return nil, false, nil
	}
	ids := make([]string, 0, len(existing))
	for _, o := range existing {
		ids = append(ids, o.ID)
	}
	return &Result{OrderIDs: ids, CheckoutID: existing[0].CheckoutID}, true, nil
}

func (s *Service) resolveAddress(ctx context.Context, buyerID, addressID string) error {
	if addressID == "" {
		return ErrInvalidAddress
	}
	addr, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		return fmt.Errorf("resolve address %s: %w", addressID, err)
	}
	if !addr.OwnedBy(buyerID) {
		return ErrInvalidAddress
	}
	return nil
}

func (s *Service) publishCreated(ctx context.Context, checkoutID string) {
	if s.events == nil {
		return
	}
	orders, err := s.repo.ListByCheckoutID(ctx, checkoutID)
	if err != nil {
		log.Printf("[events] load orders for checkout %s: %v", checkoutID, err)
		return
	}
	for i := range orders {
		if err := s.events.SellerOrderCreated(ctx, &orders[i]); err != nil {
			log.Printf("[events] publish order %s: %v", orders[i].ID, err)
		}
	}
}

func newCheckoutID() string {
	return fmt.Sprintf("COD-%d-%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
