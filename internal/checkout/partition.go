package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stondral/marketplace-checkout/internal/valuation"
)

// Partition is one seller's slice of a checkout: the seller's lines plus the
// seller's proportional share of the cart-wide shipping, tax and platform fee.
type Partition struct {
	SellerID    string
	Lines       []OrderLine
	Subtotal    decimal.Decimal
	Shipping    decimal.Decimal
	GST         decimal.Decimal
	PlatformFee decimal.Decimal
	Total       decimal.Decimal
}

// SplitBySeller groups a valuation result by seller, preserving the order in
// which sellers first appear in the cart, and allocates shared costs by each
// seller's fraction of the cart subtotal. Each component is rounded to minor
// units independently per seller, so the sum of seller totals may drift from
// the cart total by a few minor units.
//
// The result must not carry a stock problem; a line without a seller is a
// fatal validation error.
func SplitBySeller(calc *valuation.Result) ([]Partition, error) {
	if calc == nil || len(calc.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if calc.IsStockProblem {
		return nil, &StockError{Problems: calc.StockErrors}
	}

	index := make(map[string]int)
	var parts []Partition
	for _, it := range calc.Items {
		if it.SellerID == "" {
			return nil, fmt.Errorf("%w: product %s", ErrMissingSeller, it.ProductID)
		}
		line := OrderLine{
			ProductID:       it.ProductID,
			VariantID:       it.VariantID,
			Name:            it.Name,
			Image:           it.Image,
			PriceAtPurchase: it.Price,
			Quantity:        it.Quantity,
			SellerID:        it.SellerID,
		}
		i, ok := index[it.SellerID]
		if !ok {
			i = len(parts)
			index[it.SellerID] = i
			parts = append(parts, Partition{SellerID: it.SellerID})
		}
		parts[i].Lines = append(parts[i].Lines, line)
		lineTotal := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		parts[i].Subtotal = parts[i].Subtotal.Add(lineTotal)
	}

	for i := range parts {
		p := &parts[i]
		p.Shipping = share(p.Subtotal, calc.Subtotal, calc.Shipping)
		p.GST = share(p.Subtotal, calc.Subtotal, calc.Tax)
		p.PlatformFee = share(p.Subtotal, calc.Subtotal, calc.PlatformFee)
		p.Total = p.Subtotal.Add(p.Shipping).Add(p.GST).Add(p.PlatformFee)
	}
	return parts, nil
}

// share is round(sellerSubtotal/cartSubtotal * amount) in minor units.
func share(sellerSubtotal, cartSubtotal, amount decimal.Decimal) decimal.Decimal {
	if cartSubtotal.IsZero() {
		return decimal.Zero
	}
	return sellerSubtotal.Mul(amount).Div(cartSubtotal).Round(2)
}
