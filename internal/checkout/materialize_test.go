package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stondral/marketplace-checkout/internal/valuation"
)

func TestMaterializer_StopsAtFirstFailure(t *testing.T) {
	calc := &valuation.Result{
		Items: []valuation.ValuedLine{
			line("prod-a", "s1", "10", 1),
			line("prod-b", "s2", "10", 1),
			line("prod-c", "s3", "10", 1),
		},
		Subtotal: dec("30"),
	}
	parts, err := SplitBySeller(calc)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	repo := newFakeRepo()
	repo.failAt = 2
	stock := &fakeStock{levels: map[string]int{"prod-a": 5, "prod-b": 5, "prod-c": 5}}
	mat := NewMaterializer(repo, stock)

	saga := &Saga{}
	att := Attempt{BuyerID: testBuyer, CheckoutID: "chk-1", AddressID: testAddr,
		PaymentMethod: PaymentMethodCOD, PaymentStatus: PaymentStatusPending}

	ids, err := mat.Create(context.Background(), att, parts, saga)
	require.Error(t, err)

	// Exactly the first seller got through; the third was never attempted.
	assert.Len(t, ids, 1)
	assert.Equal(t, 2, repo.creates)
	assert.Equal(t, 5, stock.levels["prod-c"], "third seller's stock untouched")

	// The saga holds the inverse of everything committed: one delete, two
	// stock restores (seller two's line was taken before its create failed).
	assert.Equal(t, 3, saga.Len())
	saga.Compensate(context.Background())
	assert.Empty(t, repo.orders)
	assert.Equal(t, 5, stock.levels["prod-a"])
	assert.Equal(t, 5, stock.levels["prod-b"])
}

func TestMaterializer_FullSuccessOrderAndIDs(t *testing.T) {
	parts, err := SplitBySeller(twoSellerCalc())
	require.NoError(t, err)

	repo := newFakeRepo()
	stock := &fakeStock{levels: map[string]int{"prod-a": 5, "prod-b": 5}}
	mat := NewMaterializer(repo, stock)

	saga := &Saga{}
	att := Attempt{BuyerID: testBuyer, CheckoutID: "chk-2", AddressID: testAddr,
		PaymentMethod: PaymentMethodCOD, PaymentStatus: PaymentStatusPending}

	ids, err := mat.Create(context.Background(), att, parts, saga)
	require.NoError(t, err)
	require.Len(t, ids, len(parts))
	assert.Equal(t, repo.created, ids, "ids come back in partition order")

	for i, id := range ids {
		o, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, parts[i].SellerID, o.SellerID)
		require.Len(t, o.Items, len(parts[i].Lines))
		for _, ln := range o.Items {
			assert.Equal(t, id, ln.OrderID)
			assert.NotEmpty(t, ln.ID)
		}
	}
}
