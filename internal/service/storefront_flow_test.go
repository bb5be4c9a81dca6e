package service

import (
	"context"
	"testing"

	"storefront-service/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full purchase lifecycle: build a session for one product, pay it, verify
// it twice, then check entitlement for the buyer and a stranger.
func TestPurchaseLifecycle(t *testing.T) {
	gw := newFakeGateway()
	st := newFakeStore()
	pub := &fakePublisher{}

	checkout := NewCheckoutService(gw, st, NewDiscountEvaluator(nil), pub, "https://store.example")
	reconcile := NewReconcileService(gw, st, pub)
	entitlement := NewEntitlementService(st)

	ctx := context.Background()

	resp, err := checkout.CreateSession(ctx, &CheckoutRequest{
		Email: "reader@example.com",
		Items: []CartLineRequest{{ProductID: "ebook-a", Title: "Ebook A", UnitPrice: 999}},
	})
	require.NoError(t, err)

	// Verification before payment must not grant anything.
	_, err = reconcile.Reconcile(ctx, resp.SessionID, nil)
	require.ErrorIs(t, err, ErrPaymentNotCompleted)

	ok, _, err := entitlement.HasAccess(ctx, Identity{Email: "reader@example.com"}, "ebook-a")
	require.NoError(t, err)
	assert.False(t, ok)

	gw.markPaid(resp.SessionID, gateway.PaymentStatusPaid)

	first, err := reconcile.Reconcile(ctx, resp.SessionID, nil)
	require.NoError(t, err)
	assert.True(t, first.PurchasesSaved)
	assert.Equal(t, LineStatusSaved, first.Results[0].Status)
	assert.Equal(t, int64(999), first.Results[0].Amount)

	// A page refresh re-verifies the same session.
	second, err := reconcile.Reconcile(ctx, resp.SessionID, nil)
	require.NoError(t, err)
	assert.True(t, second.PurchasesSaved)
	assert.Equal(t, LineStatusAlreadyExists, second.Results[0].Status)
	assert.Equal(t, 1, st.purchaseCount())

	ok, purchase, err := entitlement.HasAccess(ctx, Identity{Email: "reader@example.com"}, "ebook-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(999), purchase.Amount)

	ok, _, err = entitlement.HasAccess(ctx, Identity{Email: "stranger@example.com"}, "ebook-a")
	require.NoError(t, err)
	assert.False(t, ok)
}
