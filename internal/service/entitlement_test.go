package service

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPurchase(st *fakeStore, userID *string, email, productID string) {
	st.purchases = append(st.purchases, models.Purchase{
		UserID:        userID,
		CustomerEmail: email,
		ProductID:     productID,
		Amount:        999,
		Currency:      "usd",
		Status:        models.PurchaseStatusCompleted,
		PurchasedAt:   time.Now(),
	})
}

func TestHasAccessByEmail(t *testing.T) {
	st := newFakeStore()
	seedPurchase(st, nil, "buyer@example.com", "ebook-a")
	svc := NewEntitlementService(st)

	ok, purchase, err := svc.HasAccess(context.Background(), Identity{Email: "buyer@example.com"}, "ebook-a")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, purchase)
	assert.Equal(t, "ebook-a", purchase.ProductID)

	ok, _, err = svc.HasAccess(context.Background(), Identity{Email: "other@example.com"}, "ebook-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

// A guest purchase must be claimable by an account created later with the
// same email, and a user-attributed purchase must stay visible if the user
// later checks out with a different email.
func TestHasAccessMatchesUserOrEmail(t *testing.T) {
	st := newFakeStore()
	userID := "user-42"
	seedPurchase(st, nil, "guest@example.com", "ebook-a")
	seedPurchase(st, &userID, "old-email@example.com", "course-b")
	svc := NewEntitlementService(st)

	// Logged-in user whose account email matches a guest purchase.
	ok, _, err := svc.HasAccess(context.Background(), Identity{UserID: &userID, Email: "guest@example.com"}, "ebook-a")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same user, new email, purchase recorded under the user id.
	ok, _, err = svc.HasAccess(context.Background(), Identity{UserID: &userID, Email: "new-email@example.com"}, "course-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasAccessRequiresIdentity(t *testing.T) {
	svc := NewEntitlementService(newFakeStore())

	_, _, err := svc.HasAccess(context.Background(), Identity{}, "ebook-a")
	assert.ErrorIs(t, err, ErrUnresolvedIdentity)
}

func TestHasAccessStoreErrorIsNotDenial(t *testing.T) {
	st := newFakeStore()
	st.findErr = assert.AnError
	svc := NewEntitlementService(st)

	ok, _, err := svc.HasAccess(context.Background(), Identity{Email: "buyer@example.com"}, "ebook-a")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestListPurchases(t *testing.T) {
	st := newFakeStore()
	seedPurchase(st, nil, "buyer@example.com", "ebook-a")
	seedPurchase(st, nil, "buyer@example.com", "course-b")
	seedPurchase(st, nil, "other@example.com", "ebook-a")
	svc := NewEntitlementService(st)

	purchases, err := svc.ListPurchases(context.Background(), Identity{Email: "buyer@example.com"})
	require.NoError(t, err)
	assert.Len(t, purchases, 2)
}
