package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckoutFixture() (*CheckoutService, *fakeGateway, *fakeStore, *fakePublisher) {
	gw := newFakeGateway()
	st := newFakeStore()
	pub := &fakePublisher{}
	svc := NewCheckoutService(gw, st, NewDiscountEvaluator(nil), pub, "https://store.example")
	return svc, gw, st, pub
}

func TestCreateSessionEmptyCart(t *testing.T) {
	svc, _, _, _ := newCheckoutFixture()

	_, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Email: "buyer@example.com",
	})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateSessionMissingEmail(t *testing.T) {
	svc, _, _, _ := newCheckoutFixture()

	_, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Items: []CartLineRequest{{ProductID: "ebook-a", Title: "Ebook A", UnitPrice: 999}},
	})
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestCreateSessionMirrorsLocally(t *testing.T) {
	svc, gw, st, pub := newCheckoutFixture()

	resp, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Email: "buyer@example.com",
		Items: []CartLineRequest{
			{ProductID: "ebook-a", Title: "Ebook A", UnitPrice: 999, Quantity: 2},
			{ProductID: "course-b", Title: "Course B", UnitPrice: 4900},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.URL)

	mirror, err := st.GetCheckoutSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", mirror.CustomerEmail)
	assert.Len(t, mirror.LineItems, 2)
	// Omitted quantity defaults to 1.
	assert.Equal(t, 2, mirror.LineItems[0].Quantity)
	assert.Equal(t, 1, mirror.LineItems[1].Quantity)
	assert.Equal(t, int64(2*999+4900), mirror.AmountTotal)

	// The serialized cart rides along in session metadata for recovery.
	var meta []sessionItemMetadata
	require.NoError(t, json.Unmarshal([]byte(gw.lastCreate.ItemsMetadata), &meta))
	require.Len(t, meta, 2)
	assert.Equal(t, "ebook-a", meta[0].ID)

	require.Len(t, pub.created, 1)
	assert.Equal(t, resp.SessionID, pub.created[0].SessionID)
}

func TestCreateSessionMirrorFailureIsNotFatal(t *testing.T) {
	svc, _, st, _ := newCheckoutFixture()
	st.createSessionErr = fmt.Errorf("connection refused")

	resp, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Email: "buyer@example.com",
		Items: []CartLineRequest{{ProductID: "ebook-a", Title: "Ebook A", UnitPrice: 999}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.URL)
}

func TestCreateSessionInvalidDiscount(t *testing.T) {
	svc, gw, _, _ := newCheckoutFixture()

	_, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Email:        "buyer@example.com",
		Items:        []CartLineRequest{{ProductID: "ebook-a", Title: "Ebook A", UnitPrice: 999}},
		DiscountCode: "BOGUS",
	})
	assert.ErrorIs(t, err, ErrInvalidDiscount)
	assert.Nil(t, gw.lastCreate)
}

func TestCreateSessionFullDiscountCreatesCoupon(t *testing.T) {
	svc, gw, _, _ := newCheckoutFixture()

	_, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Email:        "buyer@example.com",
		Items:        []CartLineRequest{{ProductID: "ebook-a", Title: "Ebook A", UnitPrice: 999}},
		DiscountCode: "DISCOUNT100",
	})
	require.NoError(t, err)
	require.Len(t, gw.coupons, 1)
	assert.Equal(t, float64(100), gw.coupons[0])
	assert.NotEmpty(t, gw.lastCreate.CouponID)
}

func TestCreateSessionCouponFailureAborts(t *testing.T) {
	svc, gw, st, _ := newCheckoutFixture()
	gw.couponErr = errors.New("gateway down")

	_, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Email:        "buyer@example.com",
		Items:        []CartLineRequest{{ProductID: "ebook-a", Title: "Ebook A", UnitPrice: 999}},
		DiscountCode: "DISCOUNT100",
	})
	assert.ErrorIs(t, err, ErrDiscountApplication)
	// No session may exist when the discount could not be applied.
	assert.Nil(t, gw.lastCreate)
	assert.Empty(t, st.sessions)
}

func TestCreateSessionZeroAmountDiscountSkipsCoupon(t *testing.T) {
	svc, gw, _, _ := newCheckoutFixture()

	_, err := svc.CreateSession(context.Background(), &CheckoutRequest{
		Email:        "buyer@example.com",
		Items:        []CartLineRequest{{ProductID: "freebie", Title: "Freebie", UnitPrice: 0}},
		DiscountCode: "DISCOUNT100",
	})
	require.NoError(t, err)
	assert.Empty(t, gw.coupons)
}
