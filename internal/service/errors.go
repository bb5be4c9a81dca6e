package service

import "errors"

// User-input errors, surfaced verbatim to the caller with no side effects
var (
	ErrEmptyCart       = errors.New("no items in cart")
	ErrMissingEmail    = errors.New("buyer email is required for checkout")
	ErrInvalidDiscount = errors.New("invalid discount code")
)

// ErrDiscountApplication means a gateway-side coupon could not be created
// for a discounted order. Fatal to the checkout attempt: no session is
// created.
var ErrDiscountApplication = errors.New("failed to apply discount")

// Reconciliation errors
var (
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrUnresolvedIdentity  = errors.New("could not resolve buyer identity")
	ErrNoPurchasableLines  = errors.New("no purchasable lines in session")
)
