package gateway

import (
	"context"
	"errors"
)

// Payment statuses reported by the gateway. A session is considered settled
// when it is paid or when a 100% discount left nothing to pay.
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// MetadataProductIDKey is attached to every gateway line item so the
// reconciler can recover the product id from gateway data alone.
const MetadataProductIDKey = "product_id"

// ErrSessionNotFound is returned when the gateway has no session for the id
var ErrSessionNotFound = errors.New("gateway session not found")

// SessionItem is one product line submitted to the gateway
type SessionItem struct {
	ProductID  string
	Title      string
	Category   string
	ImageURL   string
	UnitAmount int64
	Quantity   int
}

// CreateSessionRequest describes a checkout session to be created
type CreateSessionRequest struct {
	CustomerEmail string
	Items         []SessionItem
	ItemsMetadata string
	CouponID      string
	SuccessURL    string
	CancelURL     string
}

// SessionLineItem is a line item as reported back by the gateway
type SessionLineItem struct {
	ProductID   string
	Description string
	Quantity    int
	UnitAmount  int64
	AmountTotal int64
}

// Session is the gateway's authoritative view of a checkout attempt
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	CustomerName  string
	Metadata      map[string]string
	LineItems     []SessionLineItem
}

// PaymentGateway abstracts the external payment processor so services can be
// constructed with a fake in tests.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	CreateCoupon(ctx context.Context, percentOff float64) (string, error)
}

// Settled reports whether a payment status allows recording purchases
func Settled(paymentStatus string) bool {
	return paymentStatus == PaymentStatusPaid || paymentStatus == PaymentStatusNoPaymentRequired
}
