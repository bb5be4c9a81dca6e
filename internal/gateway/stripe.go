package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

const sessionExpiry = 30 * time.Minute

// StripeGateway implements PaymentGateway against the Stripe API
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Stripe-backed payment gateway
func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// CreateSession creates a Stripe checkout session with one line item per
// product. Each line carries the product id in its product metadata; the
// session itself carries the serialized cart in session metadata.
func (g *StripeGateway) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Title),
			Metadata: map[string]string{
				MetadataProductIDKey: item.ProductID,
			},
		}
		if item.Category != "" {
			productData.Description = stripe.String(item.Category)
			productData.Metadata["category"] = item.Category
		}
		if item.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{item.ImageURL})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: productData,
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		CustomerCreation:   stripe.String(string(stripe.CheckoutSessionCustomerCreationAlways)),
		ExpiresAt:          stripe.Int64(time.Now().Add(sessionExpiry).Unix()),
	}
	params.Context = ctx

	if req.ItemsMetadata != "" {
		params.Metadata = map[string]string{
			"items":       req.ItemsMetadata,
			"total_items": fmt.Sprintf("%d", len(req.Items)),
		}
	}
	if req.CouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(req.CouponID)},
		}
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe session create failed: %w", err)
	}

	return fromStripeSession(sess), nil
}

// GetSession retrieves the authoritative session state, with line items and
// their product metadata expanded.
func (g *StripeGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")

	sess, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("stripe session retrieve failed: %w", err)
	}

	return fromStripeSession(sess), nil
}

// CreateCoupon creates a single-use percentage coupon on the gateway so its
// ledger reflects the discount as a real discount event.
func (g *StripeGateway) CreateCoupon(ctx context.Context, percentOff float64) (string, error) {
	params := &stripe.CouponParams{
		PercentOff: stripe.Float64(percentOff),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx

	coupon, err := g.api.Coupons.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe coupon create failed: %w", err)
	}
	return coupon.ID, nil
}

func fromStripeSession(sess *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		CustomerEmail: sess.CustomerEmail,
		Metadata:      sess.Metadata,
	}

	if sess.CustomerDetails != nil {
		out.CustomerName = sess.CustomerDetails.Name
		if sess.CustomerDetails.Email != "" {
			out.CustomerEmail = sess.CustomerDetails.Email
		}
	}

	if sess.LineItems != nil {
		for _, li := range sess.LineItems.Data {
			item := SessionLineItem{
				Description: li.Description,
				Quantity:    int(li.Quantity),
				AmountTotal: li.AmountTotal,
			}
			if li.Price != nil {
				item.UnitAmount = li.Price.UnitAmount
				if li.Price.Product != nil {
					item.ProductID = li.Price.Product.Metadata[MetadataProductIDKey]
				}
			}
			out.LineItems = append(out.LineItems, item)
		}
	}

	return out
}
