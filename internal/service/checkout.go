package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/gateway"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutStore is the slice of the persistence layer the checkout builder
// needs: recording the local mirror of a gateway session.
type CheckoutStore interface {
	CreateCheckoutSession(ctx context.Context, cs *models.CheckoutSession) error
}

// CheckoutPublisher publishes checkout domain events, best-effort
type CheckoutPublisher interface {
	PublishCheckoutCreated(ctx context.Context, event *models.CheckoutCreatedEvent) error
}

// CheckoutService assembles gateway checkout sessions from cart lines
type CheckoutService struct {
	gateway   gateway.PaymentGateway
	store     CheckoutStore
	discounts *DiscountEvaluator
	publisher CheckoutPublisher
	baseURL   string
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	gw gateway.PaymentGateway,
	store CheckoutStore,
	discounts *DiscountEvaluator,
	publisher CheckoutPublisher,
	baseURL string,
) *CheckoutService {
	return &CheckoutService{
		gateway:   gw,
		store:     store,
		discounts: discounts,
		publisher: publisher,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    util.GetLogger(),
	}
}

// CartLineRequest is one cart line submitted for checkout
type CartLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
	UnitPrice int64  `json:"unit_price" binding:"required,min=0"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// CheckoutRequest is a request to create a checkout session
type CheckoutRequest struct {
	Items        []CartLineRequest `json:"items"`
	Email        string            `json:"email"`
	UserID       *string           `json:"-"`
	DiscountCode string            `json:"discount_code,omitempty"`
}

// CheckoutResponse carries the gateway session id and redirect target
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// sessionItemMetadata is serialized into session metadata so the reconciler
// can recover product lines even if the local mirror write failed.
type sessionItemMetadata struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// CreateSession validates the cart, applies any discount, creates the
// gateway session and persists a best-effort local mirror of it.
func (s *CheckoutService) CreateSession(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateSession")
	defer span.End()

	if len(req.Items) == 0 {
		util.CheckoutFailuresTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	if req.Email == "" {
		util.CheckoutFailuresTotal.WithLabelValues("missing_email").Inc()
		return nil, ErrMissingEmail
	}

	items := make([]gateway.SessionItem, 0, len(req.Items))
	lines := make(models.LineItems, 0, len(req.Items))
	meta := make([]sessionItemMetadata, 0, len(req.Items))
	var subtotal int64

	for _, line := range req.Items {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		subtotal += line.UnitPrice * int64(qty)

		items = append(items, gateway.SessionItem{
			ProductID:  line.ProductID,
			Title:      line.Title,
			Category:   line.Category,
			ImageURL:   line.ImageURL,
			UnitAmount: line.UnitPrice,
			Quantity:   qty,
		})
		lines = append(lines, models.LineItem{
			ProductID: line.ProductID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  qty,
		})
		meta = append(meta, sessionItemMetadata{
			ID:       line.ProductID,
			Title:    line.Title,
			Quantity: qty,
			Price:    line.UnitPrice,
		})
	}

	finalTotal := subtotal
	var couponID string
	if req.DiscountCode != "" {
		result := s.discounts.Evaluate(req.DiscountCode, subtotal)
		if !result.Valid {
			util.CheckoutFailuresTotal.WithLabelValues("invalid_discount").Inc()
			return nil, ErrInvalidDiscount
		}

		finalTotal = subtotal - result.Amount
		if result.Amount > 0 {
			// The discount must exist on the gateway's own ledger, not as a
			// silently reduced line item. Coupon failure aborts the attempt.
			id, err := s.gateway.CreateCoupon(ctx, float64(result.PercentOff))
			if err != nil {
				s.logger.Error("Gateway coupon creation failed",
					zap.String("code", result.Code),
					zap.Error(err))
				util.CheckoutFailuresTotal.WithLabelValues("discount_application").Inc()
				return nil, fmt.Errorf("%w: %v", ErrDiscountApplication, err)
			}
			couponID = id
		}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session metadata: %w", err)
	}

	sess, err := s.gateway.CreateSession(ctx, &gateway.CreateSessionRequest{
		CustomerEmail: req.Email,
		Items:         items,
		ItemsMetadata: string(metaJSON),
		CouponID:      couponID,
		SuccessURL:    s.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/cart",
	})
	if err != nil {
		util.CheckoutFailuresTotal.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	util.CheckoutSessionsCreatedTotal.Inc()
	s.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("email", req.Email),
		zap.Int64("amount_total", finalTotal))

	// The mirror is a reconciliation aid, not a blocker: the gateway session
	// is authoritative for payment, so a failed write degrades recovery but
	// must not fail the checkout.
	mirror := &models.CheckoutSession{
		ID:            sess.ID,
		CustomerEmail: req.Email,
		UserID:        req.UserID,
		LineItems:     lines,
		AmountTotal:   finalTotal,
		Status:        models.SessionStatusPending,
	}
	if err := s.store.CreateCheckoutSession(ctx, mirror); err != nil {
		util.CheckoutMirrorWriteFailures.Inc()
		s.logger.Error("Failed to persist checkout session mirror, product metadata recovery is degraded",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	}

	if s.publisher != nil {
		event := &models.CheckoutCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCheckoutCreated,
				Timestamp: time.Now(),
			},
			SessionID:     sess.ID,
			CustomerEmail: req.Email,
			AmountTotal:   finalTotal,
			Items:         lines,
		}
		if err := s.publisher.PublishCheckoutCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish CheckoutCreated event", zap.Error(err))
		}
	}

	return &CheckoutResponse{SessionID: sess.ID, URL: sess.URL}, nil
}
