package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/gateway"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Per-line reconciliation outcomes
const (
	LineStatusSaved         = "saved"
	LineStatusAlreadyExists = "already_exists"
	LineStatusError         = "error"
)

// ReconcileStore is the slice of the persistence layer the reconciler needs
type ReconcileStore interface {
	GetCheckoutSession(ctx context.Context, id string) (*models.CheckoutSession, error)
	MarkCheckoutSessionCompleted(ctx context.Context, id string) error
	FindCompletedPurchase(ctx context.Context, productID string, userID *string, email string) (*models.Purchase, error)
	CreatePurchase(ctx context.Context, p *models.Purchase) error
	ClearCartItems(ctx context.Context, userID string, productIDs []string) error
}

// ReconcilePublisher publishes purchase domain events, best-effort
type ReconcilePublisher interface {
	PublishPurchaseRecorded(ctx context.Context, event *models.PurchaseRecordedEvent) error
}

// ReconcileService confirms a gateway session's payment outcome and records
// one purchase row per product line, exactly once. Safe to invoke any number
// of times for the same session: the database uniqueness constraint on
// (product_id, customer_email) is the only concurrency control.
type ReconcileService struct {
	gateway   gateway.PaymentGateway
	store     ReconcileStore
	publisher ReconcilePublisher
	logger    *zap.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(gw gateway.PaymentGateway, st ReconcileStore, publisher ReconcilePublisher) *ReconcileService {
	return &ReconcileService{
		gateway:   gw,
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// LineResult is the outcome of recording one product line
type LineResult struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Error     string `json:"error,omitempty"`
}

// ReconcileResult aggregates a reconciliation run
type ReconcileResult struct {
	SessionID      string       `json:"session_id"`
	PaymentStatus  string       `json:"payment_status"`
	CustomerEmail  string       `json:"customer_email"`
	CustomerName   string       `json:"customer_name,omitempty"`
	AmountTotal    int64        `json:"amount_total"`
	Currency       string       `json:"currency"`
	PurchasesSaved bool         `json:"purchases_saved"`
	CartCleared    bool         `json:"cart_cleared"`
	Results        []LineResult `json:"results"`
}

// pendingLine is a resolved product line awaiting recording
type pendingLine struct {
	productID string
	title     string
	quantity  int
	amount    int64
	err       string
}

// Reconcile fetches the authoritative session state, verifies payment, and
// records purchases per line. authUserID is the currently authenticated
// user, if any; guest sessions resolve by buyer email alone.
func (s *ReconcileService) Reconcile(ctx context.Context, sessionID string, authUserID *string) (*ReconcileResult, error) {
	ctx, span := util.StartSpan(ctx, "ReconcileService.Reconcile")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReconcileLatency.Observe(time.Since(start).Seconds())
	}()

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gateway.ErrSessionNotFound) {
			util.ReconcileFailuresTotal.WithLabelValues("session_not_found").Inc()
			return nil, err
		}
		util.ReconcileFailuresTotal.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("failed to retrieve gateway session: %w", err)
	}

	if !gateway.Settled(sess.PaymentStatus) {
		s.logger.Info("Payment not completed",
			zap.String("session_id", sessionID),
			zap.String("payment_status", sess.PaymentStatus))
		util.ReconcileFailuresTotal.WithLabelValues("payment_not_completed").Inc()
		return nil, fmt.Errorf("%w: status is %q", ErrPaymentNotCompleted, sess.PaymentStatus)
	}

	mirror, err := s.store.GetCheckoutSession(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		// The mirror is a recovery aid; a read failure degrades to the
		// gateway-metadata path.
		s.logger.Warn("Failed to read checkout session mirror",
			zap.String("session_id", sessionID),
			zap.Error(err))
		mirror = nil
	}

	lines := s.resolveLines(sess, mirror)
	if len(lines) == 0 {
		util.ReconcileFailuresTotal.WithLabelValues("no_lines").Inc()
		return nil, ErrNoPurchasableLines
	}

	userID, email, err := resolveIdentity(sess, mirror, authUserID)
	if err != nil {
		util.ReconcileFailuresTotal.WithLabelValues("unresolved_identity").Inc()
		return nil, err
	}

	result := &ReconcileResult{
		SessionID:     sessionID,
		PaymentStatus: sess.PaymentStatus,
		CustomerEmail: email,
		CustomerName:  sess.CustomerName,
		AmountTotal:   sess.AmountTotal,
		Currency:      sess.Currency,
	}

	var recorded []models.PurchasedItem
	for _, line := range lines {
		result.Results = append(result.Results, s.recordLine(ctx, sessionID, sess.Currency, line, userID, email))

		last := result.Results[len(result.Results)-1]
		if last.Status == LineStatusSaved || last.Status == LineStatusAlreadyExists {
			result.PurchasesSaved = true
			recorded = append(recorded, models.PurchasedItem{
				ProductID: line.productID,
				Title:     line.title,
				Quantity:  line.quantity,
				Amount:    line.amount,
			})
		}
	}

	if !result.PurchasesSaved {
		return result, nil
	}

	// Everything below is best-effort: the purchase rows are already the
	// durable truth and must never be rolled back by side-effect failures.
	if err := s.store.MarkCheckoutSessionCompleted(ctx, sessionID); err != nil {
		s.logger.Error("Failed to mark checkout session completed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	if userID != nil {
		productIDs := make([]string, 0, len(recorded))
		for _, item := range recorded {
			productIDs = append(productIDs, item.ProductID)
		}
		if err := s.store.ClearCartItems(ctx, *userID, productIDs); err != nil {
			s.logger.Error("Failed to clear cart after purchase",
				zap.String("user_id", *userID),
				zap.Error(err))
		} else {
			result.CartCleared = true
		}
	}

	if s.publisher != nil {
		event := &models.PurchaseRecordedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePurchaseRecorded,
				Timestamp: time.Now(),
			},
			SessionID:     sessionID,
			CustomerEmail: email,
			CustomerName:  sess.CustomerName,
			AmountTotal:   sess.AmountTotal,
			Currency:      sess.Currency,
			Items:         recorded,
		}
		if err := s.publisher.PublishPurchaseRecorded(ctx, event); err != nil {
			s.logger.Error("Failed to publish PurchaseRecorded event",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}

	return result, nil
}

// recordLine records a single product line independently of its siblings
func (s *ReconcileService) recordLine(ctx context.Context, sessionID, currency string, line pendingLine, userID *string, email string) LineResult {
	res := LineResult{ProductID: line.productID, Title: line.title, Amount: line.amount}

	if line.err != "" {
		res.Status = LineStatusError
		res.Error = line.err
		return res
	}

	existing, err := s.store.FindCompletedPurchase(ctx, line.productID, userID, email)
	if err == nil && existing != nil {
		res.Status = LineStatusAlreadyExists
		util.PurchasesDuplicateTotal.Inc()
		return res
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		res.Status = LineStatusError
		res.Error = fmt.Sprintf("purchase lookup failed: %v", err)
		return res
	}

	if currency == "" {
		currency = "usd"
	}
	purchase := &models.Purchase{
		UserID:          userID,
		CustomerEmail:   email,
		ProductID:       line.productID,
		Amount:          line.amount,
		Currency:        currency,
		Status:          models.PurchaseStatusCompleted,
		StripeSessionID: sessionID,
		PurchasedAt:     time.Now(),
	}

	err = s.store.CreatePurchase(ctx, purchase)
	switch {
	case err == nil:
		res.Status = LineStatusSaved
		util.PurchasesRecordedTotal.Inc()
		s.logger.Info("Purchase recorded",
			zap.String("session_id", sessionID),
			zap.String("product_id", line.productID),
			zap.Int64("amount", line.amount))
	case errors.Is(err, store.ErrDuplicate):
		// Expected under concurrent double-invocation: another reconcile
		// won the insert race. Success, not failure.
		res.Status = LineStatusAlreadyExists
		util.PurchasesDuplicateTotal.Inc()
	default:
		res.Status = LineStatusError
		res.Error = fmt.Sprintf("purchase insert failed: %v", err)
	}
	return res
}

// resolveLines resolves the purchased product lines in priority order:
// local mirror, then gateway line items carrying product-id metadata, then
// the serialized cart in session metadata. Lines whose product id cannot be
// recovered are reported as errors, never guessed.
func (s *ReconcileService) resolveLines(sess *gateway.Session, mirror *models.CheckoutSession) []pendingLine {
	if mirror != nil && len(mirror.LineItems) > 0 {
		lines := make([]pendingLine, 0, len(mirror.LineItems))
		for _, item := range mirror.LineItems {
			lines = append(lines, pendingLine{
				productID: item.ProductID,
				title:     item.Title,
				quantity:  item.Quantity,
				amount:    lineAmount(sess, item.ProductID, item.UnitPrice*int64(item.Quantity)),
			})
		}
		return lines
	}

	if len(sess.LineItems) > 0 {
		lines := make([]pendingLine, 0, len(sess.LineItems))
		for _, item := range sess.LineItems {
			line := pendingLine{
				productID: item.ProductID,
				title:     item.Description,
				quantity:  item.Quantity,
				amount:    item.AmountTotal,
			}
			if item.ProductID == "" {
				line.err = "product id missing from gateway line item"
			}
			lines = append(lines, line)
		}
		return lines
	}

	var meta []sessionItemMetadata
	if raw := sess.Metadata["items"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			s.logger.Warn("Failed to parse items from session metadata",
				zap.String("session_id", sess.ID),
				zap.Error(err))
			return nil
		}
	}

	lines := make([]pendingLine, 0, len(meta))
	for _, item := range meta {
		line := pendingLine{
			productID: item.ID,
			title:     item.Title,
			quantity:  item.Quantity,
			amount:    item.Price * int64(item.Quantity),
		}
		if item.ID == "" {
			line.err = "product id missing from session metadata"
		}
		lines = append(lines, line)
	}
	return lines
}

// lineAmount prefers the gateway's authoritative line amount over the
// locally computed one when the gateway reports the product.
func lineAmount(sess *gateway.Session, productID string, local int64) int64 {
	for _, item := range sess.LineItems {
		if item.ProductID == productID {
			return item.AmountTotal
		}
	}
	return local
}

// resolveIdentity picks the owning identity: the authenticated user when
// present, otherwise the buyer email from the gateway or the mirror.
func resolveIdentity(sess *gateway.Session, mirror *models.CheckoutSession, authUserID *string) (*string, string, error) {
	var userID *string
	if authUserID != nil && *authUserID != "" {
		userID = authUserID
	} else if mirror != nil && mirror.UserID != nil && *mirror.UserID != "" {
		userID = mirror.UserID
	}

	email := sess.CustomerEmail
	if email == "" && mirror != nil {
		email = mirror.CustomerEmail
	}

	if userID == nil && email == "" {
		return nil, "", ErrUnresolvedIdentity
	}
	return userID, email, nil
}
