package service

import (
	"context"
	"fmt"
	"sync"

	"storefront-service/internal/gateway"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

// fakeGateway is an in-memory payment gateway for tests
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*gateway.Session

	couponErr  error
	createErr  error
	coupons    []float64
	lastCreate *gateway.CreateSessionRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*gateway.Session{}}
}

func (g *fakeGateway) CreateSession(ctx context.Context, req *gateway.CreateSessionRequest) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.lastCreate = req

	sess := &gateway.Session{
		ID:            fmt.Sprintf("cs_test_%d", len(g.sessions)+1),
		URL:           "https://gateway.example/pay",
		PaymentStatus: gateway.PaymentStatusUnpaid,
		CustomerEmail: req.CustomerEmail,
		Currency:      "usd",
		Metadata:      map[string]string{"items": req.ItemsMetadata},
	}
	for _, item := range req.Items {
		sess.AmountTotal += item.UnitAmount * int64(item.Quantity)
		sess.LineItems = append(sess.LineItems, gateway.SessionLineItem{
			ProductID:   item.ProductID,
			Description: item.Title,
			Quantity:    item.Quantity,
			UnitAmount:  item.UnitAmount,
			AmountTotal: item.UnitAmount * int64(item.Quantity),
		})
	}
	g.sessions[sess.ID] = sess
	return sess, nil
}

func (g *fakeGateway) GetSession(ctx context.Context, id string) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[id]
	if !ok {
		return nil, gateway.ErrSessionNotFound
	}
	return sess, nil
}

func (g *fakeGateway) CreateCoupon(ctx context.Context, percentOff float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.couponErr != nil {
		return "", g.couponErr
	}
	g.coupons = append(g.coupons, percentOff)
	return fmt.Sprintf("coupon_%d", len(g.coupons)), nil
}

// markPaid flips a session to the given payment status
func (g *fakeGateway) markPaid(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].PaymentStatus = status
}

// fakeStore is an in-memory store implementing the service-facing store
// interfaces. All methods are safe for concurrent use so tests can race
// reconciliations against each other.
type fakeStore struct {
	mu        sync.Mutex
	sessions  map[string]*models.CheckoutSession
	purchases []models.Purchase
	nextID    int64

	createSessionErr error
	findErr          error
	clearCartErr     error
	clearedCarts     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]*models.CheckoutSession{}}
}

func (s *fakeStore) CreateCheckoutSession(ctx context.Context, cs *models.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createSessionErr != nil {
		return s.createSessionErr
	}
	cp := *cs
	s.sessions[cs.ID] = &cp
	return nil
}

func (s *fakeStore) GetCheckoutSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeStore) MarkCheckoutSessionCompleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Status = models.SessionStatusCompleted
	}
	return nil
}

func matches(p *models.Purchase, userID *string, email string) bool {
	if userID != nil && p.UserID != nil && *p.UserID == *userID {
		return true
	}
	return email != "" && p.CustomerEmail == email
}

func (s *fakeStore) FindCompletedPurchase(ctx context.Context, productID string, userID *string, email string) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := range s.purchases {
		p := &s.purchases[i]
		if p.ProductID == productID && matches(p, userID, email) &&
			(p.Status == models.PurchaseStatusCompleted || p.Status == models.PurchaseStatusPaid) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirror of the partial unique index on (product_id, customer_email).
	for i := range s.purchases {
		existing := &s.purchases[i]
		if existing.ProductID == p.ProductID && existing.CustomerEmail == p.CustomerEmail &&
			(existing.Status == models.PurchaseStatusCompleted || existing.Status == models.PurchaseStatusPaid) {
			return fmt.Errorf("%w: purchases_product_email_completed_uniq", store.ErrDuplicate)
		}
	}
	s.nextID++
	p.ID = s.nextID
	s.purchases = append(s.purchases, *p)
	return nil
}

func (s *fakeStore) ListPurchasesByIdentity(ctx context.Context, userID *string, email string) ([]models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Purchase
	for i := range s.purchases {
		if matches(&s.purchases[i], userID, email) {
			out = append(out, s.purchases[i])
		}
	}
	return out, nil
}

func (s *fakeStore) ClearCartItems(ctx context.Context, userID string, productIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearCartErr != nil {
		return s.clearCartErr
	}
	s.clearedCarts = append(s.clearedCarts, userID)
	return nil
}

func (s *fakeStore) purchaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purchases)
}

// fakePublisher records published events
type fakePublisher struct {
	mu        sync.Mutex
	created   []*models.CheckoutCreatedEvent
	recorded  []*models.PurchaseRecordedEvent
	publishEr error
}

func (p *fakePublisher) PublishCheckoutCreated(ctx context.Context, event *models.CheckoutCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishEr != nil {
		return p.publishEr
	}
	p.created = append(p.created, event)
	return nil
}

func (p *fakePublisher) PublishPurchaseRecorded(ctx context.Context, event *models.PurchaseRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishEr != nil {
		return p.publishEr
	}
	p.recorded = append(p.recorded, event)
	return nil
}
