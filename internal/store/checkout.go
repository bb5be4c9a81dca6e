package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// CreateCheckoutSession inserts a pending checkout session mirror.
// Returns ErrDuplicate if a row for this gateway session id already exists.
func (s *Store) CreateCheckoutSession(ctx context.Context, cs *models.CheckoutSession) error {
	query := `
		INSERT INTO checkout_sessions (id, customer_email, user_id, line_items, amount_total, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		cs.ID, cs.CustomerEmail, cs.UserID, cs.LineItems, cs.AmountTotal, cs.Status).
		Scan(&cs.CreatedAt, &cs.UpdatedAt)
	return wrapInsertErr(err)
}

// GetCheckoutSession retrieves a checkout session mirror by gateway session id
func (s *Store) GetCheckoutSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	var cs models.CheckoutSession
	err := s.db.GetContext(ctx, &cs, "SELECT * FROM checkout_sessions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// MarkCheckoutSessionCompleted transitions a mirror row to completed
func (s *Store) MarkCheckoutSessionCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE checkout_sessions SET status = $1, updated_at = NOW() WHERE id = $2",
		models.SessionStatusCompleted, id)
	return err
}

// CreatePurchase inserts a purchase row. Purchases are append-only; a
// uniqueness collision on (product_id, customer_email) surfaces as
// ErrDuplicate and means the entitlement is already recorded.
func (s *Store) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	query := `
		INSERT INTO purchases (user_id, customer_email, product_id, amount, currency, status, stripe_session_id, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := s.db.QueryRowxContext(ctx, query,
		p.UserID, p.CustomerEmail, p.ProductID, p.Amount, p.Currency,
		p.Status, p.StripeSessionID, p.PurchasedAt).
		Scan(&p.ID)
	return wrapInsertErr(err)
}

// FindCompletedPurchase finds a completed or paid purchase for a product
// owned by the given identity. The user-id/email OR match is intentional:
// guest purchases must become visible to an account with the same email.
func (s *Store) FindCompletedPurchase(ctx context.Context, productID string, userID *string, email string) (*models.Purchase, error) {
	var p models.Purchase
	err := s.db.GetContext(ctx, &p, `
		SELECT * FROM purchases
		WHERE product_id = $1
		  AND (user_id = $2 OR customer_email = $3)
		  AND status IN ('completed', 'paid')
		ORDER BY purchased_at
		LIMIT 1`,
		productID, userID, email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPurchasesByIdentity lists all completed or paid purchases for an identity
func (s *Store) ListPurchasesByIdentity(ctx context.Context, userID *string, email string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.SelectContext(ctx, &purchases, `
		SELECT * FROM purchases
		WHERE (user_id = $1 OR customer_email = $2)
		  AND status IN ('completed', 'paid')
		ORDER BY purchased_at DESC`,
		userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}
