package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
)

// Identity is a buyer identity: an authenticated user id, an email, or both
type Identity struct {
	UserID *string
	Email  string
}

// EntitlementStore is the slice of the persistence layer entitlement needs
type EntitlementStore interface {
	FindCompletedPurchase(ctx context.Context, productID string, userID *string, email string) (*models.Purchase, error)
	ListPurchasesByIdentity(ctx context.Context, userID *string, email string) ([]models.Purchase, error)
}

// EntitlementService answers whether an identity owns a product. Access is
// derived solely from completed purchase rows; the store is always the
// source of truth.
type EntitlementService struct {
	store EntitlementStore
}

// NewEntitlementService creates a new entitlement service
func NewEntitlementService(st EntitlementStore) *EntitlementService {
	return &EntitlementService{store: st}
}

// HasAccess reports whether the identity has a completed or paid purchase
// for the product. Matching by user id OR email is deliberate: a guest
// purchase must become visible to an account created later with the same
// email. A store failure is an error, never coerced to "no access".
func (s *EntitlementService) HasAccess(ctx context.Context, identity Identity, productID string) (bool, *models.Purchase, error) {
	ctx, span := util.StartSpan(ctx, "EntitlementService.HasAccess")
	defer span.End()

	if productID == "" {
		return false, nil, fmt.Errorf("product id is required")
	}
	if identity.UserID == nil && identity.Email == "" {
		return false, nil, ErrUnresolvedIdentity
	}

	purchase, err := s.store.FindCompletedPurchase(ctx, productID, identity.UserID, identity.Email)
	if errors.Is(err, store.ErrNotFound) {
		util.EntitlementChecksTotal.WithLabelValues("denied").Inc()
		return false, nil, nil
	}
	if err != nil {
		util.EntitlementChecksTotal.WithLabelValues("error").Inc()
		return false, nil, fmt.Errorf("failed to check entitlement: %w", err)
	}

	util.EntitlementChecksTotal.WithLabelValues("granted").Inc()
	return true, purchase, nil
}

// ListPurchases lists all completed purchases owned by the identity, for
// the account dashboard.
func (s *EntitlementService) ListPurchases(ctx context.Context, identity Identity) ([]models.Purchase, error) {
	if identity.UserID == nil && identity.Email == "" {
		return nil, ErrUnresolvedIdentity
	}
	return s.store.ListPurchasesByIdentity(ctx, identity.UserID, identity.Email)
}
