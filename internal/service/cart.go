package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CartService manages pre-purchase carts. Authenticated carts live in the
// database; guest carts live in Redis under an opaque token with a TTL.
type CartService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(st *store.Store, redis *redisclient.Client) *CartService {
	return &CartService{
		store:  st,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// CartOwner identifies whose cart is being operated on: an authenticated
// user id or a guest cart token.
type CartOwner struct {
	UserID    string
	CartToken string
}

func (o CartOwner) valid() error {
	if o.UserID == "" && o.CartToken == "" {
		return fmt.Errorf("cart owner is required")
	}
	return nil
}

// List returns the owner's cart lines
func (s *CartService) List(ctx context.Context, owner CartOwner) ([]models.CartItem, error) {
	if err := owner.valid(); err != nil {
		return nil, err
	}
	if owner.UserID != "" {
		return s.store.ListCartItems(ctx, owner.UserID)
	}
	return s.redis.GetGuestCart(ctx, owner.CartToken)
}

// Add puts a product into the cart, accumulating quantity on repeats
func (s *CartService) Add(ctx context.Context, owner CartOwner, item models.CartItem) error {
	if err := owner.valid(); err != nil {
		return err
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	if owner.UserID != "" {
		item.UserID = owner.UserID
		return s.store.UpsertCartItem(ctx, &item)
	}

	items, err := s.redis.GetGuestCart(ctx, owner.CartToken)
	if err != nil {
		return err
	}
	merged := false
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}
	return s.redis.SaveGuestCart(ctx, owner.CartToken, items)
}

// UpdateQuantity sets the quantity of a cart line
func (s *CartService) UpdateQuantity(ctx context.Context, owner CartOwner, productID string, quantity int) error {
	if err := owner.valid(); err != nil {
		return err
	}
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	if owner.UserID != "" {
		return s.store.UpdateCartItemQuantity(ctx, owner.UserID, productID, quantity)
	}

	items, err := s.redis.GetGuestCart(ctx, owner.CartToken)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
			return s.redis.SaveGuestCart(ctx, owner.CartToken, items)
		}
	}
	return store.ErrNotFound
}

// Remove deletes a single cart line
func (s *CartService) Remove(ctx context.Context, owner CartOwner, productID string) error {
	if err := owner.valid(); err != nil {
		return err
	}

	if owner.UserID != "" {
		return s.store.DeleteCartItem(ctx, owner.UserID, productID)
	}

	items, err := s.redis.GetGuestCart(ctx, owner.CartToken)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	return s.redis.SaveGuestCart(ctx, owner.CartToken, kept)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, owner CartOwner) error {
	if err := owner.valid(); err != nil {
		return err
	}
	if owner.UserID != "" {
		return s.store.ClearCartItems(ctx, owner.UserID, nil)
	}
	return s.redis.DeleteGuestCart(ctx, owner.CartToken)
}
