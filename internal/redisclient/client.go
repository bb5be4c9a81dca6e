package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const guestCartTTL = 30 * 24 * time.Hour

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func guestCartKey(token string) string {
	return fmt.Sprintf("cart:%s", token)
}

// GetGuestCart retrieves a guest cart by token. A missing cart is an empty
// cart, not an error.
func (c *Client) GetGuestCart(ctx context.Context, token string) ([]models.CartItem, error) {
	raw, err := c.rdb.Get(ctx, guestCartKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	var items []models.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return items, nil
}

// SaveGuestCart stores a guest cart under its token, refreshing the TTL
func (c *Client) SaveGuestCart(ctx context.Context, token string, items []models.CartItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	return c.rdb.Set(ctx, guestCartKey(token), raw, guestCartTTL).Err()
}

// DeleteGuestCart removes a guest cart
func (c *Client) DeleteGuestCart(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, guestCartKey(token)).Err()
}
