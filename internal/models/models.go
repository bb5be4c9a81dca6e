package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LineItem is a single product line inside a checkout session
type LineItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// LineItems is stored as a JSONB column on checkout_sessions
type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *LineItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported type for LineItems: %T", src)
	}
}

// CheckoutSession mirrors a pending gateway checkout session
type CheckoutSession struct {
	ID            string    `db:"id" json:"id"`
	CustomerEmail string    `db:"customer_email" json:"customer_email"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	LineItems     LineItems `db:"line_items" json:"line_items"`
	AmountTotal   int64     `db:"amount_total" json:"amount_total"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Purchase is the durable entitlement record, append-only
type Purchase struct {
	ID              int64     `db:"id" json:"id"`
	UserID          *string   `db:"user_id" json:"user_id,omitempty"`
	CustomerEmail   string    `db:"customer_email" json:"customer_email"`
	ProductID       string    `db:"product_id" json:"product_id"`
	Amount          int64     `db:"amount" json:"amount"`
	Currency        string    `db:"currency" json:"currency"`
	Status          string    `db:"status" json:"status"`
	StripeSessionID string    `db:"stripe_session_id" json:"stripe_session_id"`
	PurchasedAt     time.Time `db:"purchased_at" json:"purchased_at"`
}

// CartItem is a persisted cart line for an authenticated user
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ProductID string    `db:"product_id" json:"product_id"`
	Title     string    `db:"title" json:"title"`
	UnitPrice int64     `db:"unit_price" json:"unit_price"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Category  string    `db:"category" json:"category"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseProgress records per-lesson completion
type CourseProgress struct {
	ID          int64      `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	CourseID    string     `db:"course_id" json:"course_id"`
	LessonID    string     `db:"lesson_id" json:"lesson_id"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Subscriber is a newsletter signup
type Subscriber struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	SubscribedAt time.Time `db:"subscribed_at" json:"subscribed_at"`
}

// Checkout session statuses
const (
	SessionStatusPending   = "pending"
	SessionStatusCompleted = "completed"
)

// Purchase statuses
const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusPaid      = "paid"
)
