package models

import "time"

// Event types
const (
	EventTypeCheckoutCreated  = "CHECKOUT_CREATED"
	EventTypePurchaseRecorded = "PURCHASE_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutCreatedEvent published when a gateway checkout session is created
type CheckoutCreatedEvent struct {
	BaseEvent
	SessionID     string     `json:"session_id"`
	CustomerEmail string     `json:"customer_email"`
	AmountTotal   int64      `json:"amount_total"`
	Items         []LineItem `json:"items"`
}

// PurchaseRecordedEvent published after purchase rows are durably recorded.
// The email worker consumes it to send the confirmation message.
type PurchaseRecordedEvent struct {
	BaseEvent
	SessionID     string          `json:"session_id"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name,omitempty"`
	AmountTotal   int64           `json:"amount_total"`
	Currency      string          `json:"currency"`
	Items         []PurchasedItem `json:"items"`
}

// PurchasedItem is a recorded product line inside a PurchaseRecordedEvent
type PurchasedItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Amount    int64  `json:"amount"`
}
