package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"storefront-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCheckoutCreated publishes CheckoutCreated event
func (ep *EventPublisher) PublishCheckoutCreated(ctx context.Context, event *models.CheckoutCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, "session-"+event.SessionID, event)
}

// PublishPurchaseRecorded publishes PurchaseRecorded event
func (ep *EventPublisher) PublishPurchaseRecorded(ctx context.Context, event *models.PurchaseRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, "session-"+event.SessionID, event)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	onPurchaseRecorded func(context.Context, *models.PurchaseRecordedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPurchaseRecorded registers a handler for PurchaseRecorded events
func (eh *EventHandler) OnPurchaseRecorded(handler func(context.Context, *models.PurchaseRecordedEvent) error) {
	eh.onPurchaseRecorded = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypePurchaseRecorded:
		if eh.onPurchaseRecorded != nil {
			var event models.PurchaseRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PurchaseRecorded event: %w", err)
			}
			return eh.onPurchaseRecorded(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
