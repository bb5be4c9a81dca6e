package worker

import (
	"context"
	"log"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/notifier"
	"storefront-service/internal/util"
)

// EmailWorker consumes PurchaseRecorded events and sends confirmation
// emails. Delivery is best-effort: a failed send is logged and the event is
// committed anyway so the purchase flow is never blocked or replayed into a
// retry loop.
type EmailWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sender       notifier.Sender
	baseURL      string
}

// NewEmailWorker creates a new email worker
func NewEmailWorker(consumer *broker.Consumer, sender notifier.Sender, baseURL string) *EmailWorker {
	w := &EmailWorker{
		consumer: consumer,
		sender:   sender,
		baseURL:  baseURL,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPurchaseRecorded(w.handlePurchaseRecorded)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *EmailWorker) Start(ctx context.Context) error {
	log.Println("Starting email worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *EmailWorker) Stop() error {
	log.Println("Stopping email worker...")
	return w.consumer.Close()
}

func (w *EmailWorker) handlePurchaseRecorded(ctx context.Context, event *models.PurchaseRecordedEvent) error {
	subject, html, err := notifier.BuildPurchaseConfirmation(event, w.baseURL)
	if err != nil {
		log.Printf("Failed to build confirmation email for session %s: %v", event.SessionID, err)
		util.EmailsFailedTotal.Inc()
		return nil
	}

	if err := w.sender.Send(ctx, event.CustomerEmail, subject, html); err != nil {
		log.Printf("Failed to send confirmation email for session %s: %v", event.SessionID, err)
		util.EmailsFailedTotal.Inc()
		return nil
	}

	util.EmailsSentTotal.Inc()
	log.Printf("Confirmation email sent: session=%s, to=%s", event.SessionID, event.CustomerEmail)
	return nil
}
