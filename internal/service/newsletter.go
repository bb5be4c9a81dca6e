package service

import (
	"context"
	"fmt"
	"regexp"

	"storefront-service/internal/notifier"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrInvalidEmail is returned for malformed signup addresses
var ErrInvalidEmail = fmt.Errorf("invalid email address")

// SubscriberStore records newsletter signups
type SubscriberStore interface {
	InsertSubscriber(ctx context.Context, email string) (bool, error)
}

// NewsletterService records signups locally and relays them upstream.
// The relay is best-effort; the local row is the durable record.
type NewsletterService struct {
	store  SubscriberStore
	relay  notifier.NewsletterRelay
	logger *zap.Logger
}

// NewNewsletterService creates a new newsletter service
func NewNewsletterService(st SubscriberStore, relay notifier.NewsletterRelay) *NewsletterService {
	return &NewsletterService{
		store:  st,
		relay:  relay,
		logger: util.GetLogger(),
	}
}

// Subscribe validates and records a signup. Repeat signups are a no-op.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}

	inserted, err := s.store.InsertSubscriber(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to record subscriber: %w", err)
	}
	if inserted {
		util.NewsletterSignupsTotal.Inc()
	}

	if s.relay != nil {
		if err := s.relay.Subscribe(ctx, email); err != nil {
			s.logger.Warn("Newsletter relay failed", zap.String("email", email), zap.Error(err))
		}
	}
	return nil
}
