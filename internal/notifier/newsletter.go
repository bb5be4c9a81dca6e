package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewsletterRelay forwards signups to the upstream newsletter platform
type NewsletterRelay interface {
	Subscribe(ctx context.Context, email string) error
}

// NewsletterClient talks to a Beehiiv-style publication API
type NewsletterClient struct {
	apiKey        string
	publicationID string
	endpoint      string
	httpClient    *http.Client
}

// NewNewsletterClient creates a new newsletter relay client
func NewNewsletterClient(apiKey, publicationID, endpoint string) *NewsletterClient {
	return &NewsletterClient{
		apiKey:        apiKey,
		publicationID: publicationID,
		endpoint:      endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type subscribeRequest struct {
	Email       string `json:"email"`
	SendWelcome bool   `json:"send_welcome_email"`
}

// Subscribe relays one signup. The local subscribers table is the durable
// record; relay failures are the caller's to log and swallow.
func (c *NewsletterClient) Subscribe(ctx context.Context, email string) error {
	if c.apiKey == "" || c.publicationID == "" {
		return fmt.Errorf("newsletter relay is not configured")
	}

	body, err := json.Marshal(subscribeRequest{Email: email, SendWelcome: true})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/publications/%s/subscriptions", c.endpoint, c.publicationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("newsletter request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("newsletter API returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
