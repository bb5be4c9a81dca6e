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

// Sender delivers a single transactional email
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Client talks to a Resend-compatible transactional email API
type Client struct {
	apiKey     string
	from       string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new email client
func NewClient(apiKey, from, endpoint string) *Client {
	return &Client{
		apiKey:   apiKey,
		from:     from,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send delivers one email. Callers treat failures as best-effort: they are
// logged, never propagated into the purchase flow.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if c.apiKey == "" {
		return fmt.Errorf("email API key is not configured")
	}

	body, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
