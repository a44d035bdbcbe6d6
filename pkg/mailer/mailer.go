// Package mailer sends transactional email through the provider's HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"compliance-service/pkg/config"
)

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Mailer is the interface for outbound mail delivery.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Client talks to the mail provider's REST API.
type Client struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
}

// New builds a mail client from configuration.
func New(cfg *config.MailConfig) *Client {
	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		from:   cfg.FromAddress,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// Send delivers one message. Provider failures come back as errors, never
// panics; the campaign dispatcher isolates them per recipient.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body := sendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling mail request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating mail request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading mail response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var sr sendResponse
		if json.Unmarshal(respBytes, &sr) == nil && sr.Error != nil {
			return fmt.Errorf("mail provider: %s: %s", sr.Error.Name, sr.Error.Message)
		}
		return fmt.Errorf("mail provider: HTTP %d", resp.StatusCode)
	}

	return nil
}
