// Package llm calls the model provider's messages API, in both blocking
// and streaming form.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"compliance-service/pkg/config"
)

const apiVersion = "2023-06-01"

// Request holds the parameters for a completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Response holds the result of a blocking completion call.
type Response struct {
	Content string
	Model   string
}

// DeltaFunc receives one incremental text delta. Returning an error stops
// the stream.
type DeltaFunc func(delta string) error

// Provider is the interface for model completion backends.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Stream(ctx context.Context, req *Request, onDelta DeltaFunc) error
}

// Client is the HTTP implementation of Provider.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// New builds a model client from configuration.
func New(cfg *config.AIConfig) *Client {
	return &Client{
		apiURL:    cfg.APIURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	Stream    bool         `json:"stream,omitempty"`
}

type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// streamEvent is the subset of the provider's streaming frames we care
// about. Everything else is skipped.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

func (c *Client) newHTTPRequest(ctx context.Context, body apiRequest) (*http.Request, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	return httpReq, nil
}

func (c *Client) buildBody(req *Request, stream bool) apiRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	return apiRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages: []apiMessage{
			{Role: "user", Content: req.UserPrompt},
		},
		Stream: stream,
	}
}

// Complete sends the prompt and blocks until the full document is back.
func (c *Client) Complete(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, c.buildBody(req, false))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	const maxBodyBytes = 10 * 1024 * 1024
	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var ar apiResponse
	if err := json.Unmarshal(respBytes, &ar); err != nil {
		return nil, fmt.Errorf("parsing response JSON (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if ar.Error != nil {
			return nil, fmt.Errorf("model provider: %s: %s", ar.Error.Type, ar.Error.Message)
		}
		return nil, fmt.Errorf("model provider: HTTP %d", resp.StatusCode)
	}

	var content strings.Builder
	for _, block := range ar.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("model provider: no text content in response")
	}

	return &Response{Content: content.String(), Model: ar.Model}, nil
}

// Stream sends the prompt and forwards each incremental text delta to
// onDelta in the exact order received. Malformed or non-text frames are
// dropped rather than aborting the stream. Cancelling ctx stops the pull
// from upstream.
func (c *Client) Stream(ctx context.Context, req *Request, onDelta DeltaFunc) error {
	httpReq, err := c.newHTTPRequest(ctx, c.buildBody(req, true))
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var ar apiResponse
		if json.Unmarshal(respBytes, &ar) == nil && ar.Error != nil {
			return fmt.Errorf("model provider: %s: %s", ar.Error.Type, ar.Error.Message)
		}
		return fmt.Errorf("model provider: HTTP %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			// Malformed frame, skip it
			continue
		}
		if ev.Type != "content_block_delta" || ev.Delta.Type != "text_delta" {
			continue
		}
		if ev.Delta.Text == "" {
			continue
		}

		if err := onDelta(ev.Delta.Text); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		// A torn connection after deltas were delivered is reported; the
		// relay decides whether anything useful reached the client.
		return fmt.Errorf("reading stream: %w", err)
	}

	return nil
}
