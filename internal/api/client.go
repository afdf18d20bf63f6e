package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aqarlink/aqarlink/internal/apperr"
)

// TokenSource yields the bearer token to attach to outgoing requests. An
// empty string means no Authorization header is sent.
type TokenSource interface {
	Token() string
}

// Client is a thin JSON HTTP client for the lead-intake API. It attaches
// the bearer token when one is available and normalizes error responses
// into apperr.RequestError. It never retries: a failed call surfaces
// immediately to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// New builds a client for the given API origin.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post issues a POST request with a JSON body. body and out may be nil.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPatch, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return normalizeError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// normalizeError extracts the server-supplied error field, falling back to
// a generic status-based message when the body is absent or unparsable.
func normalizeError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error: status %d", status)
	}
	return &apperr.RequestError{StatusCode: status, Message: msg}
}
