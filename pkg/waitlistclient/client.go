// Package waitlistclient is the client side of the waitlist: a form state machine and an HTTP
// submitter that talks to the join endpoint.
package waitlistclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// JoinPath is appended to the client's base URL.
const JoinPath = "/v1/join-waitlist"

const maxResponseBytes = 64 << 10

//go:generate mockgen -source=client.go -destination=mock_submitter.go -package=waitlistclient

// Submitter sends one address to the backend and returns the server's message.
type Submitter interface {
	Submit(ctx context.Context, email string) (string, error)
}

// RejectedError is a non-2xx answer from the handler. Message is its "error" field.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("waitlistclient: server responded with status %d: %s", e.StatusCode, e.Message)
}

type Option func(*Client)

// WithAPIKey sends the public (anonymous) key the way hosted function gateways expect it.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(baseURL), "/") + JoinPath,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

type joinPayload struct {
	Email string `json:"email"`
}

type joinReply struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) Submit(ctx context.Context, email string) (string, error) {
	body, err := json.Marshal(joinPayload{Email: email})
	if err != nil {
		return "", fmt.Errorf("waitlistclient: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("waitlistclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("waitlistclient: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("waitlistclient: read response: %w", err)
	}

	var reply joinReply
	decodeErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RejectedError{StatusCode: resp.StatusCode, Message: reply.Error}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("waitlistclient: decode response: %w", decodeErr)
	}
	return reply.Message, nil
}

// rejectionMessage returns the handler's error text, if err carries one.
func rejectionMessage(err error) (string, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message, true
	}
	return "", false
}
