package mailer

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

// DefaultResendURL is the Resend endpoint for sending a single email.
const DefaultResendURL = "https://api.resend.com/emails"

// maxErrorBodyBytes caps how much of a failed provider response is kept for logging.
const maxErrorBodyBytes = 64 << 10

// ErrDeliveryDisabled signals that no provider credential is configured.
var ErrDeliveryDisabled = errors.New("mailer: delivery disabled (no API key configured)")

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a message through a transactional email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ProviderError is returned when the provider answers with a non-2xx status.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("mailer: provider responded with status %d: %s", e.StatusCode, e.Body)
}

// ResendSettings capture what the Resend sender needs at runtime.
type ResendSettings struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// ResendMailer sends email through the Resend HTTP API.
type ResendMailer struct {
	settings ResendSettings
	client   *http.Client
}

// NewResendMailer builds a sender. A nil client gets a dedicated one bounded by settings.Timeout.
func NewResendMailer(settings ResendSettings, client *http.Client) *ResendMailer {
	if strings.TrimSpace(settings.Endpoint) == "" {
		settings.Endpoint = DefaultResendURL
	}
	if client == nil {
		client = &http.Client{Timeout: settings.Timeout}
	}
	return &ResendMailer{settings: settings, client: client}
}

// Enabled reports whether a credential is configured.
func (m *ResendMailer) Enabled() bool {
	return strings.TrimSpace(m.settings.APIKey) != ""
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return ErrDeliveryDisabled
	}
	if len(msg.To) == 0 {
		return errors.New("mailer: at least one recipient is required")
	}
	if strings.TrimSpace(msg.From) == "" {
		return errors.New("mailer: sender address is required")
	}

	body, err := json.Marshal(resendPayload{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("mailer: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.settings.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
