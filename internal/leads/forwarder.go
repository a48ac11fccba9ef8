package leads

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/terra-clan/academy-engine/internal/models"
)

// SignatureHeader carries the HMAC-SHA256 of the request body
const SignatureHeader = "X-Webhook-Signature"

// ErrWebhookDisabled is returned when no webhook URL is configured
var ErrWebhookDisabled = errors.New("lead webhook not configured")

// Forwarder delivers leads to the marketing automation system
type Forwarder interface {
	Forward(ctx context.Context, lead *models.Lead) error
	Enabled() bool
}

// Event is the webhook payload
type Event struct {
	Type string       `json:"type"`
	Lead *models.Lead `json:"lead"`
	Sent time.Time    `json:"sent_at"`
}

// WebhookForwarder posts leads as JSON to a webhook
type WebhookForwarder struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewWebhookForwarder creates a forwarder. An empty URL disables forwarding.
func NewWebhookForwarder(url, secret string, timeout time.Duration) *WebhookForwarder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookForwarder{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether a webhook is configured
func (f *WebhookForwarder) Enabled() bool {
	return f.url != ""
}

// Forward posts the lead. Any non-2xx response is an error.
func (f *WebhookForwarder) Forward(ctx context.Context, lead *models.Lead) error {
	if !f.Enabled() {
		return ErrWebhookDisabled
	}

	body, err := json.Marshal(Event{Type: "lead.created", Lead: lead, Sent: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.secret != "" {
		req.Header.Set(SignatureHeader, Sign(f.secret, body))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the signature header value for a body
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value in constant time
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
