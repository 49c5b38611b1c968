// Package webhook posts extracted product records to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/use-agent/cardgrab/models"
)

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Cardgrab-Signature"

// Event is the payload sent to the endpoint.
type Event struct {
	Type      string                `json:"type"` // always "product.extracted"
	URL       string                `json:"url"`
	Timestamp int64                 `json:"timestamp"`
	Product   *models.ProductRecord `json:"product"`
}

// Sink delivers one event per extracted record.
type Sink struct {
	url    string
	secret string
	client *http.Client
}

// NewSink creates a sink posting to url. An empty secret disables signing.
func NewSink(url, secret string, timeout time.Duration) *Sink {
	return &Sink{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Publish delivers rec once; failures are returned, never retried.
func (s *Sink) Publish(ctx context.Context, url string, rec *models.ProductRecord) error {
	return s.deliver(ctx, &Event{
		Type:      "product.extracted",
		URL:       url,
		Timestamp: time.Now().Unix(),
		Product:   rec,
	})
}

func (s *Sink) deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Cardgrab-Webhook/1.0")

	if s.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(s.secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
