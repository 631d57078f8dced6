// internal/adapters/out/http/stripe_webhook_client.go
package httpout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeWebhookClient は開発環境で自分自身の /webhooks/stripe を叩き、
// カード決済の結果を擬似的に通知する。本番では使わない。
type StripeWebhookClient struct {
	baseURL string
	secret  string
	client  *http.Client
	now     func() time.Time
}

// baseURL example:
// - Cloud Run: https://xxxxx.asia-northeast1.run.app
// - local: http://localhost:8080
func NewStripeWebhookClient(baseURL, webhookSecret string) *StripeWebhookClient {
	return &StripeWebhookClient{
		baseURL: trimBase(baseURL),
		secret:  strings.TrimSpace(webhookSecret),
		client:  &http.Client{Timeout: 5 * time.Second},
		now:     time.Now,
	}
}

// TriggerOutcome posts a signed payment_intent.succeeded / canceled event.
func (c *StripeWebhookClient) TriggerOutcome(ctx context.Context, paymentIntentID string, succeeded bool, amountCents int64) error {
	if c == nil {
		return fmt.Errorf("stripe webhook client is nil")
	}
	if c.baseURL == "" {
		return fmt.Errorf("stripe webhook client baseURL is empty")
	}
	if c.secret == "" {
		return fmt.Errorf("stripe webhook client secret is empty")
	}

	eventType, status, received := "payment_intent.succeeded", "succeeded", amountCents
	if !succeeded {
		eventType, status, received = "payment_intent.canceled", "canceled", 0
	}

	pi, _ := json.Marshal(map[string]any{
		"id":              strings.TrimSpace(paymentIntentID),
		"object":          "payment_intent",
		"amount":          amountCents,
		"amount_received": received,
		"currency":        "usd",
		"status":          status,
	})
	payload, _ := json.Marshal(map[string]any{
		"id":          "evt_dev_" + uuid.NewString(),
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     c.now().Unix(),
		"data":        map[string]json.RawMessage{"object": pi},
	})

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    c.secret,
		Timestamp: c.now(),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	// 内部呼び出し識別
	req.Header.Set("X-Internal-Webhook", "1")

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent || res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	return fmt.Errorf("webhook call failed status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
}
