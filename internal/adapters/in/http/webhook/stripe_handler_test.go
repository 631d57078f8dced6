package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"musicvault/internal/adapters/in/http/webhook"
	uc "musicvault/internal/application/usecase"
)

const secret = "whsec_test"

type fakeConfirmer struct {
	calls []uc.CardOutcome
	ids   []string
}

func (f *fakeConfirmer) ConfirmCard(_ context.Context, id string, out uc.CardOutcome) bool {
	f.ids = append(f.ids, id)
	f.calls = append(f.calls, out)
	return true
}

func signedRequest(t *testing.T, eventType string, pi map[string]any, key string) *http.Request {
	t.Helper()
	raw, err := json.Marshal(pi)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]json.RawMessage{"object": raw},
	})
	require.NoError(t, err)

	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    key,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeWebhook_Succeeded(t *testing.T) {
	c := &fakeConfirmer{}
	h := webhook.NewStripeWebhookHandler(secret, c)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "payment_intent.succeeded", map[string]any{
		"id": "pi_123", "object": "payment_intent", "amount": 999, "amount_received": 999, "currency": "usd",
	}, secret))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, c.calls, 1)
	assert.Equal(t, "pi_123", c.ids[0])
	assert.True(t, c.calls[0].Succeeded)
	assert.Equal(t, int64(999), c.calls[0].AmountReceived)
	assert.Equal(t, "usd", c.calls[0].Currency)
}

func TestStripeWebhook_Canceled(t *testing.T) {
	c := &fakeConfirmer{}
	h := webhook.NewStripeWebhookHandler(secret, c)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "payment_intent.canceled", map[string]any{
		"id": "pi_9", "object": "payment_intent", "cancellation_reason": "abandoned",
	}, secret))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, c.calls, 1)
	assert.True(t, c.calls[0].Canceled)
	assert.Equal(t, "abandoned", c.calls[0].Reason)
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	c := &fakeConfirmer{}
	h := webhook.NewStripeWebhookHandler(secret, c)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "payment_intent.succeeded", map[string]any{"id": "pi_1"}, "whsec_other"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.calls)
}

func TestStripeWebhook_IgnoresOtherEvents(t *testing.T) {
	c := &fakeConfirmer{}
	h := webhook.NewStripeWebhookHandler(secret, c)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "payment_intent.payment_failed", map[string]any{"id": "pi_1"}, secret))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, c.calls)
}

func TestStripeWebhook_NotConfigured(t *testing.T) {
	h := webhook.NewStripeWebhookHandler("", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
