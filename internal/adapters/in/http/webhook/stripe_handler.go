// internal/adapters/in/http/webhook/stripe_handler.go
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	uc "musicvault/internal/application/usecase"
	"musicvault/internal/infra/logging"
)

// CardConfirmer delivers the processor outcome to the waiting purchase.
type CardConfirmer interface {
	ConfirmCard(ctx context.Context, paymentIntentID string, out uc.CardOutcome) bool
}

// StripeWebhookHandler verifies the Stripe-Signature header and forwards
// payment_intent.succeeded / payment_intent.canceled to the purchase workflow.
type StripeWebhookHandler struct {
	secret    string
	confirmer CardConfirmer
}

func NewStripeWebhookHandler(secret string, confirmer CardConfirmer) *StripeWebhookHandler {
	return &StripeWebhookHandler{secret: strings.TrimSpace(secret), confirmer: confirmer}
}

func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.confirmer == nil || h.secret == "" {
		writeJSONError(w, http.StatusServiceUnavailable, "stripe webhook is not configured")
		return
	}

	const maxBody = 1 << 16 // Stripe の上限は 64KB 程度
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	_ = r.Body.Close()

	event, err := stripewebhook.ConstructEventWithOptions(
		body,
		r.Header.Get("Stripe-Signature"),
		h.secret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		slog.WarnContext(r.Context(), "[webhook/stripe] signature verification failed", "err", err)
		writeJSONError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	var out uc.CardOutcome
	switch string(event.Type) {
	case "payment_intent.succeeded":
		out.Succeeded = true
	case "payment_intent.canceled":
		out.Canceled = true
	default:
		// payment_failed などはカード入力のやり直しができるので待機を続ける
		slog.DebugContext(r.Context(), "[webhook/stripe] ignored event", "type", event.Type, "eventId", event.ID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil || strings.TrimSpace(pi.ID) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid payment_intent payload")
		return
	}
	out.AmountReceived = pi.AmountReceived
	out.Currency = string(pi.Currency)
	if pi.CancellationReason != "" {
		out.Reason = string(pi.CancellationReason)
	}

	matched := h.confirmer.ConfirmCard(r.Context(), pi.ID, out)
	slog.InfoContext(r.Context(), "[webhook/stripe] handled",
		"type", event.Type,
		"paymentIntentId", logging.Mask(pi.ID),
		"matched", matched,
	)

	// 待機中のワークフローが無くても Stripe にはリトライさせない
	w.WriteHeader(http.StatusNoContent)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": msg,
	})
}
