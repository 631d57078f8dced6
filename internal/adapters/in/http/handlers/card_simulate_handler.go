// internal/adapters/in/http/handlers/card_simulate_handler.go
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// CardSimulator posts a signed processor event to our own webhook.
type CardSimulator interface {
	TriggerOutcome(ctx context.Context, paymentIntentID string, succeeded bool, amountCents int64) error
}

// CardSimulateHandler は開発環境専用（Stripe を介さずカード決済を完了させる）。
type CardSimulateHandler struct {
	sim CardSimulator
}

func NewCardSimulateHandler(sim CardSimulator) *CardSimulateHandler {
	return &CardSimulateHandler{sim: sim}
}

func (h *CardSimulateHandler) Routes(r chi.Router) {
	r.Post("/cards/{paymentIntentId}", h.simulate)
}

// POST /dev/cards/{paymentIntentId}?outcome=succeeded|canceled&amountCents=999
func (h *CardSimulateHandler) simulate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	piID := strings.TrimSpace(chi.URLParam(r, "paymentIntentId"))

	succeeded := true
	switch strings.ToLower(strings.TrimSpace(q.Get("outcome"))) {
	case "", "succeeded":
	case "canceled", "cancelled":
		succeeded = false
	default:
		writeError(w, http.StatusBadRequest, "outcome must be succeeded or canceled")
		return
	}

	var cents int64
	if s := strings.TrimSpace(q.Get("amountCents")); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "amountCents must be a non-negative integer")
			return
		}
		cents = v
	}

	if err := h.sim.TriggerOutcome(r.Context(), piID, succeeded, cents); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
