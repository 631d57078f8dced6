// internal/adapters/in/http/handlers/payment_ledger_handler.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"musicvault/internal/application/usecase"
	"musicvault/internal/domain/payment"
)

// LedgerQuery lists recorded payments (manual reconciliation).
type LedgerQuery interface {
	ListByPayer(ctx context.Context, payer string, from, to time.Time) ([]payment.LedgerEntry, error)
}

type PaymentLedgerHandler struct {
	q LedgerQuery
}

func NewPaymentLedgerHandler(q LedgerQuery) *PaymentLedgerHandler {
	return &PaymentLedgerHandler{q: q}
}

func (h *PaymentLedgerHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

// GET /payments?from=RFC3339&to=RFC3339
// payer は認証済み wallet。未認証（開発モード）のみ ?payer= を使う。
func (h *PaymentLedgerHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	payer := usecase.PayerAddressFromContext(ctx)
	if payer == "" {
		payer = strings.TrimSpace(q.Get("payer"))
	}
	if payer == "" {
		writeError(w, http.StatusBadRequest, "payer is required")
		return
	}

	to := time.Now().UTC()
	from := to.Add(-30 * 24 * time.Hour)
	var err error
	if s := strings.TrimSpace(q.Get("from")); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
	}
	if s := strings.TrimSpace(q.Get("to")); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
	}

	entries, err := h.q.ListByPayer(ctx, payer, from, to)
	if err != nil {
		writeErr(w, err)
		return
	}
	if entries == nil {
		entries = []payment.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}
