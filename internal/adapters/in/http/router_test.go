package httpin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	httpin "musicvault/internal/adapters/in/http"
	"musicvault/internal/adapters/in/http/handlers"
	"musicvault/internal/adapters/in/http/middleware"
	"musicvault/internal/domain/payment"
)

type emptyLedger struct{}

func (emptyLedger) ListByPayer(context.Context, string, time.Time, time.Time) ([]payment.LedgerEntry, error) {
	return nil, nil
}

func TestRouter_Healthz(t *testing.T) {
	h := httpin.NewRouter(httpin.RouterDeps{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_AuthGuardsPayments(t *testing.T) {
	h := httpin.NewRouter(httpin.RouterDeps{
		Payments: handlers.NewPaymentLedgerHandler(emptyLedger{}),
		UserAuth: &middleware.UserAuthMiddleware{Required: true},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments?payer=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_UnregisteredRoutes(t *testing.T) {
	h := httpin.NewRouter(httpin.RouterDeps{UserAuth: &middleware.UserAuthMiddleware{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dev/cards/pi_1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
