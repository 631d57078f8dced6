// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"musicvault/internal/adapters/in/http/handlers"
	"musicvault/internal/adapters/in/http/middleware"
	"musicvault/internal/adapters/in/http/webhook"
)

// RouterDeps collects the handlers injected from the DI container.
type RouterDeps struct {
	Purchases *handlers.PurchaseHandler
	Payments  *handlers.PaymentLedgerHandler
	Bitz      *handlers.BitzHandler
	Previews  *handlers.PreviewHandler
	Stripe    *webhook.StripeWebhookHandler

	// 開発環境のみ（nil なら /dev は生やさない）
	CardSimulator *handlers.CardSimulateHandler

	UserAuth       *middleware.UserAuthMiddleware
	AllowedOrigins []string
}

// NewRouter builds the public HTTP surface.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS を外側に置く（panic 時の 500 にもヘッダが付く）
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.Recover)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	auth := deps.UserAuth.Handler

	if deps.Purchases != nil {
		r.Route("/purchases", func(r chi.Router) {
			r.Use(auth)
			deps.Purchases.Routes(r)
		})
	}
	if deps.Payments != nil {
		r.Route("/payments", func(r chi.Router) {
			r.Use(auth)
			deps.Payments.Routes(r)
		})
	}
	if deps.Bitz != nil {
		r.Route("/bitz", func(r chi.Router) {
			deps.Bitz.Routes(r, auth)
		})
	}
	if deps.Previews != nil {
		r.Route("/previews", deps.Previews.Routes)
	}
	if deps.Stripe != nil {
		r.Method(http.MethodPost, "/webhooks/stripe", deps.Stripe)
	}
	if deps.CardSimulator != nil {
		r.Route("/dev", deps.CardSimulator.Routes)
	}

	return r
}
