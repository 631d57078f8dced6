package stripeout

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"musicvault/internal/domain/purchase"
)

func TestCentsFromUSD(t *testing.T) {
	assert.EqualValues(t, 999, CentsFromUSD(decimal.RequireFromString("9.99")))
	assert.EqualValues(t, 1000, CentsFromUSD(decimal.RequireFromString("9.995")))
	assert.EqualValues(t, 5, CentsFromUSD(decimal.RequireFromString("0.05")))
	assert.EqualValues(t, 0, CentsFromUSD(decimal.RequireFromString("0.004")))
}

func TestPaymentIntentCreator_CreateCardIntent(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(raw))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"pi_1","object":"payment_intent","amount":999,"currency":"usd","client_secret":"pi_1_secret_x","status":"requires_payment_method"}`)
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	c, err := NewPaymentIntentCreator("sk_test_123", &stripe.Backends{API: backend})
	require.NoError(t, err)

	intent := purchase.PurchaseIntent{ID: "i1", AlbumID: "album-1", ArtistSlug: "artist", PayerAddress: "payer-1", SaleOption: purchase.SaleDigitalOnly}
	ci, err := c.CreateCardIntent(context.Background(), intent, decimal.RequireFromString("9.99"))
	require.NoError(t, err)
	assert.Equal(t, "pi_1", ci.PaymentIntentID)
	assert.Equal(t, "pi_1_secret_x", ci.ClientSecret)

	assert.Equal(t, "999", form.Get("amount"))
	assert.Equal(t, "usd", form.Get("currency"))
	assert.Equal(t, "i1", form.Get("metadata[intentId]"))
	assert.Equal(t, "digitalOnly", form.Get("metadata[saleOption]"))
}

func TestPaymentIntentCreator_Validation(t *testing.T) {
	_, err := NewPaymentIntentCreator(" ", nil)
	assert.ErrorIs(t, err, ErrStripeKeyEmpty)

	c, err := NewPaymentIntentCreator("sk_test_123", nil)
	require.NoError(t, err)
	_, err = c.CreateCardIntent(context.Background(), purchase.PurchaseIntent{}, decimal.Zero)
	assert.ErrorIs(t, err, ErrStripeAmountZero)
}

func TestResolveSecretKey_PrefersEnvKey(t *testing.T) {
	k, err := ResolveSecretKey(context.Background(), " sk_live_x ", "projects/p/secrets/s/versions/latest")
	require.NoError(t, err)
	assert.Equal(t, "sk_live_x", k)

	_, err = ResolveSecretKey(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrStripeKeyEmpty)
}
