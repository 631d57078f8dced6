// internal/adapters/out/stripe/payment_intent_creator.go
package stripeout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretspb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"musicvault/internal/application/usecase"
	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/logging"
)

var (
	ErrStripeKeyEmpty    = errors.New("stripe: secret key is empty")
	ErrStripeAmountZero  = errors.New("stripe: amount must be at least 1 cent")
	ErrStripeNoClientKey = errors.New("stripe: payment intent has no client secret")
)

// PaymentIntentCreator は Stripe API で PaymentIntent を直接作る実装。
type PaymentIntentCreator struct {
	sc *client.API
}

var _ usecase.CardIntentCreator = (*PaymentIntentCreator)(nil)

func NewPaymentIntentCreator(secretKey string, backends *stripe.Backends) (*PaymentIntentCreator, error) {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		return nil, ErrStripeKeyEmpty
	}
	return &PaymentIntentCreator{sc: client.New(key, backends)}, nil
}

// CreateCardIntent: amount は USD → cents（小数点以下 2 桁で四捨五入）
func (c *PaymentIntentCreator) CreateCardIntent(ctx context.Context, intent purchase.PurchaseIntent, amountUSD decimal.Decimal) (usecase.CardIntent, error) {
	if c == nil || c.sc == nil {
		return usecase.CardIntent{}, ErrStripeKeyEmpty
	}

	cents := CentsFromUSD(amountUSD)
	if cents <= 0 {
		return usecase.CardIntent{}, ErrStripeAmountZero
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(fmt.Sprintf("album %s (%s)", intent.AlbumID, intent.SaleOption)),
	}
	params.Context = ctx
	params.AddMetadata("intentId", intent.ID)
	params.AddMetadata("albumId", intent.AlbumID)
	params.AddMetadata("artistSlug", intent.ArtistSlug)
	params.AddMetadata("buyerAddress", intent.PayerAddress)
	params.AddMetadata("saleOption", string(intent.SaleOption))

	pi, err := c.sc.PaymentIntents.New(params)
	if err != nil {
		return usecase.CardIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	if pi.ClientSecret == "" {
		return usecase.CardIntent{}, ErrStripeNoClientKey
	}

	slog.InfoContext(ctx, "[stripe] payment intent created",
		"intentId", intent.ID,
		"paymentIntent", pi.ID,
		"amount", cents,
		"buyer", logging.Mask(intent.PayerAddress),
	)
	return usecase.CardIntent{PaymentIntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CentsFromUSD converts a USD amount to integer cents.
func CentsFromUSD(usd decimal.Decimal) int64 {
	return usd.Round(2).Shift(2).IntPart()
}

// ResolveSecretKey は STRIPE_SECRET_KEY を優先し、
// 無ければ Secret Manager（STRIPE_SECRET_NAME）から読む。
func ResolveSecretKey(ctx context.Context, key, secretName string) (string, error) {
	if k := strings.TrimSpace(key); k != "" {
		return k, nil
	}
	secretName = strings.TrimSpace(secretName)
	if secretName == "" {
		return "", ErrStripeKeyEmpty
	}

	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer sm.Close()

	res, err := sm.AccessSecretVersion(ctx, &secretspb.AccessSecretVersionRequest{Name: secretName})
	if err != nil {
		return "", fmt.Errorf("AccessSecretVersion: %w", err)
	}
	if res == nil || res.Payload == nil {
		return "", ErrStripeKeyEmpty
	}
	k := strings.TrimSpace(string(res.Payload.Data))
	if k == "" {
		return "", ErrStripeKeyEmpty
	}
	return k, nil
}
