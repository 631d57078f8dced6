// internal/adapters/out/http/card_intent_client.go
package httpout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"musicvault/internal/application/usecase"
	"musicvault/internal/domain/purchase"
)

var (
	ErrCardIntentURLEmpty  = errors.New("card_intent: url is empty")
	ErrCardIntentNoSecret  = errors.New("card_intent: response has no clientSecret")
	ErrCardIntentBadSecret = errors.New("card_intent: clientSecret has unexpected format")
)

// CardIntentClient は backend の payment-intent 作成エンドポイントを使う実装。
// STRIPE_SECRET_KEY が無い環境向け。
type CardIntentClient struct {
	url    string
	client *http.Client
}

var _ usecase.CardIntentCreator = (*CardIntentClient)(nil)

func NewCardIntentClient(url string, c *http.Client) *CardIntentClient {
	return &CardIntentClient{url: trimBase(url), client: newHTTPClient(c)}
}

type cardIntentRequest struct {
	AmountToPay  json.Number `json:"amountToPay"`
	Type         string      `json:"type"`
	AlbumID      string      `json:"albumId"`
	ArtistSlug   string      `json:"artistSlug"`
	BuyerAddress string      `json:"buyerAddress"`
	SaleOption   string      `json:"saleOption"`
}

func (c *CardIntentClient) CreateCardIntent(ctx context.Context, intent purchase.PurchaseIntent, amountUSD decimal.Decimal) (usecase.CardIntent, error) {
	if c == nil || c.url == "" {
		return usecase.CardIntent{}, ErrCardIntentURLEmpty
	}

	body := cardIntentRequest{
		AmountToPay:  json.Number(amountUSD.StringFixed(2)),
		Type:         "album",
		AlbumID:      intent.AlbumID,
		ArtistSlug:   intent.ArtistSlug,
		BuyerAddress: intent.PayerAddress,
		SaleOption:   string(intent.SaleOption),
	}

	var res struct {
		backendError
		ClientSecret string `json:"clientSecret"`
	}
	if err := doJSON(ctx, c.client, http.MethodPost, c.url, nil, body, &res); err != nil {
		return usecase.CardIntent{}, fmt.Errorf("card_intent: %w", err)
	}
	if failed, msg := res.failed(); failed {
		return usecase.CardIntent{}, fmt.Errorf("card_intent: backend error: %s", msg)
	}
	if strings.TrimSpace(res.ClientSecret) == "" {
		return usecase.CardIntent{}, ErrCardIntentNoSecret
	}

	piID, err := PaymentIntentIDFromSecret(res.ClientSecret)
	if err != nil {
		return usecase.CardIntent{}, err
	}

	slog.InfoContext(ctx, "[card_intent] created", "intentId", intent.ID, "paymentIntent", piID)
	return usecase.CardIntent{PaymentIntentID: piID, ClientSecret: res.ClientSecret}, nil
}

// PaymentIntentIDFromSecret: "pi_123_secret_abc" -> "pi_123"
func PaymentIntentIDFromSecret(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	i := strings.Index(secret, "_secret_")
	if i <= 0 || !strings.HasPrefix(secret, "pi_") {
		return "", ErrCardIntentBadSecret
	}
	return secret[:i], nil
}
