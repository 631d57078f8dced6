// internal/adapters/out/http/price_feed_client.go
package httpout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"musicvault/internal/application/usecase"
)

var ErrPriceFeedURLEmpty = errors.New("price_feed: url is empty")

// SolPriceFeedClient reads SOL/USD from a CoinGecko-compatible endpoint:
//
//	{"solana":{"usd":172.35}}
//
// フラットな {"price": N} / {"usd": N} も受け付ける。
type SolPriceFeedClient struct {
	url    string
	client *http.Client
}

var _ usecase.SolPriceFeed = (*SolPriceFeedClient)(nil)

func NewSolPriceFeedClient(url string, c *http.Client) *SolPriceFeedClient {
	return &SolPriceFeedClient{url: strings.TrimSpace(url), client: newHTTPClient(c)}
}

func (c *SolPriceFeedClient) SolUSD(ctx context.Context) (decimal.Decimal, error) {
	if c == nil || c.url == "" {
		return decimal.Zero, ErrPriceFeedURLEmpty
	}

	var body struct {
		Solana *struct {
			USD *decimal.Decimal `json:"usd"`
		} `json:"solana"`
		Price *decimal.Decimal `json:"price"`
		USD   *decimal.Decimal `json:"usd"`
	}
	if err := doJSON(ctx, c.client, http.MethodGet, c.url, nil, nil, &body); err != nil {
		slog.WarnContext(ctx, "[price_feed] fetch failed", "err", err)
		return decimal.Zero, fmt.Errorf("price_feed: %w", err)
	}

	switch {
	case body.Solana != nil && body.Solana.USD != nil:
		return *body.Solana.USD, nil
	case body.Price != nil:
		return *body.Price, nil
	case body.USD != nil:
		return *body.USD, nil
	}
	return decimal.Zero, fmt.Errorf("price_feed: %w: no price field", usecase.ErrPriceInvalid)
}
