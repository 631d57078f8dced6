// internal/application/usecase/price_oracle.go
package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
)

// SolPriceFeed is an outbound port returning the current SOL/USD price.
type SolPriceFeed interface {
	SolUSD(ctx context.Context) (decimal.Decimal, error)
}

const (
	solDisplayPlaces = 4
	lamportsPerSOL   = 9 // 10^9
)

var (
	ErrPriceFeedNotConfigured = errors.New("price_oracle: sol price feed is not configured")
	ErrPriceInvalid           = errors.New("price_oracle: price feed returned a non-positive price")
	ErrAmountTooSmall         = errors.New("price_oracle: amount rounds to zero")
)

// PriceOracle は USD 価格を支払いレールの額に変換します。
// SOL は 1 購入試行につき 1 回だけ price feed を叩く（キャッシュしない）。
type PriceOracle struct {
	feed       SolPriceFeed
	oneUSDInXP decimal.Decimal
}

func NewPriceOracle(feed SolPriceFeed, oneUSDInXP int64) *PriceOracle {
	return &PriceOracle{
		feed:       feed,
		oneUSDInXP: decimal.NewFromInt(oneUSDInXP),
	}
}

// Quote never returns an error: failures come back as an unresolved quote.
func (o *PriceOracle) Quote(ctx context.Context, usd decimal.Decimal, rail purchase.PayRail) purchase.Quote {
	switch rail {
	case purchase.RailSOL:
		q, err := o.quoteSOL(ctx, usd)
		if err != nil {
			slog.WarnContext(ctx, "[price_oracle] sol quote unresolved", "usd", usd.String(), "err", err)
			return purchase.Unresolved(rail, usd, err.Error())
		}
		return q

	case purchase.RailXP:
		// 固定レート。ネットワーク呼び出し無し
		required := usd.Mul(o.oneUSDInXP).Ceil()
		return purchase.Quote{
			Rail:     rail,
			PriceUSD: usd,
			Amount:   required,
			Currency: payment.CurrencyXP,
			Resolved: true,
		}

	case purchase.RailCC:
		return purchase.Quote{
			Rail:     rail,
			PriceUSD: usd,
			Amount:   usd.Round(2),
			Currency: payment.CurrencyUSD,
			Resolved: true,
		}

	default:
		return purchase.Unresolved(rail, usd, purchase.ErrInvalidPayRail.Error())
	}
}

func (o *PriceOracle) quoteSOL(ctx context.Context, usd decimal.Decimal) (purchase.Quote, error) {
	if o == nil || o.feed == nil {
		return purchase.Quote{}, ErrPriceFeedNotConfigured
	}
	price, err := o.feed.SolUSD(ctx)
	if err != nil {
		return purchase.Quote{}, err
	}
	if !price.IsPositive() {
		return purchase.Quote{}, ErrPriceInvalid
	}

	amount := usd.DivRound(price, solDisplayPlaces+4).Round(solDisplayPlaces)
	if !amount.IsPositive() {
		return purchase.Quote{}, ErrAmountTooSmall
	}

	return purchase.Quote{
		Rail:     purchase.RailSOL,
		PriceUSD: usd,
		Amount:   amount,
		// 表示額（4 桁丸め後）から lamports を算出する
		Lamports: LamportsFor(amount),
		Currency: payment.CurrencySOL,
		Resolved: true,
	}, nil
}

// LamportsFor converts a displayed SOL amount to lamports, rounding half away from zero.
func LamportsFor(sol decimal.Decimal) uint64 {
	return uint64(sol.Shift(lamportsPerSOL).Round(0).IntPart())
}
