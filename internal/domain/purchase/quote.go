// internal/domain/purchase/quote.go
package purchase

import (
	"github.com/shopspring/decimal"
)

// Quote は USD 価格を支払いレールのネイティブ額に変換した結果です。
// Resolved=false のとき Proceed はできません。
type Quote struct {
	Rail     PayRail         `json:"rail"`
	PriceUSD decimal.Decimal `json:"priceUSD"`
	Amount   decimal.Decimal `json:"amount"`
	Lamports uint64          `json:"lamports,omitempty"`
	Currency string          `json:"currency"`
	Resolved bool            `json:"resolved"`
	Err      string          `json:"error,omitempty"`
}

// Unresolved builds a quote that blocks Proceed.
func Unresolved(rail PayRail, usd decimal.Decimal, reason string) Quote {
	return Quote{
		Rail:     rail,
		PriceUSD: usd,
		Resolved: false,
		Err:      reason,
	}
}
