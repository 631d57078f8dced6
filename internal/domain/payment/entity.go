// internal/domain/payment/entity.go
package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaskBuyAlbum is the ledger task name for album purchases.
const TaskBuyAlbum = "buyAlbum"

// Currency codes used by receipts.
const (
	CurrencySOL = "SOL"
	CurrencyUSD = "USD"
	CurrencyXP  = "XP"
)

var (
	ErrInvalidTransactionRef = errors.New("payment: invalid transactionRef")
	ErrInvalidAmount         = errors.New("payment: invalid amountPaid")
	ErrInvalidCurrency       = errors.New("payment: invalid currency")
	ErrInvalidPayer          = errors.New("payment: invalid payer")
	ErrInvalidRail           = errors.New("payment: invalid rail")
)

// Receipt は支払い確定後にのみ生成される証憑です。
// mint に渡される唯一の証拠となります。
//
// TransactionRef:
//   - sol: チェーン上のトランザクション署名
//   - cc : Stripe PaymentIntent ID
//   - xp : XP バックエンドの receipt id
type Receipt struct {
	TransactionRef string          `json:"transactionRef"`
	AmountPaid     decimal.Decimal `json:"amountPaid"`
	Currency       string          `json:"currency"`
	Payer          string          `json:"payer"`
	CreatorWallet  string          `json:"creatorWallet"`
	Rail           string          `json:"rail"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewReceipt validates and normalizes a receipt.
func NewReceipt(
	txRef string,
	amount decimal.Decimal,
	currency string,
	payer string,
	creatorWallet string,
	rail string,
	at time.Time,
) (Receipt, error) {
	r := Receipt{
		TransactionRef: strings.TrimSpace(txRef),
		AmountPaid:     amount,
		Currency:       strings.ToUpper(strings.TrimSpace(currency)),
		Payer:          strings.TrimSpace(payer),
		CreatorWallet:  strings.TrimSpace(creatorWallet),
		Rail:           strings.ToLower(strings.TrimSpace(rail)),
		Timestamp:      at.UTC(),
	}
	if r.TransactionRef == "" {
		return Receipt{}, ErrInvalidTransactionRef
	}
	if r.AmountPaid.IsNegative() || r.AmountPaid.IsZero() {
		return Receipt{}, ErrInvalidAmount
	}
	switch r.Currency {
	case CurrencySOL, CurrencyUSD, CurrencyXP:
	default:
		return Receipt{}, ErrInvalidCurrency
	}
	if r.Payer == "" {
		return Receipt{}, ErrInvalidPayer
	}
	if r.Rail == "" {
		return Receipt{}, ErrInvalidRail
	}
	return r, nil
}

func (r Receipt) IsZero() bool {
	return r.TransactionRef == ""
}

// LedgerEntry is one row of the payment ledger.
// Each Create call appends a new row; dedupe is the caller's job.
type LedgerEntry struct {
	ID         string          `json:"id"`
	Receipt    Receipt         `json:"receipt"`
	AlbumID    string          `json:"albumId"`
	SaleOption string          `json:"saleOption"`
	PriceUSD   decimal.Decimal `json:"priceInUSD"`
	Task       string          `json:"task"`
	CreatedAt  time.Time       `json:"createdAt"`
}
