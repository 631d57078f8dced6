// internal/adapters/out/firestore/payment_ledger_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	paymentdom "musicvault/internal/domain/payment"
)

// PaymentLedgerFS は支払い台帳（payments コレクション）の Firestore 実装です。
type PaymentLedgerFS struct {
	Client *firestore.Client
}

var _ paymentdom.RepositoryPort = (*PaymentLedgerFS)(nil)

func NewPaymentLedgerFS(client *firestore.Client) *PaymentLedgerFS {
	return &PaymentLedgerFS{Client: client}
}

func (r *PaymentLedgerFS) col() *firestore.CollectionRef {
	return r.Client.Collection("payments")
}

// Firestore 上のドキュメント構造（金額は decimal を文字列で保持）
type ledgerDoc struct {
	ID             string    `firestore:"id"`
	TransactionRef string    `firestore:"transactionRef"`
	AmountPaid     string    `firestore:"amountPaid"`
	Currency       string    `firestore:"currency"`
	Payer          string    `firestore:"payer"`
	CreatorWallet  string    `firestore:"creatorWallet"`
	Rail           string    `firestore:"rail"`
	PaidAt         time.Time `firestore:"paidAt"`
	AlbumID        string    `firestore:"albumId"`
	SaleOption     string    `firestore:"saleOption"`
	PriceUSD       string    `firestore:"priceInUSD"`
	Task           string    `firestore:"task"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

// Create appends one row. ID が空なら Firestore の自動 ID を使う。
func (r *PaymentLedgerFS) Create(ctx context.Context, e paymentdom.LedgerEntry) (paymentdom.LedgerEntry, error) {
	if r == nil || r.Client == nil {
		return paymentdom.LedgerEntry{}, errors.New("firestore client is nil")
	}

	var ref *firestore.DocumentRef
	if id := strings.TrimSpace(e.ID); id != "" {
		ref = r.col().Doc(id)
	} else {
		ref = r.col().NewDoc()
	}
	e.ID = ref.ID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if _, err := ref.Create(ctx, ledgerToDoc(e)); err != nil {
		return paymentdom.LedgerEntry{}, fmt.Errorf("payments: create %s: %w", e.ID, err)
	}
	return e, nil
}

// ListByPayer returns from <= createdAt < to, newest first.
func (r *PaymentLedgerFS) ListByPayer(ctx context.Context, payer string, from, to time.Time) ([]paymentdom.LedgerEntry, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	payer = strings.TrimSpace(payer)
	if payer == "" {
		return []paymentdom.LedgerEntry{}, nil
	}

	it := r.col().
		Where("payer", "==", payer).
		Where("createdAt", ">=", from.UTC()).
		Where("createdAt", "<", to.UTC()).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer it.Stop()

	out := make([]paymentdom.LedgerEntry, 0, 8)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var d ledgerDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, err
		}
		if strings.TrimSpace(d.ID) == "" {
			d.ID = snap.Ref.ID
		}
		e, err := docToLedger(d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ===============================
// Mapping helpers
// ===============================

func ledgerToDoc(e paymentdom.LedgerEntry) ledgerDoc {
	return ledgerDoc{
		ID:             e.ID,
		TransactionRef: e.Receipt.TransactionRef,
		AmountPaid:     e.Receipt.AmountPaid.String(),
		Currency:       e.Receipt.Currency,
		Payer:          e.Receipt.Payer,
		CreatorWallet:  e.Receipt.CreatorWallet,
		Rail:           e.Receipt.Rail,
		PaidAt:         e.Receipt.Timestamp.UTC(),
		AlbumID:        e.AlbumID,
		SaleOption:     e.SaleOption,
		PriceUSD:       e.PriceUSD.String(),
		Task:           e.Task,
		CreatedAt:      e.CreatedAt.UTC(),
	}
}

func docToLedger(d ledgerDoc) (paymentdom.LedgerEntry, error) {
	amount, err := parseDecimal(d.AmountPaid)
	if err != nil {
		return paymentdom.LedgerEntry{}, fmt.Errorf("payments/%s amountPaid: %w", d.ID, err)
	}
	price, err := parseDecimal(d.PriceUSD)
	if err != nil {
		return paymentdom.LedgerEntry{}, fmt.Errorf("payments/%s priceInUSD: %w", d.ID, err)
	}
	return paymentdom.LedgerEntry{
		ID: d.ID,
		Receipt: paymentdom.Receipt{
			TransactionRef: d.TransactionRef,
			AmountPaid:     amount,
			Currency:       d.Currency,
			Payer:          d.Payer,
			CreatorWallet:  d.CreatorWallet,
			Rail:           d.Rail,
			Timestamp:      d.PaidAt.UTC(),
		},
		AlbumID:    d.AlbumID,
		SaleOption: d.SaleOption,
		PriceUSD:   price,
		Task:       d.Task,
		CreatedAt:  d.CreatedAt.UTC(),
	}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
