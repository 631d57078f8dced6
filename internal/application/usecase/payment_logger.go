// internal/application/usecase/payment_logger.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/logging"
)

var (
	ErrPaymentLogNotConfigured = errors.New("payment_logger: ledger is not configured")
	ErrLedgerQueryUnsupported  = errors.New("payment_logger: ledger does not support queries")
	ErrInvalidLedgerRange      = errors.New("payment_logger: invalid time range")
)

// PaymentLogger records a confirmed payment against the backend ledger.
//
// 冪等ではない: 1 回の Log 呼び出しで 1 行追加される。
// Execute 成功 1 回につき Log 1 回を保証するのはワークフロー側。
type PaymentLogger struct {
	repo  payment.RepositoryPort
	creds PreAccessProvider
	newID func() string
	now   func() time.Time
}

func NewPaymentLogger(repo payment.RepositoryPort, creds PreAccessProvider, newID func() string) *PaymentLogger {
	return &PaymentLogger{
		repo:  repo,
		creds: creds,
		newID: newID,
		now:   time.Now,
	}
}

// RequiresPreAccess reports whether the configured ledger refuses writes without a wallet proof.
func (l *PaymentLogger) RequiresPreAccess() bool {
	return l != nil && requiresPreAccess(l.repo)
}

func (l *PaymentLogger) Log(ctx context.Context, receipt payment.Receipt, intent purchase.PurchaseIntent) (payment.LedgerEntry, error) {
	if l == nil || l.repo == nil {
		return payment.LedgerEntry{}, ErrPaymentLogNotConfigured
	}
	if receipt.IsZero() {
		return payment.LedgerEntry{}, ErrMissingReceipt
	}

	// ワークフローが確定させた credential を優先する。無ければ cache から補う
	if _, ok := PreAccessFromContext(ctx); !ok && l.creds != nil {
		if cred, err := l.creds.Get(ctx, intent.PayerAddress); err == nil {
			ctx = WithPreAccess(ctx, cred)
		}
	}

	id := ""
	if l.newID != nil {
		id = l.newID()
	}
	entry := payment.LedgerEntry{
		ID:         id,
		Receipt:    receipt,
		AlbumID:    intent.AlbumID,
		SaleOption: string(intent.SaleOption),
		PriceUSD:   intent.PriceUSD,
		Task:       payment.TaskBuyAlbum,
		CreatedAt:  l.now().UTC(),
	}

	saved, err := l.repo.Create(ctx, entry)
	if err != nil {
		// 資金は移動済みで台帳に無い状態。照合のため tx ref を必ず残す
		slog.ErrorContext(ctx, "[payment_logger] ledger write failed after confirmed payment",
			"intentId", intent.ID,
			"rail", receipt.Rail,
			"transactionRef", receipt.TransactionRef,
			"payer", logging.Mask(receipt.Payer),
			"err", err,
		)
		return payment.LedgerEntry{}, fmt.Errorf("payment_logger: %w", err)
	}

	slog.InfoContext(ctx, "[payment_logger] logged",
		"intentId", intent.ID,
		"rail", receipt.Rail,
		"transactionRef", logging.Mask(receipt.TransactionRef),
	)
	return saved, nil
}

// ListByPayer is the manual reconciliation query.
func (l *PaymentLogger) ListByPayer(ctx context.Context, payer string, from, to time.Time) ([]payment.LedgerEntry, error) {
	if l == nil || l.repo == nil {
		return nil, ErrPaymentLogNotConfigured
	}
	payer = strings.TrimSpace(payer)
	if payer == "" {
		return nil, purchase.ErrMissingWallet
	}
	if to.IsZero() {
		to = l.now()
	}
	if from.IsZero() {
		from = to.Add(-7 * 24 * time.Hour)
	}
	if !from.Before(to) {
		return nil, ErrInvalidLedgerRange
	}
	return l.repo.ListByPayer(ctx, payer, from.UTC(), to.UTC())
}
