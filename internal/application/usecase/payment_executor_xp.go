// internal/application/usecase/payment_executor_xp.go
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/logging"
)

// GiveXPInput is one "give-bits" call.
type GiveXPInput struct {
	Payer      string
	Recipient  string
	Amount     int64
	CampaignID string
	BountyID   string
	Cred       PreAccess
}

// XPTransferResult mirrors { data: { statusCode }, receipt }.
type XPTransferResult struct {
	StatusCode int
	Receipt    string
}

// XPLedger is the internal XP backend.
type XPLedger interface {
	Balance(ctx context.Context, address string) (int64, error)
	GiveXP(ctx context.Context, in GiveXPInput) (XPTransferResult, error)
}

// XPPaymentExecutor は XP（内部ポイント）レール。
type XPPaymentExecutor struct {
	ledger     XPLedger
	creds      PreAccessProvider
	campaignID string
	now        func() time.Time
}

func NewXPPaymentExecutor(ledger XPLedger, creds PreAccessProvider, campaignID string) *XPPaymentExecutor {
	return &XPPaymentExecutor{
		ledger:     ledger,
		creds:      creds,
		campaignID: strings.TrimSpace(campaignID),
		now:        time.Now,
	}
}

func (e *XPPaymentExecutor) Rail() purchase.PayRail { return purchase.RailXP }

// Preflight: requiredXP > balance なら ErrInsufficientXP（Execute は呼ばれない）。
func (e *XPPaymentExecutor) Preflight(ctx context.Context, intent purchase.PurchaseIntent, quote purchase.Quote) error {
	if e == nil || e.ledger == nil {
		return ErrExecutorNotConfigured
	}
	if !quote.Resolved {
		return ErrQuoteUnresolved
	}
	required := quote.Amount.IntPart()
	balance, err := e.ledger.Balance(ctx, intent.PayerAddress)
	if err != nil {
		return fmt.Errorf("xp: balance: %w", err)
	}
	if required > balance {
		return fmt.Errorf("%w: required=%d balance=%d", ErrInsufficientXP, required, balance)
	}
	return nil
}

func (e *XPPaymentExecutor) Execute(
	ctx context.Context,
	intent purchase.PurchaseIntent,
	quote purchase.Quote,
	_ ActionSink,
) (payment.Receipt, error) {
	if e == nil || e.ledger == nil || e.creds == nil {
		return payment.Receipt{}, ErrExecutorNotConfigured
	}

	cred, err := e.creds.Get(ctx, intent.PayerAddress)
	if err != nil {
		return payment.Receipt{}, err
	}

	amount := quote.Amount.IntPart()
	res, err := e.ledger.GiveXP(ctx, GiveXPInput{
		Payer:      intent.PayerAddress,
		Recipient:  intent.CreatorWallet,
		Amount:     amount,
		CampaignID: e.campaignID,
		Cred:       cred,
	})
	if err != nil {
		return payment.Receipt{}, fmt.Errorf("xp: give: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return payment.Receipt{}, fmt.Errorf("%w: statusCode=%d", ErrXPTransferFailed, res.StatusCode)
	}
	// 200 でも receipt が無ければ失敗扱い
	if strings.TrimSpace(res.Receipt) == "" {
		return payment.Receipt{}, ErrMissingReceipt
	}

	slog.InfoContext(ctx, "[xp_executor] transferred",
		"intentId", intent.ID,
		"payer", logging.Mask(intent.PayerAddress),
		"amount", amount,
		"receipt", logging.Mask(res.Receipt),
	)

	return payment.NewReceipt(
		res.Receipt,
		decimal.NewFromInt(amount),
		payment.CurrencyXP,
		intent.PayerAddress,
		intent.CreatorWallet,
		string(purchase.RailXP),
		e.now(),
	)
}
