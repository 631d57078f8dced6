// internal/application/usecase/payment_executor_cc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/logging"
)

// CardIntent is a created payment intent for the hosted card element.
type CardIntent struct {
	PaymentIntentID string
	ClientSecret    string
}

// CardIntentCreator is an outbound port (Stripe API or the backend endpoint).
type CardIntentCreator interface {
	CreateCardIntent(ctx context.Context, intent purchase.PurchaseIntent, amountUSD decimal.Decimal) (CardIntent, error)
}

// CardOutcome is delivered by the processor webhook.
// カード拒否（再入力）は hosted element 側で完結するため、ここには来ない。
type CardOutcome struct {
	Succeeded bool
	Canceled  bool
	// AmountReceived is in cents.
	AmountReceived int64
	Currency       string
	Reason         string
}

// CardPaymentExecutor はクレジットカード（Stripe Elements）レール。
type CardPaymentExecutor struct {
	creator        CardIntentCreator
	outcomes       *Rendezvous[CardOutcome]
	confirmTimeout time.Duration
	now            func() time.Time
}

func NewCardPaymentExecutor(creator CardIntentCreator, outcomes *Rendezvous[CardOutcome], confirmTimeout time.Duration) *CardPaymentExecutor {
	return &CardPaymentExecutor{
		creator:        creator,
		outcomes:       outcomes,
		confirmTimeout: confirmTimeout,
		now:            time.Now,
	}
}

func (e *CardPaymentExecutor) Rail() purchase.PayRail { return purchase.RailCC }

func (e *CardPaymentExecutor) Preflight(_ context.Context, _ purchase.PurchaseIntent, quote purchase.Quote) error {
	if e == nil || e.creator == nil || e.outcomes == nil {
		return ErrCardIntentNotAvailable
	}
	if !quote.Resolved || !quote.Amount.IsPositive() {
		return ErrQuoteUnresolved
	}
	return nil
}

func (e *CardPaymentExecutor) Execute(
	ctx context.Context,
	intent purchase.PurchaseIntent,
	quote purchase.Quote,
	sink ActionSink,
) (payment.Receipt, error) {
	if err := e.Preflight(ctx, intent, quote); err != nil {
		return payment.Receipt{}, err
	}

	ci, err := e.creator.CreateCardIntent(ctx, intent, quote.Amount)
	if err != nil {
		return payment.Receipt{}, fmt.Errorf("cc: create payment intent: %w", err)
	}
	piID := strings.TrimSpace(ci.PaymentIntentID)
	if piID == "" || strings.TrimSpace(ci.ClientSecret) == "" {
		return payment.Receipt{}, fmt.Errorf("cc: %w", ErrCardIntentNotAvailable)
	}

	waiter, err := e.outcomes.Register(piID)
	if err != nil {
		return payment.Receipt{}, fmt.Errorf("cc: register webhook wait: %w", err)
	}
	defer waiter.Release()

	if sink != nil {
		sink(purchase.Action{
			Type:      purchase.ActionConfirmCard,
			Payload:   ci.ClientSecret,
			Ref:       piID,
			ExpiresAt: e.now().Add(e.confirmTimeout),
		})
	}

	slog.InfoContext(ctx, "[cc_executor] waiting for processor callback",
		"intentId", intent.ID,
		"paymentIntentId", logging.Mask(piID),
	)

	waitCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()
	out, err := waiter.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return payment.Receipt{}, fmt.Errorf("%w: paymentIntent=%s", ErrConfirmationTimeout, piID)
		}
		return payment.Receipt{}, err
	}

	switch {
	case out.Canceled:
		return payment.Receipt{}, ErrUserRejected
	case !out.Succeeded:
		reason := strings.TrimSpace(out.Reason)
		if reason == "" {
			reason = "payment was not completed"
		}
		return payment.Receipt{}, fmt.Errorf("cc: %s", reason)
	}

	want := quote.Amount.Shift(2).Round(0).IntPart()
	if out.AmountReceived != 0 && out.AmountReceived != want {
		return payment.Receipt{}, fmt.Errorf("%w: got=%d want=%d", ErrAmountMismatch, out.AmountReceived, want)
	}

	return payment.NewReceipt(
		piID,
		quote.Amount,
		payment.CurrencyUSD,
		intent.PayerAddress,
		intent.CreatorWallet,
		string(purchase.RailCC),
		e.now(),
	)
}
