// internal/application/usecase/payment_executor.go
package usecase

import (
	"context"
	"errors"

	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
)

// ActionSink publishes the pending external step (wallet prompt / card element)
// to the workflow snapshot.
type ActionSink func(purchase.Action)

// PaymentExecutor is implemented once per pay rail.
//
// 成功時は必ず正規化済みの payment.Receipt を返す。
// mint はここでは絶対に行わない（ワークフローの次段階）。
type PaymentExecutor interface {
	Rail() purchase.PayRail

	// Preflight はネットワークを伴う事前チェック（残高など）。
	// 失敗しても状態遷移は起こらない。
	Preflight(ctx context.Context, intent purchase.PurchaseIntent, quote purchase.Quote) error

	Execute(ctx context.Context, intent purchase.PurchaseIntent, quote purchase.Quote, sink ActionSink) (payment.Receipt, error)
}

// Pre-flight errors: block Proceed, no transition.
var (
	ErrQuoteUnresolved        = errors.New("payment: price is not resolved")
	ErrInsufficientXP         = errors.New("payment: not enough XP")
	ErrExecutorNotConfigured  = errors.New("payment: executor is not configured")
	ErrServiceWalletMissing   = errors.New("payment: service wallet is not configured")
	ErrPreAccessMissing       = errors.New("payment: pre-access credential is missing")
	ErrCardIntentNotAvailable = errors.New("payment: card payment intent is not available")
)

// Execution errors.
var (
	// ErrUserRejected: ウォレット署名拒否 / カード決済キャンセル。どのレールでも idle に戻す。
	ErrUserRejected = errors.New("payment: rejected by user")

	// ErrConfirmationTimeout は「まだ確定していない」可能性がある失敗。自動リトライしない。
	ErrConfirmationTimeout = errors.New("payment: confirmation timed out")

	ErrSignedTxMismatch = errors.New("payment: signed transaction does not match the prepared transfer")
	ErrXPTransferFailed = errors.New("payment: xp transfer failed")
	ErrMissingReceipt   = errors.New("payment: response carried no receipt")
	ErrAmountMismatch   = errors.New("payment: captured amount differs from quote")
)
