// internal/application/usecase/payment_executor_sol.go
package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/logging"
)

// UnsignedTransfer is a prepared, unsigned native SOL transfer.
type UnsignedTransfer struct {
	// Message はウォレットが署名すべきメッセージのシリアライズ結果
	Message []byte
	// Tx は署名スロットが空のトランザクション（ウォレットへ渡す）
	Tx        []byte
	Blockhash string
}

// SolTransferBuilder builds a single native transfer instruction.
type SolTransferBuilder interface {
	BuildTransfer(ctx context.Context, from, to string, lamports uint64) (UnsignedTransfer, error)
}

// SolSubmitter submits a signed transaction and waits for finalization.
type SolSubmitter interface {
	// Submit は署名済み tx のメッセージが expectedMessage と一致することを検証してから送信する。
	// 不一致は ErrSignedTxMismatch。
	Submit(ctx context.Context, signedTx []byte, expectedMessage []byte) (signature string, err error)

	// WaitFinalized polls until the signature is finalized or ctx is done.
	WaitFinalized(ctx context.Context, signature string) error
}

// SignatureResult is what the wallet prompt returns.
type SignatureResult struct {
	SignedTx []byte
	Rejected bool
}

// recent blockhash は 60-90 秒ほどで失効するので、署名待ちはその内側に収める
const defaultSignTimeout = 60 * time.Second

// SolPaymentExecutor は SOL のネイティブ送金レール。
type SolPaymentExecutor struct {
	builder        SolTransferBuilder
	submitter      SolSubmitter
	signatures     *Rendezvous[SignatureResult]
	serviceWallet  string
	signTimeout    time.Duration
	confirmTimeout time.Duration
	now            func() time.Time
}

func NewSolPaymentExecutor(
	builder SolTransferBuilder,
	submitter SolSubmitter,
	signatures *Rendezvous[SignatureResult],
	serviceWallet string,
	confirmTimeout time.Duration,
) *SolPaymentExecutor {
	return &SolPaymentExecutor{
		builder:        builder,
		submitter:      submitter,
		signatures:     signatures,
		serviceWallet:  strings.TrimSpace(serviceWallet),
		signTimeout:    defaultSignTimeout,
		confirmTimeout: confirmTimeout,
		now:            time.Now,
	}
}

func (e *SolPaymentExecutor) Rail() purchase.PayRail { return purchase.RailSOL }

func (e *SolPaymentExecutor) Preflight(_ context.Context, _ purchase.PurchaseIntent, quote purchase.Quote) error {
	if e == nil || e.builder == nil || e.submitter == nil || e.signatures == nil {
		return ErrExecutorNotConfigured
	}
	if e.serviceWallet == "" {
		return ErrServiceWalletMissing
	}
	if !quote.Resolved || quote.Lamports == 0 {
		return ErrQuoteUnresolved
	}
	return nil
}

func (e *SolPaymentExecutor) Execute(
	ctx context.Context,
	intent purchase.PurchaseIntent,
	quote purchase.Quote,
	sink ActionSink,
) (payment.Receipt, error) {
	if err := e.Preflight(ctx, intent, quote); err != nil {
		return payment.Receipt{}, err
	}

	// 1) 未署名の送金 tx を組み立てる（表示額と同じ lamports）
	prepared, err := e.builder.BuildTransfer(ctx, intent.PayerAddress, e.serviceWallet, quote.Lamports)
	if err != nil {
		return payment.Receipt{}, fmt.Errorf("sol: build transfer: %w", err)
	}

	// 2) 署名待ちを登録してからクライアントへ提示する
	waiter, err := e.signatures.Register(intent.ID)
	if err != nil {
		return payment.Receipt{}, fmt.Errorf("sol: register signature wait: %w", err)
	}
	defer waiter.Release()

	if sink != nil {
		sink(purchase.Action{
			Type:      purchase.ActionSignTransaction,
			Payload:   base64.StdEncoding.EncodeToString(prepared.Tx),
			Ref:       prepared.Blockhash,
			ExpiresAt: e.now().Add(e.signTimeout),
		})
	}

	slog.InfoContext(ctx, "[sol_executor] waiting for wallet signature",
		"intentId", intent.ID,
		"payer", logging.Mask(intent.PayerAddress),
		"lamports", quote.Lamports,
	)

	signCtx, cancel := context.WithTimeout(ctx, e.signTimeout)
	res, err := waiter.Wait(signCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// 署名されないまま期限切れ。資金は動いていないのでユーザー中断扱い
			return payment.Receipt{}, fmt.Errorf("%w: signature prompt expired", ErrUserRejected)
		}
		return payment.Receipt{}, err
	}
	if res.Rejected {
		return payment.Receipt{}, ErrUserRejected
	}

	// 3) 送信（メッセージ一致を検証）
	sig, err := e.submitter.Submit(ctx, res.SignedTx, prepared.Message)
	if err != nil {
		return payment.Receipt{}, fmt.Errorf("sol: submit: %w", err)
	}

	slog.InfoContext(ctx, "[sol_executor] submitted", "intentId", intent.ID, "signature", logging.Mask(sig))

	// 4) finalized までポーリング（上限あり）
	confirmCtx, cancelConfirm := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancelConfirm()
	if err := e.submitter.WaitFinalized(confirmCtx, sig); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrConfirmationTimeout) {
			return payment.Receipt{}, fmt.Errorf("%w: signature=%s", ErrConfirmationTimeout, sig)
		}
		return payment.Receipt{}, fmt.Errorf("sol: confirm: %w", err)
	}

	return payment.NewReceipt(
		sig,
		quote.Amount,
		payment.CurrencySOL,
		intent.PayerAddress,
		intent.CreatorWallet,
		string(purchase.RailSOL),
		e.now(),
	)
}
