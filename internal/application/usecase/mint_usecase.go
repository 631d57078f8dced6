// internal/application/usecase/mint_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/logging"
)

// ============================================================
// Ports
// ============================================================

// Minter は実際の mint を行うアウトバウンドポート。
// 実装: HTTP minting endpoint / on-chain (Metaplex)
type Minter interface {
	Mint(ctx context.Context, req mintrequest.MintRequest) (mintrequest.MintAck, error)
}

// SupportNotifier tells support that a paid purchase could not be minted.
type SupportNotifier interface {
	NotifyMintFailure(ctx context.Context, req mintrequest.MintRequest, cause error) error
}

var (
	ErrMintNotConfigured = errors.New("mint: minter is not configured")
	ErrMintNotRequired   = errors.New("mint: sale option does not require minting")
	ErrMintAlreadySent   = errors.New("mint: request for this payment was already submitted")
)

// ============================================================
// MintUsecase 本体
// ============================================================

// MintUsecase は支払い済み receipt を根拠に mint を 1 回だけ依頼します。
// 失敗時は自動リトライ・返金を行わず、サポートへ通知するだけ。
type MintUsecase struct {
	minter   Minter
	repo     mintrequest.Repository // nil 可
	notifier SupportNotifier        // nil 可
	creds    PreAccessProvider      // nil 可
	now      func() time.Time
}

func NewMintUsecase(
	minter Minter,
	repo mintrequest.Repository,
	notifier SupportNotifier,
	creds PreAccessProvider,
) *MintUsecase {
	return &MintUsecase{
		minter:   minter,
		repo:     repo,
		notifier: notifier,
		creds:    creds,
		now:      time.Now,
	}
}

// Ready is false when no minter is wired; minting sale options must not be paid for then.
func (u *MintUsecase) Ready() bool {
	return u != nil && u.minter != nil
}

func (u *MintUsecase) RequiresPreAccess() bool {
	return u != nil && requiresPreAccess(u.minter)
}

func (u *MintUsecase) Mint(ctx context.Context, receipt payment.Receipt, intent purchase.PurchaseIntent) (mintrequest.MintAck, error) {
	if u == nil || u.minter == nil {
		return mintrequest.MintAck{}, ErrMintNotConfigured
	}
	if !intent.SaleOption.RequiresMint() {
		return mintrequest.MintAck{}, ErrMintNotRequired
	}

	req, err := mintrequest.New(
		receipt,
		intent.SaleOption.NFTType(),
		intent.AlbumID,
		intent.PayerAddress,
		intent.SaleOption.LicenseFlags(),
		u.now(),
	)
	if err != nil {
		return mintrequest.MintAck{}, err
	}

	// write-once（同じ支払いで二重に依頼しない）
	if u.repo != nil {
		if _, err := u.repo.Create(ctx, req); err != nil {
			if errors.Is(err, mintrequest.ErrConflict) {
				return mintrequest.MintAck{}, fmt.Errorf("%w: paymentRef=%s", ErrMintAlreadySent, receipt.TransactionRef)
			}
			return mintrequest.MintAck{}, u.fail(ctx, req, fmt.Errorf("mint: persist request: %w", err))
		}
	}

	if _, ok := PreAccessFromContext(ctx); !ok && u.creds != nil {
		if cred, err := u.creds.Get(ctx, intent.PayerAddress); err == nil {
			ctx = WithPreAccess(ctx, cred)
		}
	}

	ack, err := u.minter.Mint(ctx, req)
	if err != nil {
		return mintrequest.MintAck{}, u.fail(ctx, req, fmt.Errorf("mint: %w", err))
	}
	if ack.RequestID == "" {
		ack.RequestID = req.ID
	}
	if ack.At.IsZero() {
		ack.At = u.now().UTC()
	}

	slog.InfoContext(ctx, "[mint_uc] minted",
		"intentId", intent.ID,
		"nftType", req.NFTType,
		"paymentRef", logging.Mask(receipt.TransactionRef),
		"mintFor", logging.Mask(req.MintForAddress),
	)
	return ack, nil
}

// fail は best-effort でサポートへ通知し、元のエラーを返す。
func (u *MintUsecase) fail(ctx context.Context, req mintrequest.MintRequest, cause error) error {
	slog.ErrorContext(ctx, "[mint_uc] mint failed after captured payment",
		"paymentRef", req.Receipt.TransactionRef,
		"albumId", req.AlbumID,
		"mintFor", logging.Mask(req.MintForAddress),
		"err", cause,
	)
	if u.notifier != nil {
		if nerr := u.notifier.NotifyMintFailure(ctx, req, cause); nerr != nil {
			slog.WarnContext(ctx, "[mint_uc] support notification failed", "err", nerr)
		}
	}
	return cause
}
