// internal/infra/solana/transfer.go
package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/cenkalti/backoff/v4"

	"musicvault/internal/application/usecase"
	"musicvault/internal/infra/logging"
)

var (
	ErrTransferNotConfigured = errors.New("sol_transfer: not configured")
	ErrZeroLamports          = errors.New("sol_transfer: lamports must be > 0")
	ErrUnsigned              = errors.New("sol_transfer: transaction is not signed by the fee payer")
	ErrTransactionFailed     = errors.New("sol_transfer: transaction failed on chain")
)

// SolTransfer はネイティブ SOL 送金の組み立て・送信・確定待ちを行う。
// usecase.SolTransferBuilder / usecase.SolSubmitter を実装する。
type SolTransfer struct {
	RPC RPC

	// finalized ポーリング間隔
	PollInitial time.Duration
	PollMax     time.Duration
}

func NewSolTransfer(r RPC) *SolTransfer {
	return &SolTransfer{
		RPC:         r,
		PollInitial: 500 * time.Millisecond,
		PollMax:     5 * time.Second,
	}
}

var (
	_ usecase.SolTransferBuilder = (*SolTransfer)(nil)
	_ usecase.SolSubmitter       = (*SolTransfer)(nil)
)

// BuildTransfer returns a one-instruction transfer with from as fee payer.
// 署名はウォレット側で行うので signature スロットは空のまま。
func (t *SolTransfer) BuildTransfer(ctx context.Context, from, to string, lamports uint64) (usecase.UnsignedTransfer, error) {
	if t == nil || t.RPC == nil {
		return usecase.UnsignedTransfer{}, ErrTransferNotConfigured
	}
	if lamports == 0 {
		return usecase.UnsignedTransfer{}, ErrZeroLamports
	}
	if err := ValidateAddress(from); err != nil {
		return usecase.UnsignedTransfer{}, err
	}
	if err := ValidateAddress(to); err != nil {
		return usecase.UnsignedTransfer{}, err
	}

	latest, err := t.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return usecase.UnsignedTransfer{}, fmt.Errorf("sol_transfer: GetLatestBlockhash: %w", err)
	}

	fromPK := common.PublicKeyFromString(from)
	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        fromPK,
		RecentBlockhash: latest.Blockhash,
		Instructions: []types.Instruction{
			system.Transfer(system.TransferParam{
				From:   fromPK,
				To:     common.PublicKeyFromString(to),
				Amount: lamports,
			}),
		},
	})

	msgBytes, err := msg.Serialize()
	if err != nil {
		return usecase.UnsignedTransfer{}, fmt.Errorf("sol_transfer: serialize message: %w", err)
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{Message: msg})
	if err != nil {
		return usecase.UnsignedTransfer{}, fmt.Errorf("sol_transfer: NewTransaction: %w", err)
	}
	txBytes, err := tx.Serialize()
	if err != nil {
		return usecase.UnsignedTransfer{}, fmt.Errorf("sol_transfer: serialize tx: %w", err)
	}

	slog.Debug("[sol_transfer] built transfer",
		"from", logging.Mask(from),
		"to", logging.Mask(to),
		"lamports", lamports,
		"blockhash", latest.Blockhash,
	)

	return usecase.UnsignedTransfer{
		Message:   msgBytes,
		Tx:        txBytes,
		Blockhash: latest.Blockhash,
	}, nil
}

// Submit verifies that signedTx carries exactly expectedMessage and a valid
// fee payer signature, then sends it.
func (t *SolTransfer) Submit(ctx context.Context, signedTx []byte, expectedMessage []byte) (string, error) {
	if t == nil || t.RPC == nil {
		return "", ErrTransferNotConfigured
	}

	tx, err := types.TransactionDeserialize(signedTx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", usecase.ErrSignedTxMismatch, err)
	}

	got, err := tx.Message.Serialize()
	if err != nil {
		return "", fmt.Errorf("%w: %v", usecase.ErrSignedTxMismatch, err)
	}
	if !bytes.Equal(got, expectedMessage) {
		return "", usecase.ErrSignedTxMismatch
	}

	if len(tx.Signatures) == 0 || len(tx.Message.Accounts) == 0 {
		return "", ErrUnsigned
	}
	feePayer := tx.Message.Accounts[0].Bytes()
	if !ed25519.Verify(ed25519.PublicKey(feePayer), got, tx.Signatures[0]) {
		return "", ErrUnsigned
	}

	sig, err := t.RPC.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("sol_transfer: SendTransaction: %w", err)
	}

	slog.Info("[sol_transfer] submitted", "signature", logging.Mask(sig))
	return sig, nil
}

// WaitFinalized polls getSignatureStatuses with exponential backoff.
// ctx の期限切れはそのまま ctx.Err() を返す（呼び出し側で timeout に変換）。
func (t *SolTransfer) WaitFinalized(ctx context.Context, signature string) error {
	if t == nil || t.RPC == nil {
		return ErrTransferNotConfigured
	}

	bo := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(t.PollInitial),
		backoff.WithMaxInterval(t.PollMax),
		backoff.WithMaxElapsedTime(0),
	)

	attempts := 0
	op := func() error {
		attempts++
		st, err := t.RPC.GetSignatureStatus(ctx, signature)
		if err != nil {
			return fmt.Errorf("sol_transfer: GetSignatureStatus: %w", err)
		}
		if st == nil {
			return errors.New("sol_transfer: signature not found yet")
		}
		if st.Err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err))
		}
		if st.ConfirmationStatus == nil || *st.ConfirmationStatus != rpc.CommitmentFinalized {
			return errors.New("sol_transfer: not finalized yet")
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	slog.Info("[sol_transfer] finalized", "signature", logging.Mask(signature), "attempts", attempts)
	return nil
}
