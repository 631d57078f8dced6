package solana

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicvault/internal/application/usecase"
	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/domain/payment"
)

type fakeRPC struct {
	mu       sync.Mutex
	sent     []types.Transaction
	statuses []*rpc.SignatureStatus
	polls    int
	sendErr  error
}

func (f *fakeRPC) GetLatestBlockhash(context.Context) (rpc.GetLatestBlockhashValue, error) {
	return rpc.GetLatestBlockhashValue{Blockhash: "9zrUHnA1nCByPksy3aL8tQ47vqdaG2vnFs4HrxgcZj4F", LatestValidBlockHeight: 100}, nil
}

func (f *fakeRPC) GetMinimumBalanceForRentExemption(context.Context, uint64) (uint64, error) {
	return 1461600, nil
}

func (f *fakeRPC) SendTransaction(_ context.Context, tx types.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, tx)
	return "5sig", nil
}

func (f *fakeRPC) GetSignatureStatus(context.Context, string) (*rpc.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if i >= len(f.statuses) {
		if len(f.statuses) == 0 {
			return nil, nil
		}
		return f.statuses[len(f.statuses)-1], nil
	}
	return f.statuses[i], nil
}

func commitment(c rpc.Commitment) *rpc.Commitment { return &c }

func fastTransfer(r RPC) *SolTransfer {
	t := NewSolTransfer(r)
	t.PollInitial = time.Millisecond
	t.PollMax = 5 * time.Millisecond
	return t
}

func TestValidateAddress(t *testing.T) {
	acc := types.NewAccount()
	assert.NoError(t, ValidateAddress(acc.PublicKey.ToBase58()))
	assert.NoError(t, ValidateAddress("  "+acc.PublicKey.ToBase58()+" "))
	assert.ErrorIs(t, ValidateAddress(""), ErrEmptyAddress)
	assert.Error(t, ValidateAddress("not-base58-0OIl"))
	assert.Error(t, ValidateAddress("abc"))
}

func TestSolTransfer_BuildSignSubmit(t *testing.T) {
	r := &fakeRPC{}
	st := fastTransfer(r)
	payer := types.NewAccount()
	creator := types.NewAccount()

	unsigned, err := st.BuildTransfer(context.Background(), payer.PublicKey.ToBase58(), creator.PublicKey.ToBase58(), 1_500_000)
	require.NoError(t, err)
	require.NotEmpty(t, unsigned.Message)
	require.NotEmpty(t, unsigned.Tx)

	// ウォレット側の署名を再現
	tx, err := types.TransactionDeserialize(unsigned.Tx)
	require.NoError(t, err)
	signed, err := types.NewTransaction(types.NewTransactionParam{Message: tx.Message, Signers: []types.Account{payer}})
	require.NoError(t, err)
	raw, err := signed.Serialize()
	require.NoError(t, err)

	sig, err := st.Submit(context.Background(), raw, unsigned.Message)
	require.NoError(t, err)
	assert.Equal(t, "5sig", sig)
	require.Len(t, r.sent, 1)
}

func TestSolTransfer_SubmitRejectsOtherMessage(t *testing.T) {
	r := &fakeRPC{}
	st := fastTransfer(r)
	payer := types.NewAccount()

	a, err := st.BuildTransfer(context.Background(), payer.PublicKey.ToBase58(), types.NewAccount().PublicKey.ToBase58(), 1000)
	require.NoError(t, err)
	b, err := st.BuildTransfer(context.Background(), payer.PublicKey.ToBase58(), types.NewAccount().PublicKey.ToBase58(), 1000)
	require.NoError(t, err)

	tx, err := types.TransactionDeserialize(b.Tx)
	require.NoError(t, err)
	signed, err := types.NewTransaction(types.NewTransactionParam{Message: tx.Message, Signers: []types.Account{payer}})
	require.NoError(t, err)
	raw, err := signed.Serialize()
	require.NoError(t, err)

	_, err = st.Submit(context.Background(), raw, a.Message)
	assert.ErrorIs(t, err, usecase.ErrSignedTxMismatch)
	assert.Empty(t, r.sent)

	_, err = st.Submit(context.Background(), []byte{0x01, 0x02}, a.Message)
	assert.ErrorIs(t, err, usecase.ErrSignedTxMismatch)
}

func TestSolTransfer_SubmitRejectsUnsigned(t *testing.T) {
	r := &fakeRPC{}
	st := fastTransfer(r)

	u, err := st.BuildTransfer(context.Background(), types.NewAccount().PublicKey.ToBase58(), types.NewAccount().PublicKey.ToBase58(), 1000)
	require.NoError(t, err)

	_, err = st.Submit(context.Background(), u.Tx, u.Message)
	assert.ErrorIs(t, err, ErrUnsigned)
	assert.Empty(t, r.sent)
}

func TestSolTransfer_BuildValidation(t *testing.T) {
	st := fastTransfer(&fakeRPC{})
	a := types.NewAccount().PublicKey.ToBase58()

	_, err := st.BuildTransfer(context.Background(), a, a, 0)
	assert.ErrorIs(t, err, ErrZeroLamports)

	_, err = st.BuildTransfer(context.Background(), "", a, 1)
	assert.ErrorIs(t, err, ErrEmptyAddress)

	var nilT *SolTransfer
	_, err = nilT.BuildTransfer(context.Background(), a, a, 1)
	assert.ErrorIs(t, err, ErrTransferNotConfigured)
}

func TestSolTransfer_WaitFinalized(t *testing.T) {
	r := &fakeRPC{statuses: []*rpc.SignatureStatus{
		nil,
		{Slot: 1, ConfirmationStatus: commitment(rpc.CommitmentProcessed)},
		{Slot: 1, ConfirmationStatus: commitment(rpc.CommitmentConfirmed)},
		{Slot: 1, ConfirmationStatus: commitment(rpc.CommitmentFinalized)},
	}}
	st := fastTransfer(r)

	require.NoError(t, st.WaitFinalized(context.Background(), "5sig"))
	assert.Equal(t, 4, r.polls)
}

func TestSolTransfer_WaitFinalized_TxError(t *testing.T) {
	r := &fakeRPC{statuses: []*rpc.SignatureStatus{
		{Slot: 1, ConfirmationStatus: commitment(rpc.CommitmentConfirmed), Err: map[string]any{"InstructionError": []any{0, "Custom"}}},
	}}
	st := fastTransfer(r)

	err := st.WaitFinalized(context.Background(), "5sig")
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Equal(t, 1, r.polls)
}

func TestSolTransfer_WaitFinalized_Deadline(t *testing.T) {
	r := &fakeRPC{statuses: []*rpc.SignatureStatus{
		{Slot: 1, ConfirmationStatus: commitment(rpc.CommitmentConfirmed)},
	}}
	st := fastTransfer(r)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := st.WaitFinalized(ctx, "5sig")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAccountFromKeypairJSON(t *testing.T) {
	acc := types.NewAccount()
	ints := make([]int, len(acc.PrivateKey))
	for i, b := range acc.PrivateKey {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	got, err := AccountFromKeypairJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, acc.PublicKey, got.PublicKey)

	_, err = AccountFromKeypairJSON([]byte(`[1,2,3]`))
	assert.Error(t, err)
	_, err = AccountFromKeypairJSON([]byte(`{}`))
	assert.Error(t, err)
}

func testMintRequest(t *testing.T, flags mintrequest.LicenseFlags, nftType mintrequest.NFTType) mintrequest.MintRequest {
	t.Helper()
	owner := types.NewAccount().PublicKey.ToBase58()
	rcpt, err := payment.NewReceipt("tx-1", decimal.RequireFromString("0.25"), "SOL", owner, types.NewAccount().PublicKey.ToBase58(), "sol", time.Now())
	require.NoError(t, err)
	req, err := mintrequest.New(rcpt, nftType, "album-1", owner, flags, time.Now())
	require.NoError(t, err)
	return req
}

func TestOnchainMinter_Mint(t *testing.T) {
	r := &fakeRPC{}
	m := NewOnchainMinter(r, types.NewAccount(), "https://meta.example/")

	ack, err := m.Mint(context.Background(), testMintRequest(t, mintrequest.LicenseFlags{}, mintrequest.NFTTypeAlbum))
	require.NoError(t, err)
	assert.Equal(t, "tx-1", ack.RequestID)
	assert.Equal(t, "5sig", ack.Signature)
	assert.NotEmpty(t, ack.MintAddr)
	require.Len(t, r.sent, 1)
	assert.Len(t, r.sent[0].Signatures, 2)
}

func TestOnchainMinter_LicenseOnlySkipsChain(t *testing.T) {
	r := &fakeRPC{}
	m := NewOnchainMinter(r, types.NewAccount(), "https://meta.example")

	ack, err := m.Mint(context.Background(), testMintRequest(t, mintrequest.LicenseFlags{OnlyNeedLicenseNoNftMint: true}, mintrequest.NFTTypeLicense))
	require.NoError(t, err)
	assert.Equal(t, "tx-1", ack.RequestID)
	assert.Empty(t, ack.Signature)
	assert.Empty(t, r.sent)
}

func TestOnchainMinter_SendError(t *testing.T) {
	r := &fakeRPC{sendErr: errors.New("rpc down")}
	m := NewOnchainMinter(r, types.NewAccount(), "https://meta.example")

	_, err := m.Mint(context.Background(), testMintRequest(t, mintrequest.LicenseFlags{}, mintrequest.NFTTypeAlbum))
	assert.ErrorContains(t, err, "rpc down")

	_, err = NewOnchainMinter(nil, types.Account{}, "").Mint(context.Background(), mintrequest.MintRequest{})
	assert.ErrorIs(t, err, ErrMinterNotConfigured)
}

func TestNFTName(t *testing.T) {
	req := mintrequest.MintRequest{AlbumID: "a-very-long-album-identifier-0123456789", NFTType: mintrequest.NFTTypeAlbum}
	assert.Len(t, nftName(req), maxNameLen)

	req = mintrequest.MintRequest{AlbumID: "x", NFTType: mintrequest.NFTTypeAlbum, LicenseFlags: mintrequest.LicenseFlags{UseCommercialLicenseT2: true}}
	assert.Equal(t, "T2 album x", nftName(req))
}
