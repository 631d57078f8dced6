package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mintdom "musicvault/internal/domain/mintRequest"
	paymentdom "musicvault/internal/domain/payment"
)

type fakeEmailClient struct {
	from, to, subject, body string
	err                     error
}

func (f *fakeEmailClient) Send(_ context.Context, from, to, subject, body string) error {
	f.from, f.to, f.subject, f.body = from, to, subject, body
	return f.err
}

func TestSupportNotifier_NotifyMintFailure(t *testing.T) {
	fc := &fakeEmailClient{}
	n := NewSupportNotifier(fc, "no-reply@musicvault.app", " support@musicvault.app ")

	req := mintdom.MintRequest{
		ID: "sig-1",
		Receipt: paymentdom.Receipt{
			TransactionRef: "sig-1",
			AmountPaid:     decimal.RequireFromString("0.0667"),
			Currency:       "SOL",
			Payer:          "payer-1",
			Rail:           "sol",
		},
		NFTType:        mintdom.NFTTypeAlbum,
		AlbumID:        "album-1",
		MintForAddress: "payer-1",
	}

	require.NoError(t, n.NotifyMintFailure(context.Background(), req, errors.New("backend 500")))
	assert.Equal(t, "support@musicvault.app", fc.to)
	assert.Contains(t, fc.subject, "sig-1")
	assert.Contains(t, fc.body, "paymentRef:     sig-1")
	assert.Contains(t, fc.body, "0.0667 SOL")
	assert.Contains(t, fc.body, "backend 500")
}

func TestSupportNotifier_Errors(t *testing.T) {
	err := NewSupportNotifier(&fakeEmailClient{}, "from", "").NotifyMintFailure(context.Background(), mintdom.MintRequest{}, nil)
	assert.ErrorIs(t, err, ErrSupportAddressEmpty)

	fc := &fakeEmailClient{err: errors.New("smtp down")}
	err = NewSupportNotifier(fc, "from", "to").NotifyMintFailure(context.Background(), mintdom.MintRequest{}, nil)
	assert.ErrorContains(t, err, "smtp down")
}
