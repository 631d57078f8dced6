package firestore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mintdom "musicvault/internal/domain/mintRequest"
	paymentdom "musicvault/internal/domain/payment"
)

func TestLedgerDoc_KeepsDecimalPrecision(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := paymentdom.LedgerEntry{
		ID: "p1",
		Receipt: paymentdom.Receipt{
			TransactionRef: "sig1",
			AmountPaid:     decimal.RequireFromString("0.0667"),
			Currency:       "SOL",
			Payer:          "payer",
			CreatorWallet:  "creator",
			Rail:           "sol",
			Timestamp:      at,
		},
		AlbumID:    "album-1",
		SaleOption: "digitalOnly",
		PriceUSD:   decimal.RequireFromString("9.99"),
		Task:       paymentdom.TaskBuyAlbum,
		CreatedAt:  at,
	}

	d := ledgerToDoc(e)
	assert.Equal(t, "0.0667", d.AmountPaid)
	assert.Equal(t, "9.99", d.PriceUSD)

	back, err := docToLedger(d)
	require.NoError(t, err)
	assert.True(t, back.Receipt.AmountPaid.Equal(e.Receipt.AmountPaid))
	assert.True(t, back.PriceUSD.Equal(e.PriceUSD))
	assert.Equal(t, e.Receipt.TransactionRef, back.Receipt.TransactionRef)
	assert.Equal(t, at, back.CreatedAt)
}

func TestLedgerDoc_BadDecimal(t *testing.T) {
	_, err := docToLedger(ledgerDoc{ID: "x", AmountPaid: "abc"})
	assert.Error(t, err)
}

func TestMintRequestDoc_Flags(t *testing.T) {
	m := mintdom.MintRequest{
		ID:             "sig1",
		Receipt:        paymentdom.Receipt{TransactionRef: "sig1", AmountPaid: decimal.NewFromInt(10), Currency: "USD", Payer: "p", Rail: "cc"},
		NFTType:        mintdom.NFTTypeLicense,
		AlbumID:        "a1",
		MintForAddress: "p",
		LicenseFlags:   mintdom.LicenseFlags{OnlyNeedLicenseNoNftMint: true},
	}

	d := mintToDoc(m)
	assert.True(t, d.OnlyNeedLicenseNoNftMint)
	assert.Equal(t, "license", d.NFTType)

	back, err := docToMint(d)
	require.NoError(t, err)
	assert.Equal(t, m.LicenseFlags, back.LicenseFlags)
	assert.Equal(t, m.NFTType, back.NFTType)
	assert.Equal(t, "sig1", back.Receipt.TransactionRef)
}
