package purchase_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/domain/purchase"
)

func validIntentInput() purchase.NewIntentInput {
	return purchase.NewIntentInput{
		ID:            "pi-1",
		AlbumID:       "ar1_a1",
		ArtistID:      "ar1",
		ArtistSlug:    "some-artist",
		CreatorWallet: "creator",
		SaleOption:    purchase.SaleDigitalPlusCollectible,
		PriceUSD:      decimal.NewFromInt(15),
		PayerAddress:  " payer ",
		PayRail:       purchase.RailSOL,
	}
}

func TestSaleOption(t *testing.T) {
	tests := map[string]struct {
		opt     purchase.SaleOption
		mint    bool
		flags   mintrequest.LicenseFlags
		nftType mintrequest.NFTType
	}{
		"digital only": {
			opt:     purchase.SaleDigitalOnly,
			mint:    false,
			nftType: mintrequest.NFTTypeAlbum,
		},
		"collectible": {
			opt:     purchase.SaleDigitalPlusCollectible,
			mint:    true,
			nftType: mintrequest.NFTTypeAlbum,
		},
		"collectible plus license": {
			opt:     purchase.SaleDigitalPlusCollectiblePlusLicense,
			mint:    true,
			flags:   mintrequest.LicenseFlags{UseCommercialLicenseT2: true},
			nftType: mintrequest.NFTTypeAlbum,
		},
		"license only": {
			opt:     purchase.SaleLicenseOnly,
			mint:    true,
			flags:   mintrequest.LicenseFlags{OnlyNeedLicenseNoNftMint: true},
			nftType: mintrequest.NFTTypeLicense,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.mint, tc.opt.RequiresMint())
			require.Equal(t, tc.flags, tc.opt.LicenseFlags())
			require.Equal(t, tc.nftType, tc.opt.NFTType())

			f := tc.opt.LicenseFlags()
			require.False(t, f.UseCommercialLicenseT2 && f.OnlyNeedLicenseNoNftMint)
		})
	}
}

func TestParse(t *testing.T) {
	rail, err := purchase.ParsePayRail(" XP ")
	require.NoError(t, err)
	require.Equal(t, purchase.RailXP, rail)

	_, err = purchase.ParsePayRail("btc")
	require.ErrorIs(t, err, purchase.ErrInvalidPayRail)

	_, err = purchase.ParseSaleOption("everything")
	require.ErrorIs(t, err, purchase.ErrInvalidSaleOption)
}

func TestNewIntent(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600))

	t.Run("ok, normalized", func(t *testing.T) {
		p, err := purchase.NewIntent(validIntentInput(), now, nil)
		require.NoError(t, err)
		require.Equal(t, "payer", p.PayerAddress)
		require.Equal(t, time.UTC, p.CreatedAt.Location())
	})

	t.Run("fail, missing wallet", func(t *testing.T) {
		in := validIntentInput()
		in.PayerAddress = "  "
		_, err := purchase.NewIntent(in, now, nil)
		require.ErrorIs(t, err, purchase.ErrMissingWallet)
	})

	t.Run("fail, zero price", func(t *testing.T) {
		in := validIntentInput()
		in.PriceUSD = decimal.Zero
		_, err := purchase.NewIntent(in, now, nil)
		require.ErrorIs(t, err, purchase.ErrInvalidPrice)
	})

	t.Run("fail, sol address rejected by validator", func(t *testing.T) {
		reject := func(addr string) error {
			if addr == "payer" {
				return errors.New("bad base58")
			}
			return nil
		}
		_, err := purchase.NewIntent(validIntentInput(), now, reject)
		require.ErrorIs(t, err, purchase.ErrInvalidPayerAddress)
	})

	t.Run("ok, validator ignored for xp", func(t *testing.T) {
		in := validIntentInput()
		in.PayRail = purchase.RailXP
		reject := func(string) error { return errors.New("bad base58") }
		_, err := purchase.NewIntent(in, now, reject)
		require.NoError(t, err)
	})
}
