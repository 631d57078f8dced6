// internal/domain/purchase/entity.go
package purchase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	mintrequest "musicvault/internal/domain/mintRequest"
)

// SaleOption はアルバム購入時の販売ティアです。
type SaleOption string

const (
	SaleDigitalOnly                       SaleOption = "digitalOnly"
	SaleDigitalPlusCollectible            SaleOption = "digitalPlusCollectible"
	SaleDigitalPlusCollectiblePlusLicense SaleOption = "digitalPlusCollectiblePlusLicense"
	SaleLicenseOnly                       SaleOption = "licenseOnly"
)

// PayRail は支払い手段です。
type PayRail string

const (
	RailSOL PayRail = "sol"
	RailCC  PayRail = "cc"
	RailXP  PayRail = "xp"
)

// Errors
var (
	ErrInvalidID           = errors.New("purchase: invalid id")
	ErrInvalidAlbumID      = errors.New("purchase: invalid albumId")
	ErrInvalidArtistID     = errors.New("purchase: invalid artistId")
	ErrInvalidSaleOption   = errors.New("purchase: invalid saleOption")
	ErrInvalidPayRail      = errors.New("purchase: invalid payRail")
	ErrInvalidPrice        = errors.New("purchase: invalid priceUSD")
	ErrMissingWallet       = errors.New("purchase: payer wallet is missing")
	ErrInvalidPayerAddress = errors.New("purchase: invalid payer address")
	ErrInvalidCreator      = errors.New("purchase: invalid creator wallet")
)

func ParseSaleOption(s string) (SaleOption, error) {
	switch v := SaleOption(strings.TrimSpace(s)); v {
	case SaleDigitalOnly, SaleDigitalPlusCollectible, SaleDigitalPlusCollectiblePlusLicense, SaleLicenseOnly:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSaleOption, s)
	}
}

func ParsePayRail(s string) (PayRail, error) {
	switch v := PayRail(strings.ToLower(strings.TrimSpace(s))); v {
	case RailSOL, RailCC, RailXP:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPayRail, s)
	}
}

// RequiresMint は digitalOnly 以外で true。
func (o SaleOption) RequiresMint() bool {
	return o != SaleDigitalOnly
}

// LicenseFlags derives the minting pathway flags from the sale option.
func (o SaleOption) LicenseFlags() mintrequest.LicenseFlags {
	switch o {
	case SaleDigitalPlusCollectiblePlusLicense:
		return mintrequest.LicenseFlags{UseCommercialLicenseT2: true}
	case SaleLicenseOnly:
		return mintrequest.LicenseFlags{OnlyNeedLicenseNoNftMint: true}
	default:
		return mintrequest.LicenseFlags{}
	}
}

func (o SaleOption) NFTType() mintrequest.NFTType {
	if o == SaleLicenseOnly {
		return mintrequest.NFTTypeLicense
	}
	return mintrequest.NFTTypeAlbum
}

// AddressValidator validates chain addresses for the SOL rail.
// infra/solana が実装する（domain はチェーン SDK に依存しない）。
type AddressValidator func(address string) error

// PurchaseIntent はユーザーが販売オプションを選んだ時点で作られる購入意図。
// 支払い開始後は不変（ワークフローが値コピーを保持する）。
type PurchaseIntent struct {
	ID            string
	AlbumID       string
	ArtistID      string
	ArtistSlug    string
	CreatorWallet string
	SaleOption    SaleOption
	PriceUSD      decimal.Decimal
	PayerAddress  string
	PayRail       PayRail
	CreatedAt     time.Time
}

// NewIntentInput is the constructor input for NewIntent.
type NewIntentInput struct {
	ID            string
	AlbumID       string
	ArtistID      string
	ArtistSlug    string
	CreatorWallet string
	SaleOption    SaleOption
	PriceUSD      decimal.Decimal
	PayerAddress  string
	PayRail       PayRail
}

// NewIntent validates and normalizes a purchase intent.
// validate が nil の場合、SOL アドレスの形式チェックは行わない。
func NewIntent(in NewIntentInput, now time.Time, validate AddressValidator) (PurchaseIntent, error) {
	p := PurchaseIntent{
		ID:            strings.TrimSpace(in.ID),
		AlbumID:       strings.TrimSpace(in.AlbumID),
		ArtistID:      strings.TrimSpace(in.ArtistID),
		ArtistSlug:    strings.TrimSpace(in.ArtistSlug),
		CreatorWallet: strings.TrimSpace(in.CreatorWallet),
		SaleOption:    in.SaleOption,
		PriceUSD:      in.PriceUSD,
		PayerAddress:  strings.TrimSpace(in.PayerAddress),
		PayRail:       in.PayRail,
		CreatedAt:     now.UTC(),
	}
	if err := p.validate(validate); err != nil {
		return PurchaseIntent{}, err
	}
	return p, nil
}

func (p PurchaseIntent) validate(validate AddressValidator) error {
	if p.ID == "" {
		return ErrInvalidID
	}
	if p.AlbumID == "" {
		return ErrInvalidAlbumID
	}
	if p.ArtistID == "" {
		return ErrInvalidArtistID
	}
	if _, err := ParseSaleOption(string(p.SaleOption)); err != nil {
		return err
	}
	if _, err := ParsePayRail(string(p.PayRail)); err != nil {
		return err
	}
	if !p.PriceUSD.IsPositive() {
		return ErrInvalidPrice
	}
	if p.PayerAddress == "" {
		return ErrMissingWallet
	}
	if p.CreatorWallet == "" {
		return ErrInvalidCreator
	}
	if p.PayRail == RailSOL && validate != nil {
		if err := validate(p.PayerAddress); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayerAddress, err)
		}
		if err := validate(p.CreatorWallet); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCreator, err)
		}
	}
	return nil
}
