// internal/domain/mintRequest/entity.go
package mintrequest

import (
	"errors"
	"strings"
	"time"

	"musicvault/internal/domain/payment"
)

// NFTType mirrors the minting backend's nftType field.
type NFTType string

const (
	NFTTypeAlbum   NFTType = "album"
	NFTTypeLicense NFTType = "license"
	NFTTypeFan     NFTType = "fan"
)

func IsValidNFTType(t NFTType) bool {
	switch t {
	case NFTTypeAlbum, NFTTypeLicense, NFTTypeFan:
		return true
	default:
		return false
	}
}

// LicenseFlags selects the backend minting pathway.
// 2つのフラグは排他（どちらか一方、または両方 false）。
type LicenseFlags struct {
	UseCommercialLicenseT2   bool `json:"useCommercialLicenseT2,omitempty"`
	OnlyNeedLicenseNoNftMint bool `json:"onlyNeedLicenseNoNftMint,omitempty"`
}

func (f LicenseFlags) Any() bool {
	return f.UseCommercialLicenseT2 || f.OnlyNeedLicenseNoNftMint
}

var (
	ErrReceiptRequired        = errors.New("mintRequest: payment receipt is required")
	ErrAlbumIDRequired        = errors.New("mintRequest: albumId is required")
	ErrMintForAddressRequired = errors.New("mintRequest: mintForAddress is required")
	ErrInvalidNFTType         = errors.New("mintRequest: invalid nftType")
	ErrExclusiveLicenseFlags  = errors.New("mintRequest: license flags are mutually exclusive")
)

// MintRequest は支払い確定後に 1 回だけ送信される mint 依頼です。
// ID は receipt.TransactionRef と同一（1 支払い = 1 依頼）。
type MintRequest struct {
	ID             string          `json:"id"`
	Receipt        payment.Receipt `json:"paymentReceipt"`
	NFTType        NFTType         `json:"nftType"`
	AlbumID        string          `json:"albumId"`
	MintForAddress string          `json:"mintForAddress"`
	CreatorWallet  string          `json:"creatorWallet"`
	LicenseFlags   LicenseFlags    `json:"licenseFlags"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// New builds a MintRequest. A receipt is mandatory.
func New(
	receipt payment.Receipt,
	nftType NFTType,
	albumID string,
	mintForAddress string,
	flags LicenseFlags,
	now time.Time,
) (MintRequest, error) {
	if receipt.IsZero() {
		return MintRequest{}, ErrReceiptRequired
	}
	if !IsValidNFTType(nftType) {
		return MintRequest{}, ErrInvalidNFTType
	}
	if flags.UseCommercialLicenseT2 && flags.OnlyNeedLicenseNoNftMint {
		return MintRequest{}, ErrExclusiveLicenseFlags
	}
	mr := MintRequest{
		ID:             receipt.TransactionRef,
		Receipt:        receipt,
		NFTType:        nftType,
		AlbumID:        strings.TrimSpace(albumID),
		MintForAddress: strings.TrimSpace(mintForAddress),
		CreatorWallet:  receipt.CreatorWallet,
		LicenseFlags:   flags,
		CreatedAt:      now.UTC(),
	}
	if mr.AlbumID == "" {
		return MintRequest{}, ErrAlbumIDRequired
	}
	if mr.MintForAddress == "" {
		return MintRequest{}, ErrMintForAddressRequired
	}
	return mr, nil
}

// MintAck is the minting backend's acknowledgement.
type MintAck struct {
	RequestID string    `json:"requestId"`
	Signature string    `json:"signature,omitempty"` // on-chain mint のみ
	MintAddr  string    `json:"mintAddress,omitempty"`
	At        time.Time `json:"at"`
}
