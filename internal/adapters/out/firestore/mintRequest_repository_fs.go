// internal/adapters/out/firestore/mintRequest_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	mintdom "musicvault/internal/domain/mintRequest"
	paymentdom "musicvault/internal/domain/payment"
)

// MintRequestRepositoryFS は mintRequests コレクションの Firestore 実装です。
// docID = receipt.transactionRef（1 支払い = 1 依頼）
type MintRequestRepositoryFS struct {
	client *firestore.Client
}

// コンパイル時チェック
var _ mintdom.Repository = (*MintRequestRepositoryFS)(nil)

func NewMintRequestRepositoryFS(client *firestore.Client) *MintRequestRepositoryFS {
	return &MintRequestRepositoryFS{client: client}
}

type mintRequestDoc struct {
	ID                       string    `firestore:"id"`
	TransactionRef           string    `firestore:"transactionRef"`
	AmountPaid               string    `firestore:"amountPaid"`
	Currency                 string    `firestore:"currency"`
	Payer                    string    `firestore:"payer"`
	Rail                     string    `firestore:"rail"`
	PaidAt                   time.Time `firestore:"paidAt"`
	NFTType                  string    `firestore:"nftType"`
	AlbumID                  string    `firestore:"albumId"`
	MintForAddress           string    `firestore:"mintForAddress"`
	CreatorWallet            string    `firestore:"creatorWallet"`
	UseCommercialLicenseT2   bool      `firestore:"useCommercialLicenseT2"`
	OnlyNeedLicenseNoNftMint bool      `firestore:"onlyNeedLicenseNoNftMint"`
	CreatedAt                time.Time `firestore:"createdAt"`
}

func (r *MintRequestRepositoryFS) collection() *firestore.CollectionRef {
	return r.client.Collection("mintRequests")
}

// Create は write-once。既に存在する場合は ErrConflict。
func (r *MintRequestRepositoryFS) Create(ctx context.Context, mr mintdom.MintRequest) (mintdom.MintRequest, error) {
	if r == nil || r.client == nil {
		return mintdom.MintRequest{}, errors.New("firestore client is nil")
	}
	id := strings.TrimSpace(mr.ID)
	if id == "" {
		return mintdom.MintRequest{}, mintdom.ErrReceiptRequired
	}

	if _, err := r.collection().Doc(id).Create(ctx, mintToDoc(mr)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return mintdom.MintRequest{}, mintdom.ErrConflict
		}
		return mintdom.MintRequest{}, err
	}
	return mr, nil
}

func (r *MintRequestRepositoryFS) GetByID(ctx context.Context, id string) (mintdom.MintRequest, error) {
	if r == nil || r.client == nil {
		return mintdom.MintRequest{}, errors.New("firestore client is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return mintdom.MintRequest{}, mintdom.ErrNotFound
	}

	snap, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return mintdom.MintRequest{}, mintdom.ErrNotFound
		}
		return mintdom.MintRequest{}, err
	}

	var d mintRequestDoc
	if err := snap.DataTo(&d); err != nil {
		return mintdom.MintRequest{}, err
	}
	if strings.TrimSpace(d.ID) == "" {
		d.ID = snap.Ref.ID
	}
	return docToMint(d)
}

// ===============================
// Mapping helpers
// ===============================

func mintToDoc(m mintdom.MintRequest) mintRequestDoc {
	return mintRequestDoc{
		ID:                       strings.TrimSpace(m.ID),
		TransactionRef:           m.Receipt.TransactionRef,
		AmountPaid:               m.Receipt.AmountPaid.String(),
		Currency:                 m.Receipt.Currency,
		Payer:                    m.Receipt.Payer,
		Rail:                     m.Receipt.Rail,
		PaidAt:                   m.Receipt.Timestamp.UTC(),
		NFTType:                  string(m.NFTType),
		AlbumID:                  m.AlbumID,
		MintForAddress:           m.MintForAddress,
		CreatorWallet:            m.CreatorWallet,
		UseCommercialLicenseT2:   m.LicenseFlags.UseCommercialLicenseT2,
		OnlyNeedLicenseNoNftMint: m.LicenseFlags.OnlyNeedLicenseNoNftMint,
		CreatedAt:                m.CreatedAt.UTC(),
	}
}

func docToMint(d mintRequestDoc) (mintdom.MintRequest, error) {
	amount, err := parseDecimal(d.AmountPaid)
	if err != nil {
		return mintdom.MintRequest{}, err
	}
	return mintdom.MintRequest{
		ID: d.ID,
		Receipt: paymentdom.Receipt{
			TransactionRef: d.TransactionRef,
			AmountPaid:     amount,
			Currency:       d.Currency,
			Payer:          d.Payer,
			CreatorWallet:  d.CreatorWallet,
			Rail:           d.Rail,
			Timestamp:      d.PaidAt.UTC(),
		},
		NFTType:        mintdom.NFTType(d.NFTType),
		AlbumID:        d.AlbumID,
		MintForAddress: d.MintForAddress,
		CreatorWallet:  d.CreatorWallet,
		LicenseFlags: mintdom.LicenseFlags{
			UseCommercialLicenseT2:   d.UseCommercialLicenseT2,
			OnlyNeedLicenseNoNftMint: d.OnlyNeedLicenseNoNftMint,
		},
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}
