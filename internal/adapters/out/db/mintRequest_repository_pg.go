// internal/adapters/out/db/mintRequest_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	dbcommon "musicvault/internal/adapters/out/db/common"
	mintdom "musicvault/internal/domain/mintRequest"
)

type MintRequestRepositoryPG struct {
	DB *sql.DB
}

var _ mintdom.Repository = (*MintRequestRepositoryPG)(nil)

func NewMintRequestRepositoryPG(db *sql.DB) *MintRequestRepositoryPG {
	return &MintRequestRepositoryPG{DB: db}
}

const mintRequestColumns = `
  id,
  transaction_ref,
  amount_paid,
  currency,
  payer,
  rail,
  paid_at,
  nft_type,
  album_id,
  mint_for_address,
  creator_wallet,
  use_commercial_license_t2,
  only_need_license_no_nft_mint,
  created_at`

// Create は write-once。一意制約違反は ErrConflict。
func (r *MintRequestRepositoryPG) Create(ctx context.Context, m mintdom.MintRequest) (mintdom.MintRequest, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	id := strings.TrimSpace(m.ID)
	if id == "" {
		return mintdom.MintRequest{}, mintdom.ErrReceiptRequired
	}

	q := `
INSERT INTO mint_requests (` + mintRequestColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,
  $8,$9,$10,$11,$12,$13,$14
)`
	_, err := run.ExecContext(ctx, q,
		id,
		m.Receipt.TransactionRef,
		m.Receipt.AmountPaid,
		m.Receipt.Currency,
		m.Receipt.Payer,
		m.Receipt.Rail,
		m.Receipt.Timestamp.UTC(),
		string(m.NFTType),
		m.AlbumID,
		m.MintForAddress,
		m.CreatorWallet,
		m.LicenseFlags.UseCommercialLicenseT2,
		m.LicenseFlags.OnlyNeedLicenseNoNftMint,
		m.CreatedAt.UTC(),
	)
	if err != nil {
		if dbcommon.IsUniqueViolation(err) {
			return mintdom.MintRequest{}, mintdom.ErrConflict
		}
		return mintdom.MintRequest{}, err
	}
	return m, nil
}

func (r *MintRequestRepositoryPG) GetByID(ctx context.Context, id string) (mintdom.MintRequest, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	q := `SELECT` + mintRequestColumns + `
FROM mint_requests
WHERE id = $1`

	var (
		m       mintdom.MintRequest
		nftType string
		paidAt  time.Time
	)
	err := run.QueryRowContext(ctx, q, strings.TrimSpace(id)).Scan(
		&m.ID,
		&m.Receipt.TransactionRef,
		&m.Receipt.AmountPaid,
		&m.Receipt.Currency,
		&m.Receipt.Payer,
		&m.Receipt.Rail,
		&paidAt,
		&nftType,
		&m.AlbumID,
		&m.MintForAddress,
		&m.CreatorWallet,
		&m.LicenseFlags.UseCommercialLicenseT2,
		&m.LicenseFlags.OnlyNeedLicenseNoNftMint,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mintdom.MintRequest{}, mintdom.ErrNotFound
		}
		return mintdom.MintRequest{}, err
	}
	m.NFTType = mintdom.NFTType(nftType)
	m.Receipt.Timestamp = paidAt.UTC()
	m.Receipt.CreatorWallet = m.CreatorWallet
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}
