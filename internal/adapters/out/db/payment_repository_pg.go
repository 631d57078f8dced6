// internal/adapters/out/db/payment_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbcommon "musicvault/internal/adapters/out/db/common"
	paymentdom "musicvault/internal/domain/payment"
)

// PaymentRepositoryPG は支払い台帳の Postgres 実装（PAYMENT_LOG_SINK=postgres）。
type PaymentRepositoryPG struct {
	DB *sql.DB
}

var _ paymentdom.RepositoryPort = (*PaymentRepositoryPG)(nil)

func NewPaymentRepositoryPG(db *sql.DB) *PaymentRepositoryPG {
	return &PaymentRepositoryPG{DB: db}
}

const paymentColumns = `
  id,
  transaction_ref,
  amount_paid,
  currency,
  payer,
  creator_wallet,
  rail,
  paid_at,
  album_id,
  sale_option,
  price_usd,
  task,
  created_at`

// Create appends one row. ID が空ならここで採番する。
func (r *PaymentRepositoryPG) Create(ctx context.Context, e paymentdom.LedgerEntry) (paymentdom.LedgerEntry, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	q := `
INSERT INTO payments (` + paymentColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,
  $8,$9,$10,$11,$12,$13
)
RETURNING` + paymentColumns

	row := run.QueryRowContext(ctx, q,
		strings.TrimSpace(e.ID),
		e.Receipt.TransactionRef,
		e.Receipt.AmountPaid,
		e.Receipt.Currency,
		e.Receipt.Payer,
		e.Receipt.CreatorWallet,
		e.Receipt.Rail,
		e.Receipt.Timestamp.UTC(),
		e.AlbumID,
		e.SaleOption,
		e.PriceUSD,
		e.Task,
		e.CreatedAt.UTC(),
	)

	out, err := scanLedgerEntry(row)
	if err != nil {
		return paymentdom.LedgerEntry{}, fmt.Errorf("payments: insert: %w", err)
	}
	return out, nil
}

// ListByPayer: from <= created_at < to, newest first.
func (r *PaymentRepositoryPG) ListByPayer(ctx context.Context, payer string, from, to time.Time) ([]paymentdom.LedgerEntry, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	q := `
SELECT` + paymentColumns + `
FROM payments
WHERE payer = $1
  AND created_at >= $2
  AND created_at < $3
ORDER BY created_at DESC
`
	rows, err := run.QueryContext(ctx, q, strings.TrimSpace(payer), from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]paymentdom.LedgerEntry, 0, 8)
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanLedgerEntry(s dbcommon.RowScanner) (paymentdom.LedgerEntry, error) {
	var (
		e      paymentdom.LedgerEntry
		paidAt time.Time
	)
	if err := s.Scan(
		&e.ID,
		&e.Receipt.TransactionRef,
		&e.Receipt.AmountPaid,
		&e.Receipt.Currency,
		&e.Receipt.Payer,
		&e.Receipt.CreatorWallet,
		&e.Receipt.Rail,
		&paidAt,
		&e.AlbumID,
		&e.SaleOption,
		&e.PriceUSD,
		&e.Task,
		&e.CreatedAt,
	); err != nil {
		return paymentdom.LedgerEntry{}, err
	}
	e.Receipt.Timestamp = paidAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
