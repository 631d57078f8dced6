// internal/adapters/out/db/schema.go
package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema は支払い台帳と mint 依頼のテーブル定義。
// payments は追記のみ、mint_requests は id（= transactionRef）で一意。
const Schema = `
CREATE TABLE IF NOT EXISTS payments (
  id              TEXT PRIMARY KEY,
  transaction_ref TEXT        NOT NULL,
  amount_paid     NUMERIC     NOT NULL,
  currency        TEXT        NOT NULL,
  payer           TEXT        NOT NULL,
  creator_wallet  TEXT        NOT NULL DEFAULT '',
  rail            TEXT        NOT NULL,
  paid_at         TIMESTAMPTZ NOT NULL,
  album_id        TEXT        NOT NULL,
  sale_option     TEXT        NOT NULL,
  price_usd       NUMERIC     NOT NULL,
  task            TEXT        NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS payments_payer_created_at_idx ON payments (payer, created_at DESC);

CREATE TABLE IF NOT EXISTS mint_requests (
  id                            TEXT PRIMARY KEY,
  transaction_ref               TEXT        NOT NULL,
  amount_paid                   NUMERIC     NOT NULL,
  currency                      TEXT        NOT NULL,
  payer                         TEXT        NOT NULL,
  rail                          TEXT        NOT NULL,
  paid_at                       TIMESTAMPTZ NOT NULL,
  nft_type                      TEXT        NOT NULL,
  album_id                      TEXT        NOT NULL,
  mint_for_address              TEXT        NOT NULL,
  creator_wallet                TEXT        NOT NULL DEFAULT '',
  use_commercial_license_t2     BOOLEAN     NOT NULL DEFAULT FALSE,
  only_need_license_no_nft_mint BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at                    TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("db: ensure schema: %w", err)
	}
	return nil
}
