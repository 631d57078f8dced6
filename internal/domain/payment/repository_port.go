// internal/domain/payment/repository_port.go
package payment

import (
	"context"
	"time"
)

// RepositoryPort は支払い台帳の永続化ポートです。
type RepositoryPort interface {
	// Create は 1 呼び出しにつき 1 行を追加します（冪等ではありません）。
	Create(ctx context.Context, e LedgerEntry) (LedgerEntry, error)

	// ListByPayer returns entries for payer with from <= CreatedAt < to, newest first.
	// 支払い済みだが台帳に載っていないケースの手動照合用。
	ListByPayer(ctx context.Context, payer string, from, to time.Time) ([]LedgerEntry, error)
}
