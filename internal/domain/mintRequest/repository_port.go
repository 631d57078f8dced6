// internal/domain/mintRequest/repository_port.go
package mintrequest

import (
	"context"
	"errors"
)

// Repository は mintRequest ドメインの永続化ポートです。
type Repository interface {
	// Create は write-once。同じ ID が存在する場合は ErrConflict を返します。
	Create(ctx context.Context, mr MintRequest) (MintRequest, error)

	// GetByID は見つからない場合 ErrNotFound を返します。
	GetByID(ctx context.Context, id string) (MintRequest, error)
}

var (
	ErrNotFound = errors.New("mintRequest: not found")
	ErrConflict = errors.New("mintRequest: already exists")
)
