// internal/infra/solana/rpc.go
package solana

import (
	"context"
	"strings"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

// RPC は本パッケージが使う JSON-RPC のサブセット。
// *client.Client がそのまま満たす。
type RPC interface {
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (string, error)
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
}

// ResolveRPCURL falls back to devnet when url is empty.
func ResolveRPCURL(url string) string {
	if u := strings.TrimSpace(url); u != "" {
		return u
	}
	return rpc.DevnetRPCEndpoint
}

// NewRPC returns a blocto client for url (devnet when empty).
func NewRPC(url string) *client.Client {
	return client.NewClient(ResolveRPCURL(url))
}

var _ RPC = (*client.Client)(nil)
