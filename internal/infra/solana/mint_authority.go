// internal/infra/solana/mint_authority.go
package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretspb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/blocto/solana-go-sdk/types"
)

var ErrMintAuthorityNotConfigured = errors.New("mint_authority: secret name is empty")

// LoadMintAuthority は Secret Manager の keypair JSON（[u8;64]）から
// mint 権限ウォレット（= fee payer）を復元します。
//
// secretName には
//
//	"projects/<PROJECT_ID>/secrets/<SECRET_ID>/versions/latest"
//
// のような Secret Version のフルパスを渡す。
func LoadMintAuthority(ctx context.Context, secretName string) (types.Account, error) {
	secretName = strings.TrimSpace(secretName)
	if secretName == "" {
		return types.Account{}, ErrMintAuthorityNotConfigured
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return types.Account{}, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretspb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return types.Account{}, fmt.Errorf("AccessSecretVersion: %w", err)
	}
	if resp == nil || resp.Payload == nil {
		return types.Account{}, fmt.Errorf("AccessSecretVersion: empty payload")
	}

	acc, err := AccountFromKeypairJSON(resp.Payload.Data)
	if err != nil {
		return types.Account{}, err
	}

	slog.Info("[mint_authority] loaded mint authority",
		"secret", secretName,
		"pubkey", acc.PublicKey.ToBase58(),
	)
	return acc, nil
}

// AccountFromKeypairJSON decodes a solana-keygen keypair file.
func AccountFromKeypairJSON(data []byte) (types.Account, error) {
	key, err := decodeKeypairJSON(data)
	if err != nil {
		return types.Account{}, err
	}
	acc, err := types.AccountFromBytes(key)
	if err != nil {
		return types.Account{}, fmt.Errorf("AccountFromBytes: %w", err)
	}
	return acc, nil
}

// decodeKeypairJSON は [int,...] の配列を 64 バイトに詰め直す。
func decodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("unmarshal keypair json: %w", err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("unexpected secret key length: got %d, want %d", len(ints), ed25519.PrivateKeySize)
	}

	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair byte %d out of range: %d", i, v)
		}
		b[i] = byte(v)
	}
	return b, nil
}
