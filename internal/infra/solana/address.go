// internal/infra/solana/address.go
package solana

import (
	"errors"
	"fmt"
	"strings"

	sol "github.com/gagliardetto/solana-go"
)

var ErrEmptyAddress = errors.New("solana: address is empty")

// ValidateAddress checks that s is a base58 encoded 32 byte public key.
// purchase.AddressValidator として DI から渡す。
func ValidateAddress(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyAddress
	}
	pk, err := sol.PublicKeyFromBase58(s)
	if err != nil {
		return fmt.Errorf("solana: invalid address %q: %w", s, err)
	}
	if pk.IsZero() {
		return fmt.Errorf("solana: invalid address %q: zero key", s)
	}
	return nil
}
