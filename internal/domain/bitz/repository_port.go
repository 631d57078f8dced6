// internal/domain/bitz/repository_port.go
package bitz

import "context"

// SumsReader fetches tip sums for bounties of one artist from the XP backend.
type SumsReader interface {
	FetchSums(ctx context.Context, artistID string, bountyIDs []string) ([]TipSum, error)
}
