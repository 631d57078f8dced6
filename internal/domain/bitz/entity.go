// internal/domain/bitz/entity.go
package bitz

import (
	"errors"
	"strings"
	"time"
)

// TipSum は bounty ごとの power-up（XP 投げ銭）合計といいね数。
type TipSum struct {
	BountyID  string    `json:"bountyId"`
	BitsSum   int64     `json:"bitsSum"`
	Likes     int64     `json:"likes"`
	FetchedAt time.Time `json:"fetchedAt"`
}

var (
	ErrInvalidBountyID = errors.New("bitz: invalid bountyId")
	ErrInvalidAmount   = errors.New("bitz: amount must be positive")
)

// NormalizeBountyIDs trims, drops empties and dedupes, keeping first-seen order.
func NormalizeBountyIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
