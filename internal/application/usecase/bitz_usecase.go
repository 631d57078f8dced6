// internal/application/usecase/bitz_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"musicvault/internal/domain/bitz"
	"musicvault/internal/infra/logging"
)

var (
	ErrBitzNotConfigured = errors.New("bitz: sums reader is not configured")
	ErrArtistIDRequired  = errors.New("bitz: artistId is required")
)

const bitzFetchTimeout = 10 * time.Second

// ============================================================
// PowerUpCache
// ============================================================

type tipSumEntry struct {
	sum       bitz.TipSum
	expiresAt time.Time
}

func (e *tipSumEntry) isExpired(now time.Time) bool {
	return e.expiresAt.Before(now)
}

// PowerUpCache は bounty ごとの TipSum を TTL 付きで保持します。
// 同じ取得が同時に走った場合は singleflight で 1 回にまとめる。
// Invalidate は epoch を進め、実行中の取得結果を cache に書き戻させない。
type PowerUpCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	cache    *lru.Cache[string, *tipSumEntry]
	group    singleflight.Group
	epoch    uint64
	inflight map[string]int
	now      func() time.Time
}

func NewPowerUpCache(size int, ttl time.Duration) *PowerUpCache {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, *tipSumEntry](size)
	if err != nil {
		// size > 0 なので起きない
		panic("failed to create LRU cache: " + err.Error())
	}
	return &PowerUpCache{
		ttl:      ttl,
		cache:    cache,
		inflight: make(map[string]int),
		now:      time.Now,
	}
}

func (c *PowerUpCache) get(bountyID string) (bitz.TipSum, bool) {
	c.mu.RLock()
	e, ok := c.cache.Get(bountyID)
	c.mu.RUnlock()
	if !ok || e.isExpired(c.now()) {
		return bitz.TipSum{}, false
	}
	return e.sum, true
}

// beginFetch registers an in-flight fetch and returns the epoch it started in.
func (c *PowerUpCache) beginFetch(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[key]++
	return c.epoch
}

func (c *PowerUpCache) endFetch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key] <= 1 {
		delete(c.inflight, key)
		return
	}
	c.inflight[key]--
}

// putAll stores sums fetched in epoch; false (nothing stored) if an invalidation happened meanwhile.
func (c *PowerUpCache) putAll(sums []bitz.TipSum, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	expiresAt := c.now().Add(c.ttl)
	for _, s := range sums {
		c.cache.Add(s.BountyID, &tipSumEntry{sum: s, expiresAt: expiresAt})
	}
	return true
}

// Invalidate drops the given bounties.
// 実行中の取得は Forget して、以降の呼び出しが古い結果に合流しないようにする。
func (c *PowerUpCache) Invalidate(bountyIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for key := range c.inflight {
		c.group.Forget(key)
	}
	for _, id := range bountyIDs {
		c.cache.Remove(strings.TrimSpace(id))
	}
}

func (c *PowerUpCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Len()
}

// ============================================================
// BitzUsecase
// ============================================================

// TipInput gives XP to a bounty (artist / album power-up).
type TipInput struct {
	Payer     string
	Recipient string
	BountyID  string
	Amount    int64
}

type BitzUsecase struct {
	cache      *PowerUpCache
	reader     bitz.SumsReader
	xp         XPLedger
	creds      PreAccessProvider
	campaignID string
}

func NewBitzUsecase(cache *PowerUpCache, reader bitz.SumsReader, xp XPLedger, creds PreAccessProvider, campaignID string) *BitzUsecase {
	return &BitzUsecase{
		cache:      cache,
		reader:     reader,
		xp:         xp,
		creds:      creds,
		campaignID: strings.TrimSpace(campaignID),
	}
}

// PowerUpsAndLikes returns one TipSum per bounty, in the order given.
func (u *BitzUsecase) PowerUpsAndLikes(ctx context.Context, artistID string, bountyIDs []string) ([]bitz.TipSum, error) {
	if u == nil || u.reader == nil || u.cache == nil {
		return nil, ErrBitzNotConfigured
	}
	artistID = strings.TrimSpace(artistID)
	if artistID == "" {
		return nil, ErrArtistIDRequired
	}
	ids := bitz.NormalizeBountyIDs(bountyIDs)
	if len(ids) == 0 {
		return []bitz.TipSum{}, nil
	}

	out := make(map[string]bitz.TipSum, len(ids))
	var misses []string
	for _, id := range ids {
		if s, ok := u.cache.get(id); ok {
			out[id] = s
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		fetched, err := u.fetch(ctx, artistID, misses)
		if err != nil {
			return nil, err
		}
		for _, s := range fetched {
			out[s.BountyID] = s
		}
	}

	result := make([]bitz.TipSum, 0, len(ids))
	for _, id := range ids {
		s, ok := out[id]
		if !ok {
			s = bitz.TipSum{BountyID: id}
		}
		result = append(result, s)
	}
	return result, nil
}

func (u *BitzUsecase) fetch(ctx context.Context, artistID string, misses []string) ([]bitz.TipSum, error) {
	sorted := slices.Clone(misses)
	slices.Sort(sorted)
	key := artistID + ":" + strings.Join(sorted, ",")

	v, err, shared := u.cache.group.Do(key, func() (any, error) {
		// 共有される取得なので呼び出し元のキャンセルに引きずられない
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bitzFetchTimeout)
		defer cancel()

		epoch := u.cache.beginFetch(key)
		defer u.cache.endFetch(key)

		sums, err := u.reader.FetchSums(fctx, artistID, sorted)
		if err != nil {
			return nil, err
		}
		now := u.cache.now().UTC()
		byID := make(map[string]bitz.TipSum, len(sums))
		for _, s := range sums {
			byID[s.BountyID] = s
		}
		// 返ってこなかった bounty は 0 件として cache する
		all := make([]bitz.TipSum, 0, len(sorted))
		for _, id := range sorted {
			s, ok := byID[id]
			if !ok {
				s = bitz.TipSum{BountyID: id}
			}
			s.FetchedAt = now
			all = append(all, s)
		}
		if !u.cache.putAll(all, epoch) {
			slog.DebugContext(ctx, "[bitz_uc] discarded sums fetched before invalidation", "artistId", artistID)
		}
		return all, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "[bitz_uc] fetch sums failed", "artistId", artistID, "bounties", len(sorted), "err", err)
		return nil, fmt.Errorf("bitz: fetch sums: %w", err)
	}
	slog.DebugContext(ctx, "[bitz_uc] fetched sums", "artistId", artistID, "bounties", len(sorted), "shared", shared)
	return v.([]bitz.TipSum), nil
}

// Tip gives XP to a bounty, then drops its cached sum.
func (u *BitzUsecase) Tip(ctx context.Context, in TipInput) (string, error) {
	if u == nil || u.xp == nil {
		return "", ErrExecutorNotConfigured
	}
	in.BountyID = strings.TrimSpace(in.BountyID)
	in.Payer = strings.TrimSpace(in.Payer)
	if in.BountyID == "" {
		return "", bitz.ErrInvalidBountyID
	}
	if in.Amount <= 0 {
		return "", bitz.ErrInvalidAmount
	}
	if in.Payer == "" {
		return "", ErrPreAccessMissing
	}

	var cred PreAccess
	if u.creds != nil {
		c, err := u.creds.Get(ctx, in.Payer)
		if err != nil {
			return "", err
		}
		cred = c
	}

	res, err := u.xp.GiveXP(ctx, GiveXPInput{
		Payer:      in.Payer,
		Recipient:  strings.TrimSpace(in.Recipient),
		Amount:     in.Amount,
		CampaignID: u.campaignID,
		BountyID:   in.BountyID,
		Cred:       cred,
	})
	if err != nil {
		return "", fmt.Errorf("bitz: give xp: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: statusCode=%d", ErrXPTransferFailed, res.StatusCode)
	}
	if strings.TrimSpace(res.Receipt) == "" {
		return "", ErrMissingReceipt
	}

	if u.cache != nil {
		u.cache.Invalidate(in.BountyID)
	}

	slog.InfoContext(ctx, "[bitz_uc] tipped",
		"bountyId", in.BountyID,
		"amount", in.Amount,
		"payer", logging.Mask(in.Payer),
	)
	return res.Receipt, nil
}

// Invalidate drops cached sums, e.g. after an external tip.
func (u *BitzUsecase) Invalidate(bountyIDs ...string) {
	if u == nil || u.cache == nil {
		return
	}
	u.cache.Invalidate(bountyIDs...)
}
