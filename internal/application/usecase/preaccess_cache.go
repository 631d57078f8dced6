// internal/application/usecase/preaccess_cache.go
package usecase

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PreAccess は wallet 所有証明（nonce + 署名）。
// 取得自体はフロントエンド側の責務で、ここでは受け取った値を使い回すだけ。
type PreAccess struct {
	Nonce     string
	Signature string
}

func (p PreAccess) Valid() bool {
	return strings.TrimSpace(p.Nonce) != "" && strings.TrimSpace(p.Signature) != ""
}

// PreAccessProvider supplies the cached credential for a payer.
type PreAccessProvider interface {
	Get(ctx context.Context, payer string) (PreAccess, error)
}

// PreAccessRequirer is implemented by adapters that refuse calls without a credential.
type PreAccessRequirer interface {
	RequiresPreAccess() bool
}

func requiresPreAccess(v any) bool {
	r, ok := v.(PreAccessRequirer)
	return ok && r.RequiresPreAccess()
}

type preAccessEntry struct {
	cred      PreAccess
	expiresAt time.Time
}

// PreAccessCache keeps the latest credential per payer for ttl.
type PreAccessCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]preAccessEntry
	now     func() time.Time
}

func NewPreAccessCache(ttl time.Duration) *PreAccessCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PreAccessCache{
		ttl:     ttl,
		entries: make(map[string]preAccessEntry),
		now:     time.Now,
	}
}

// Put stores cred; invalid credentials are ignored.
func (c *PreAccessCache) Put(payer string, cred PreAccess) {
	payer = strings.TrimSpace(payer)
	if c == nil || payer == "" || !cred.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[payer] = preAccessEntry{cred: cred, expiresAt: c.now().Add(c.ttl)}

	// 期限切れの掃除
	for k, e := range c.entries {
		if e.expiresAt.Before(c.now()) {
			delete(c.entries, k)
		}
	}
}

func (c *PreAccessCache) Get(_ context.Context, payer string) (PreAccess, error) {
	if c == nil {
		return PreAccess{}, ErrPreAccessMissing
	}
	c.mu.RLock()
	e, ok := c.entries[strings.TrimSpace(payer)]
	c.mu.RUnlock()
	if !ok || e.expiresAt.Before(c.now()) {
		return PreAccess{}, ErrPreAccessMissing
	}
	return e.cred, nil
}

// preAccessCtxKey carries the credential to outbound adapters.
type preAccessCtxKey struct{}

func WithPreAccess(ctx context.Context, cred PreAccess) context.Context {
	return context.WithValue(ctx, preAccessCtxKey{}, cred)
}

func PreAccessFromContext(ctx context.Context) (PreAccess, bool) {
	cred, ok := ctx.Value(preAccessCtxKey{}).(PreAccess)
	return cred, ok && cred.Valid()
}
