// internal/application/usecase/rendezvous.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrRendezvousDuplicate = errors.New("rendezvous: key already registered")
	ErrRendezvousKeyEmpty  = errors.New("rendezvous: key is empty")
)

// Rendezvous は外部イベント（ウォレット署名 / Stripe webhook）と
// 処理中のワークフローを key で引き合わせます。
type Rendezvous[T any] struct {
	mu      sync.Mutex
	waiters map[string]chan T
}

func NewRendezvous[T any]() *Rendezvous[T] {
	return &Rendezvous[T]{waiters: make(map[string]chan T)}
}

// Waiter receives at most one value.
type Waiter[T any] struct {
	key   string
	ch    chan T
	owner *Rendezvous[T]
}

// Register must be called before the external party can possibly resolve key.
func (r *Rendezvous[T]) Register(key string) (*Waiter[T], error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrRendezvousKeyEmpty
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.waiters[key]; ok {
		return nil, ErrRendezvousDuplicate
	}
	ch := make(chan T, 1)
	r.waiters[key] = ch
	return &Waiter[T]{key: key, ch: ch, owner: r}, nil
}

// Resolve delivers v to the waiter for key. false if nobody is waiting.
func (r *Rendezvous[T]) Resolve(key string, v T) bool {
	key = strings.TrimSpace(key)
	r.mu.Lock()
	ch, ok := r.waiters[key]
	if ok {
		delete(r.waiters, key)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- v // buffered(1), 1 回しか送らない
	return true
}

// Pending reports whether key is registered and not yet resolved.
func (r *Rendezvous[T]) Pending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.waiters[strings.TrimSpace(key)]
	return ok
}

func (w *Waiter[T]) Key() string { return w.key }

// Wait blocks until resolved or ctx is done. The registration is released either way.
func (w *Waiter[T]) Wait(ctx context.Context) (T, error) {
	defer w.Release()
	select {
	case v := <-w.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Release drops the registration if still pending.
func (w *Waiter[T]) Release() {
	r := w.owner
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.waiters[w.key]; ok && ch == w.ch {
		delete(r.waiters, w.key)
	}
}
