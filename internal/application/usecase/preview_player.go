// internal/application/usecase/preview_player.go
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"musicvault/internal/domain/preview"
)

var (
	ErrPreviewScopeRequired = errors.New("preview: scope is required")
	ErrPreviewNotConfigured = errors.New("preview: repository is not configured")
)

type playback struct {
	seq    uint64
	track  preview.Track
	cancel context.CancelFunc
}

// PreviewPlayer は scope（ページ / タブ）ごとに再生中の 1 曲だけを許可します。
// 新しい曲を開始すると、同じ scope の前の曲の context がキャンセルされる。
type PreviewPlayer struct {
	mu     sync.Mutex
	seq    uint64
	active map[string]*playback
	repo   preview.Repository
}

func NewPreviewPlayer(repo preview.Repository) *PreviewPlayer {
	return &PreviewPlayer{
		active: make(map[string]*playback),
		repo:   repo,
	}
}

// Start registers track as the only one playing in scope.
// 返す release は再生終了時に呼ぶ（別の曲に置き換わっていた場合は何もしない）。
func (p *PreviewPlayer) Start(ctx context.Context, scope string, track preview.Track) (context.Context, func(), error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, nil, ErrPreviewScopeRequired
	}
	playCtx, cancel := context.WithCancel(ctx)

	// 前の曲を止めてから登録（同じロック区間）
	p.mu.Lock()
	if prev, ok := p.active[scope]; ok {
		prev.cancel()
		slog.DebugContext(ctx, "[preview] replaced", "scope", scope, "prev", prev.track.String(), "next", track.String())
	}
	p.seq++
	pb := &playback{seq: p.seq, track: track, cancel: cancel}
	p.active[scope] = pb
	p.mu.Unlock()

	release := func() {
		cancel()
		p.mu.Lock()
		defer p.mu.Unlock()
		if cur, ok := p.active[scope]; ok && cur.seq == pb.seq {
			delete(p.active, scope)
		}
	}
	return playCtx, release, nil
}

// Stop cancels whatever is playing in scope.
func (p *PreviewPlayer) Stop(scope string) bool {
	scope = strings.TrimSpace(scope)
	p.mu.Lock()
	defer p.mu.Unlock()
	pb, ok := p.active[scope]
	if !ok {
		return false
	}
	pb.cancel()
	delete(p.active, scope)
	return true
}

func (p *PreviewPlayer) NowPlaying(scope string) (preview.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pb, ok := p.active[strings.TrimSpace(scope)]
	if !ok {
		return preview.Track{}, false
	}
	return pb.track, true
}

// Stream starts track in scope and opens its object.
// 呼び出し側は obj.Body を読み終えたら Close と release を呼ぶ。
func (p *PreviewPlayer) Stream(ctx context.Context, scope string, track preview.Track) (preview.Object, context.Context, func(), error) {
	if p == nil || p.repo == nil {
		return preview.Object{}, nil, nil, ErrPreviewNotConfigured
	}
	playCtx, release, err := p.Start(ctx, scope, track)
	if err != nil {
		return preview.Object{}, nil, nil, err
	}
	obj, err := p.repo.Open(playCtx, track)
	if err != nil {
		release()
		return preview.Object{}, nil, nil, err
	}
	return obj, playCtx, release, nil
}
