// internal/adapters/in/http/handlers/preview_handler.go
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"musicvault/internal/domain/preview"
)

type PreviewService interface {
	Stream(ctx context.Context, scope string, track preview.Track) (preview.Object, context.Context, func(), error)
	Stop(scope string) bool
}

type PreviewHandler struct {
	uc PreviewService
}

func NewPreviewHandler(uc PreviewService) *PreviewHandler {
	return &PreviewHandler{uc: uc}
}

// Routes: /previews 配下
func (h *PreviewHandler) Routes(r chi.Router) {
	r.Post("/stop", h.stop)
	r.Get("/{albumId}/{trackId}", h.stream)
}

// GET /previews/{albumId}/{trackId}?scope=...
// 同じ scope で別の曲が始まると、このレスポンスは途中で打ち切られる。
func (h *PreviewHandler) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	track, err := preview.NewTrack(chi.URLParam(r, "albumId"), chi.URLParam(r, "trackId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))

	obj, playCtx, release, err := h.uc.Stream(ctx, scope, track)
	if err != nil {
		writeErr(w, err)
		return
	}
	defer release()
	defer obj.Body.Close()

	// 停止 / 差し替え時は Body を閉じて Copy を抜ける
	stop := context.AfterFunc(playCtx, func() { _ = obj.Body.Close() })
	defer stop()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, obj.Body)
	if err != nil && playCtx.Err() == nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "[preview_handler] stream interrupted", "track", track.String(), "bytes", n, "err", err)
		return
	}
	slog.DebugContext(ctx, "[preview_handler] stream done", "track", track.String(), "bytes", n, "stopped", playCtx.Err() != nil)
}

// POST /previews/stop?scope=...
func (h *PreviewHandler) stop(w http.ResponseWriter, r *http.Request) {
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	if scope == "" {
		writeError(w, http.StatusBadRequest, "scope is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stopped": h.uc.Stop(scope)})
}
