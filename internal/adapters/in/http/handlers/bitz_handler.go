// internal/adapters/in/http/handlers/bitz_handler.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"musicvault/internal/application/usecase"
	"musicvault/internal/domain/bitz"
)

type BitzService interface {
	PowerUpsAndLikes(ctx context.Context, artistID string, bountyIDs []string) ([]bitz.TipSum, error)
	Tip(ctx context.Context, in usecase.TipInput) (string, error)
}

// PreAccessStore keeps the wallet proof for the XP API calls made later.
type PreAccessStore interface {
	Put(payer string, cred usecase.PreAccess)
}

type BitzHandler struct {
	uc    BitzService
	creds PreAccessStore
}

func NewBitzHandler(uc BitzService, creds PreAccessStore) *BitzHandler {
	return &BitzHandler{uc: uc, creds: creds}
}

// Routes: /bitz 配下。tip は認証付き。
func (h *BitzHandler) Routes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/artists/{artistId}/powerups", h.powerUps)
	r.With(auth).Post("/tips", h.tip)
}

// GET /bitz/artists/{artistId}/powerups?bountyId=a&bountyId=b （カンマ区切りも可）
func (h *BitzHandler) powerUps(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["bountyId"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				ids = append(ids, p)
			}
		}
	}

	sums, err := h.uc.PowerUpsAndLikes(r.Context(), chi.URLParam(r, "artistId"), ids)
	if err != nil {
		writeErr(w, err)
		return
	}
	if sums == nil {
		sums = []bitz.TipSum{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sums})
}

type tipRequest struct {
	BountyID     string `json:"bountyId"`
	Recipient    string `json:"recipient"`
	Amount       int64  `json:"amount"`
	PayerAddress string `json:"payerAddress"`
}

// POST /bitz/tips
func (h *BitzHandler) tip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	payer := usecase.PayerAddressFromContext(ctx)
	if payer == "" {
		payer = strings.TrimSpace(req.PayerAddress)
	}
	if h.creds != nil {
		h.creds.Put(payer, preAccessFromHeaders(r))
	}

	receipt, err := h.uc.Tip(ctx, usecase.TipInput{
		Payer:     payer,
		Recipient: req.Recipient,
		BountyID:  req.BountyID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipt": receipt})
}
