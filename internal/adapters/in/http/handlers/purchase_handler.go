// internal/adapters/in/http/handlers/purchase_handler.go
package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"musicvault/internal/application/usecase"
	"musicvault/internal/infra/logging"
)

// PurchaseService is the part of PurchaseUsecase the HTTP layer needs.
type PurchaseService interface {
	Open(ctx context.Context, in usecase.OpenPurchaseInput) (usecase.PurchaseSnapshot, error)
	Get(ctx context.Context, id string) (usecase.PurchaseSnapshot, error)
	Proceed(ctx context.Context, id string) (usecase.PurchaseSnapshot, error)
	SubmitSignature(ctx context.Context, id string, res usecase.SignatureResult) error
	Cancel(ctx context.Context, id string) error
	Reset(ctx context.Context, id string) (usecase.PurchaseSnapshot, error)
}

type PurchaseHandler struct {
	uc PurchaseService
}

func NewPurchaseHandler(uc PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{uc: uc}
}

// Routes: /purchases 配下
func (h *PurchaseHandler) Routes(r chi.Router) {
	r.Post("/", h.open)
	r.Get("/{id}", h.get)
	r.Post("/{id}/proceed", h.proceed)
	r.Post("/{id}/signature", h.signature)
	r.Post("/{id}/reset", h.reset)
	r.Delete("/{id}", h.cancel)
}

type openPurchaseRequest struct {
	AlbumID       string          `json:"albumId"`
	ArtistID      string          `json:"artistId"`
	ArtistSlug    string          `json:"artistSlug"`
	CreatorWallet string          `json:"creatorWallet"`
	SaleOption    string          `json:"saleOption"`
	PriceUSD      decimal.Decimal `json:"priceUsd"`
	PayerAddress  string          `json:"payerAddress"`
	PayRail       string          `json:"payRail"`
}

// POST /purchases
func (h *PurchaseHandler) open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req openPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	// 認証済みなら context の wallet を優先
	payer := usecase.PayerAddressFromContext(ctx)
	if payer == "" {
		payer = strings.TrimSpace(req.PayerAddress)
	}

	snap, err := h.uc.Open(ctx, usecase.OpenPurchaseInput{
		AlbumID:       req.AlbumID,
		ArtistID:      req.ArtistID,
		ArtistSlug:    req.ArtistSlug,
		CreatorWallet: req.CreatorWallet,
		SaleOption:    req.SaleOption,
		PriceUSD:      req.PriceUSD,
		PayerAddress:  payer,
		PayRail:       req.PayRail,
		PreAccess:     preAccessFromHeaders(r),
	})
	if err != nil {
		slog.InfoContext(ctx, "[purchase_handler] open rejected",
			"albumId", req.AlbumID,
			"payer", logging.Mask(payer),
			"err", err,
		)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GET /purchases/{id}
func (h *PurchaseHandler) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.uc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /purchases/{id}/proceed
// 支払い自体は非同期で進む。結果は GET でポーリングする。
func (h *PurchaseHandler) proceed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// 期限切れ後に署名し直した proof はここで受け取る
	if cred := preAccessFromHeaders(r); cred.Valid() {
		ctx = usecase.WithPreAccess(ctx, cred)
	}
	snap, err := h.uc.Proceed(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if snap.ID != "" {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "purchase": snap})
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

type signatureRequest struct {
	SignedTx string `json:"signedTx"` // base64
	Rejected bool   `json:"rejected"`
}

// POST /purchases/{id}/signature
func (h *PurchaseHandler) signature(w http.ResponseWriter, r *http.Request) {
	var req signatureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	res := usecase.SignatureResult{Rejected: req.Rejected}
	if !req.Rejected {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.SignedTx))
		if err != nil {
			writeError(w, http.StatusBadRequest, "signedTx must be base64")
			return
		}
		res.SignedTx = raw
	}

	if err := h.uc.SubmitSignature(r.Context(), chi.URLParam(r, "id"), res); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// POST /purchases/{id}/reset
func (h *PurchaseHandler) reset(w http.ResponseWriter, r *http.Request) {
	snap, err := h.uc.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if snap.ID != "" {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "purchase": snap})
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DELETE /purchases/{id}
func (h *PurchaseHandler) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
