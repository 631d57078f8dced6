// internal/adapters/in/http/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"musicvault/internal/application/usecase"
	"musicvault/internal/domain/bitz"
	"musicvault/internal/domain/preview"
	"musicvault/internal/domain/purchase"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeErr maps usecase / domain errors to a status.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

var errEmptyBody = errors.New("request body is empty")

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, usecase.ErrPurchaseNotFound),
		errors.Is(err, preview.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, usecase.ErrPurchaseDuplicate),
		errors.Is(err, usecase.ErrPurchaseInProgress),
		errors.Is(err, usecase.ErrPurchaseClosed),
		errors.Is(err, usecase.ErrPurchaseNotIdle),
		errors.Is(err, usecase.ErrPurchaseNotFailed),
		errors.Is(err, usecase.ErrSupportRequired),
		errors.Is(err, usecase.ErrNoPendingSignature),
		errors.Is(err, purchase.ErrInvalidTransition):
		return http.StatusConflict

	case errors.Is(err, usecase.ErrPreAccessMissing):
		return http.StatusUnauthorized

	case errors.Is(err, usecase.ErrInsufficientXP):
		return http.StatusPaymentRequired

	case errors.Is(err, usecase.ErrUnsupportedRail),
		errors.Is(err, usecase.ErrInvalidSignedTxBody),
		errors.Is(err, usecase.ErrArtistIDRequired),
		errors.Is(err, usecase.ErrPreviewScopeRequired),
		errors.Is(err, usecase.ErrInvalidLedgerRange),
		errors.Is(err, usecase.ErrQuoteUnresolved),
		errors.Is(err, usecase.ErrAmountTooSmall),
		errors.Is(err, purchase.ErrInvalidID),
		errors.Is(err, purchase.ErrInvalidAlbumID),
		errors.Is(err, purchase.ErrInvalidArtistID),
		errors.Is(err, purchase.ErrInvalidSaleOption),
		errors.Is(err, purchase.ErrInvalidPayRail),
		errors.Is(err, purchase.ErrInvalidPrice),
		errors.Is(err, purchase.ErrMissingWallet),
		errors.Is(err, purchase.ErrInvalidPayerAddress),
		errors.Is(err, purchase.ErrInvalidCreator),
		errors.Is(err, bitz.ErrInvalidBountyID),
		errors.Is(err, bitz.ErrInvalidAmount),
		errors.Is(err, preview.ErrInvalidTrack),
		errors.Is(err, errEmptyBody):
		return http.StatusBadRequest

	case errors.Is(err, usecase.ErrLedgerQueryUnsupported):
		return http.StatusNotImplemented

	case errors.Is(err, usecase.ErrXPTransferFailed):
		return http.StatusBadGateway

	case errors.Is(err, usecase.ErrExecutorNotConfigured),
		errors.Is(err, usecase.ErrBitzNotConfigured),
		errors.Is(err, usecase.ErrPreviewNotConfigured),
		errors.Is(err, usecase.ErrPaymentLogNotConfigured),
		errors.Is(err, usecase.ErrMintNotConfigured):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// preAccessFromHeaders reads the wallet ownership proof sent by the front end.
func preAccessFromHeaders(r *http.Request) usecase.PreAccess {
	return usecase.PreAccess{
		Nonce:     strings.TrimSpace(r.Header.Get("X-Pre-Access-Nonce")),
		Signature: strings.TrimSpace(r.Header.Get("X-Pre-Access-Signature")),
	}
}
