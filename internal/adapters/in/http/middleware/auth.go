// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseAuthClient は Firebase Admin SDK の auth クライアント。
type FirebaseAuthClient = fbauth.Client

// TokenVerifier verifies Firebase ID tokens. *FirebaseAuthClient satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

var _ TokenVerifier = (*FirebaseAuthClient)(nil)

// ヘッダ名（フロントと共有）
const (
	HeaderPayerAddress       = "X-Payer-Address"
	HeaderPreAccessNonce     = "X-Pre-Access-Nonce"
	HeaderPreAccessSignature = "X-Pre-Access-Signature"
)

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
