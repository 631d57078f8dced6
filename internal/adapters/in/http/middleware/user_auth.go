// internal/adapters/in/http/middleware/user_auth.go
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"musicvault/internal/application/usecase"
	"musicvault/internal/infra/logging"
)

// UserAuthMiddleware verifies the Firebase ID token of the buyer and stores uid / payer wallet in context.
//   - Verifier が nil で Required なら 503（fail closed）
//   - Required=false（ローカル開発）では token なしでも X-Payer-Address を信頼する
type UserAuthMiddleware struct {
	Verifier TokenVerifier
	Required bool
}

// wallet アドレスを持つ custom claim
var walletClaimKeys = []string{"walletAddress", "wallet"}

func (m *UserAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		headerPayer := strings.TrimSpace(r.Header.Get(HeaderPayerAddress))

		if m == nil || m.Verifier == nil {
			if m != nil && m.Required {
				writeError(w, http.StatusServiceUnavailable, "user auth middleware not initialized")
				return
			}
			ctx = usecase.WithPayerAddress(ctx, headerPayer)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized: missing bearer token")
			return
		}
		idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if idToken == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized: empty bearer token")
			return
		}

		token, err := m.Verifier.VerifyIDToken(ctx, idToken)
		if err != nil {
			slog.WarnContext(ctx, "[user_auth] verify failed", "err", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		uid := strings.TrimSpace(token.UID)
		if uid == "" {
			writeError(w, http.StatusUnauthorized, "invalid uid in token")
			return
		}

		payer := walletFromClaims(token.Claims)
		if payer == "" {
			payer = headerPayer
		} else if headerPayer != "" && headerPayer != payer {
			// token に紐づく wallet と違うアドレスでは操作させない
			slog.WarnContext(ctx, "[user_auth] payer header mismatch",
				"uid", logging.Mask(uid),
				"claim", logging.Mask(payer),
				"header", logging.Mask(headerPayer),
			)
			writeError(w, http.StatusForbidden, "payer address does not match the signed-in wallet")
			return
		}

		ctx = usecase.WithUID(ctx, uid)
		ctx = usecase.WithPayerAddress(ctx, payer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func walletFromClaims(claims map[string]any) string {
	for _, k := range walletClaimKeys {
		if s, ok := claims[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
