// internal/application/usecase/context.go
package usecase

import (
	"context"
	"strings"
)

// usecase 層で使う context key
type ctxKey string

const (
	ctxKeyUID          ctxKey = "uid"
	ctxKeyPayerAddress ctxKey = "payerAddress"
)

// ミドルウェアから認証済み uid を注入するためのヘルパー
func WithUID(ctx context.Context, uid string) context.Context {
	v := strings.TrimSpace(uid)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyUID, v)
}

func UIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyUID).(string)
	return strings.TrimSpace(s)
}

// WithPayerAddress は接続中ウォレットのアドレスを注入します。
func WithPayerAddress(ctx context.Context, addr string) context.Context {
	v := strings.TrimSpace(addr)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyPayerAddress, v)
}

func PayerAddressFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyPayerAddress).(string)
	return strings.TrimSpace(s)
}
