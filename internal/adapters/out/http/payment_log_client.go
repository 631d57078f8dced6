// internal/adapters/out/http/payment_log_client.go
package httpout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"musicvault/internal/application/usecase"
	paymentdom "musicvault/internal/domain/payment"
	"musicvault/internal/infra/logging"
)

var (
	ErrPaymentLogURLEmpty    = errors.New("payment_log: url is empty")
	ErrPaymentLogNoPreAccess = errors.New("payment_log: pre-access credential missing")
	ErrPaymentLogRejected    = errors.New("payment_log: backend rejected entry")
)

// PaymentLogClient は支払い台帳の HTTP エンドポイント実装（PAYMENT_LOG_SINK=http）。
// 台帳の検索 API は無いので ListByPayer は ErrLedgerQueryUnsupported。
type PaymentLogClient struct {
	url    string
	client *http.Client
}

var _ paymentdom.RepositoryPort = (*PaymentLogClient)(nil)

func NewPaymentLogClient(url string, c *http.Client) *PaymentLogClient {
	return &PaymentLogClient{url: trimBase(url), client: newHTTPClient(c)}
}

// RequiresPreAccess: 台帳 API は nonce/signature 無しの書き込みを拒否する。
func (c *PaymentLogClient) RequiresPreAccess() bool { return true }

type paymentLogRequest struct {
	Signature     string `json:"signature"`
	Nonce         string `json:"nonce"`
	Payer         string `json:"payer"`
	Tx            string `json:"tx"`
	Task          string `json:"task"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	PriceInUSD    string `json:"priceInUSD"`
	CreatorWallet string `json:"creatorWallet"`
	AlbumID       string `json:"albumId"`
	SaleOption    string `json:"saleOption"`
}

func (c *PaymentLogClient) Create(ctx context.Context, e paymentdom.LedgerEntry) (paymentdom.LedgerEntry, error) {
	if c == nil || c.url == "" {
		return paymentdom.LedgerEntry{}, ErrPaymentLogURLEmpty
	}
	cred, ok := usecase.PreAccessFromContext(ctx)
	if !ok || !cred.Valid() {
		return paymentdom.LedgerEntry{}, ErrPaymentLogNoPreAccess
	}

	reqBody := paymentLogRequest{
		Signature:     cred.Signature,
		Nonce:         cred.Nonce,
		Payer:         e.Receipt.Payer,
		Tx:            e.Receipt.TransactionRef,
		Task:          e.Task,
		Type:          e.Receipt.Rail,
		Amount:        e.Receipt.AmountPaid.String(),
		PriceInUSD:    e.PriceUSD.StringFixed(2),
		CreatorWallet: e.Receipt.CreatorWallet,
		AlbumID:       e.AlbumID,
		SaleOption:    e.SaleOption,
	}

	var res backendError
	if err := doJSON(ctx, c.client, http.MethodPost, c.url, nil, reqBody, &res); err != nil {
		return paymentdom.LedgerEntry{}, fmt.Errorf("payment_log: %w", err)
	}
	if failed, msg := res.failed(); failed {
		return paymentdom.LedgerEntry{}, fmt.Errorf("%w: %s", ErrPaymentLogRejected, msg)
	}

	slog.DebugContext(ctx, "[payment_log] posted", "tx", logging.Mask(e.Receipt.TransactionRef))
	return e, nil
}

func (c *PaymentLogClient) ListByPayer(context.Context, string, time.Time, time.Time) ([]paymentdom.LedgerEntry, error) {
	return nil, usecase.ErrLedgerQueryUnsupported
}
