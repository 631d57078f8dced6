// internal/adapters/out/http/mint_client.go
package httpout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"musicvault/internal/application/usecase"
	mintdom "musicvault/internal/domain/mintRequest"
	"musicvault/internal/infra/logging"
)

var (
	ErrMintURLEmpty    = errors.New("mint_client: url is empty")
	ErrMintNoPreAccess = errors.New("mint_client: pre-access credential missing")
	ErrMintRejected    = errors.New("mint_client: backend rejected mint request")
)

// MintClient は minting backend への HTTP 実装（MINT_MODE=http）。
type MintClient struct {
	url    string
	client *http.Client
	now    func() time.Time
}

var _ usecase.Minter = (*MintClient)(nil)

func NewMintClient(url string, c *http.Client) *MintClient {
	if c == nil {
		// mint は重いので長め
		c = &http.Client{Timeout: 60 * time.Second}
	}
	return &MintClient{url: trimBase(url), client: c, now: time.Now}
}

func (c *MintClient) RequiresPreAccess() bool { return true }

type mintRequestBody struct {
	Signature      string                `json:"signature"`
	Nonce          string                `json:"nonce"`
	MintForAddress string                `json:"mintForAddress"`
	PaymentHash    string                `json:"paymentHash"`
	NFTType        string                `json:"nftType"`
	CreatorWallet  string                `json:"creatorWallet"`
	AlbumID        string                `json:"albumId"`
	LicenseFlags   *mintdom.LicenseFlags `json:"licenseFlags,omitempty"`
}

type mintResponseBody struct {
	backendError
	Signature   string `json:"signature,omitempty"`
	MintAddress string `json:"mintAddress,omitempty"`
}

func (c *MintClient) Mint(ctx context.Context, req mintdom.MintRequest) (mintdom.MintAck, error) {
	if c == nil || c.url == "" {
		return mintdom.MintAck{}, ErrMintURLEmpty
	}
	cred, ok := usecase.PreAccessFromContext(ctx)
	if !ok || !cred.Valid() {
		return mintdom.MintAck{}, ErrMintNoPreAccess
	}

	body := mintRequestBody{
		Signature:      cred.Signature,
		Nonce:          cred.Nonce,
		MintForAddress: req.MintForAddress,
		PaymentHash:    req.Receipt.TransactionRef,
		NFTType:        string(req.NFTType),
		CreatorWallet:  req.CreatorWallet,
		AlbumID:        req.AlbumID,
	}
	if req.LicenseFlags.Any() {
		flags := req.LicenseFlags
		body.LicenseFlags = &flags
	}

	var res mintResponseBody
	if err := doJSON(ctx, c.client, http.MethodPost, c.url, nil, body, &res); err != nil {
		return mintdom.MintAck{}, fmt.Errorf("mint_client: %w", err)
	}
	if failed, msg := res.failed(); failed {
		return mintdom.MintAck{}, fmt.Errorf("%w: %s", ErrMintRejected, msg)
	}

	slog.InfoContext(ctx, "[mint_client] accepted",
		"paymentHash", logging.Mask(req.Receipt.TransactionRef),
		"nftType", req.NFTType,
	)
	return mintdom.MintAck{
		RequestID: req.ID,
		Signature: res.Signature,
		MintAddr:  res.MintAddress,
		At:        c.now().UTC(),
	}, nil
}
