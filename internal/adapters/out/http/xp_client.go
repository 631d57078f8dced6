// internal/adapters/out/http/xp_client.go
package httpout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"musicvault/internal/application/usecase"
	bitzdom "musicvault/internal/domain/bitz"
	"musicvault/internal/infra/logging"
)

var ErrXPBaseURLEmpty = errors.New("xp_client: base url is empty")

// give-bits のカスタムヘッダ
const (
	HeaderGiveBitsAmount     = "give-bits-amount"
	HeaderGiveBitsRecipient  = "give-bits-recipient"
	HeaderGiveBitsCampaignID = "give-bits-campaign-id"
	HeaderGiveBitsBountyID   = "give-bits-bounty-id"
	HeaderPublicAddress      = "public-address"
	HeaderNonce              = "nonce"
	HeaderSignature          = "signature"
)

// XPClient は XP バックエンドの HTTP 実装。
// usecase.XPLedger と bitz.SumsReader を兼ねる。
type XPClient struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

var (
	_ usecase.XPLedger   = (*XPClient)(nil)
	_ bitzdom.SumsReader = (*XPClient)(nil)
)

func NewXPClient(baseURL string, c *http.Client) *XPClient {
	return &XPClient{baseURL: trimBase(baseURL), client: newHTTPClient(c), now: time.Now}
}

func (c *XPClient) Balance(ctx context.Context, address string) (int64, error) {
	if c == nil || c.baseURL == "" {
		return 0, ErrXPBaseURLEmpty
	}
	u := c.baseURL + "/xp/balance?address=" + url.QueryEscape(strings.TrimSpace(address))

	var res struct {
		Data struct {
			Balance int64 `json:"balance"`
		} `json:"data"`
	}
	if err := doJSON(ctx, c.client, http.MethodGet, u, nil, nil, &res); err != nil {
		return 0, fmt.Errorf("xp_client: balance: %w", err)
	}
	return res.Data.Balance, nil
}

// GiveXP posts a give-bits transfer.
// HTTP エラーも statusCode として返し、判定は executor 側に任せる。
func (c *XPClient) GiveXP(ctx context.Context, in usecase.GiveXPInput) (usecase.XPTransferResult, error) {
	if c == nil || c.baseURL == "" {
		return usecase.XPTransferResult{}, ErrXPBaseURLEmpty
	}

	headers := map[string]string{
		HeaderGiveBitsAmount:     strconv.FormatInt(in.Amount, 10),
		HeaderGiveBitsRecipient:  in.Recipient,
		HeaderGiveBitsCampaignID: in.CampaignID,
		HeaderPublicAddress:      in.Payer,
		HeaderNonce:              in.Cred.Nonce,
		HeaderSignature:          in.Cred.Signature,
	}
	if strings.TrimSpace(in.BountyID) != "" {
		headers[HeaderGiveBitsBountyID] = in.BountyID
	}

	var res struct {
		Data struct {
			StatusCode int `json:"statusCode"`
		} `json:"data"`
		Receipt string `json:"receipt"`
	}
	err := doJSON(ctx, c.client, http.MethodPost, c.baseURL+"/xp/give-bits", headers, nil, &res)
	var se *StatusError
	if errors.As(err, &se) {
		slog.WarnContext(ctx, "[xp_client] give-bits failed",
			"status", se.StatusCode,
			"payer", logging.Mask(in.Payer),
		)
		return usecase.XPTransferResult{StatusCode: se.StatusCode}, nil
	}
	if err != nil {
		return usecase.XPTransferResult{}, fmt.Errorf("xp_client: give-bits: %w", err)
	}

	return usecase.XPTransferResult{StatusCode: res.Data.StatusCode, Receipt: res.Receipt}, nil
}

// FetchSums: GET /bitz/sums?artistId=..&bountyIds=a,b
func (c *XPClient) FetchSums(ctx context.Context, artistID string, bountyIDs []string) ([]bitzdom.TipSum, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrXPBaseURLEmpty
	}
	q := url.Values{}
	q.Set("artistId", strings.TrimSpace(artistID))
	q.Set("bountyIds", strings.Join(bountyIDs, ","))

	var res struct {
		Data []struct {
			BountyID string `json:"bountyId"`
			BitsSum  int64  `json:"bitsSum"`
			Likes    int64  `json:"likes"`
		} `json:"data"`
	}
	if err := doJSON(ctx, c.client, http.MethodGet, c.baseURL+"/bitz/sums?"+q.Encode(), nil, nil, &res); err != nil {
		return nil, fmt.Errorf("xp_client: sums: %w", err)
	}

	now := c.now().UTC()
	out := make([]bitzdom.TipSum, 0, len(res.Data))
	for _, d := range res.Data {
		out = append(out, bitzdom.TipSum{
			BountyID:  d.BountyID,
			BitsSum:   d.BitsSum,
			Likes:     d.Likes,
			FetchedAt: now,
		})
	}
	return out, nil
}
