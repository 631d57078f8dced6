// internal/adapters/out/mail/support_notifier.go
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musicvault/internal/application/usecase"
	mintdom "musicvault/internal/domain/mintRequest"
)

// EmailClient は実際のメール送信クライアント（SendGrid など）の抽象。
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

var ErrSupportAddressEmpty = errors.New("support_notifier: support address is empty")

// SupportNotifier は支払い済みで mint に失敗した購入をサポートへ知らせる。
type SupportNotifier struct {
	client  EmailClient
	from    string
	support string
}

var _ usecase.SupportNotifier = (*SupportNotifier)(nil)

func NewSupportNotifier(client EmailClient, from, supportAddress string) *SupportNotifier {
	return &SupportNotifier{
		client:  client,
		from:    strings.TrimSpace(from),
		support: strings.TrimSpace(supportAddress),
	}
}

func (n *SupportNotifier) NotifyMintFailure(ctx context.Context, req mintdom.MintRequest, cause error) error {
	if n == nil || n.client == nil {
		return errors.New("support_notifier: email client is nil")
	}
	if n.support == "" {
		return ErrSupportAddressEmpty
	}

	subject := fmt.Sprintf("[musicvault] mint failed for paid purchase %s", req.Receipt.TransactionRef)
	return n.client.Send(ctx, n.from, n.support, subject, mintFailureBody(req, cause))
}

// 照合に必要な値はマスクせずに載せる（宛先はサポートのみ）
func mintFailureBody(req mintdom.MintRequest, cause error) string {
	var b strings.Builder
	b.WriteString("A payment was captured but the mint request failed.\n\n")
	fmt.Fprintf(&b, "paymentRef:     %s\n", req.Receipt.TransactionRef)
	fmt.Fprintf(&b, "rail:           %s\n", req.Receipt.Rail)
	fmt.Fprintf(&b, "amountPaid:     %s %s\n", req.Receipt.AmountPaid.String(), req.Receipt.Currency)
	fmt.Fprintf(&b, "payer:          %s\n", req.Receipt.Payer)
	fmt.Fprintf(&b, "albumId:        %s\n", req.AlbumID)
	fmt.Fprintf(&b, "nftType:        %s\n", req.NFTType)
	fmt.Fprintf(&b, "mintForAddress: %s\n", req.MintForAddress)
	fmt.Fprintf(&b, "licenseFlags:   t2=%t licenseOnly=%t\n",
		req.LicenseFlags.UseCommercialLicenseT2, req.LicenseFlags.OnlyNeedLicenseNoNftMint)
	if cause != nil {
		fmt.Fprintf(&b, "\nerror: %v\n", cause)
	}
	return b.String()
}
