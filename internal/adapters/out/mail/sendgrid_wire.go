// internal/adapters/out/mail/sendgrid_wire.go
package mail

import "log/slog"

// NewSupportNotifierWithSendGrid wires SupportNotifier to SendGrid.
// apiKey / supportAddress が空でも生成はする（送信時にエラー）。
func NewSupportNotifierWithSendGrid(apiKey, from, supportAddress string) *SupportNotifier {
	if apiKey == "" {
		slog.Warn("[mail] SENDGRID_API_KEY is empty. support notifications will fail")
	}
	if supportAddress == "" {
		slog.Warn("[mail] SUPPORT_EMAIL is empty. support notifications will fail")
	}
	return NewSupportNotifier(NewSendGridClient(apiKey), from, supportAddress)
}
