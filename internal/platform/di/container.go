// internal/platform/di/container.go
package di

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	httpin "musicvault/internal/adapters/in/http"
	"musicvault/internal/adapters/in/http/handlers"
	"musicvault/internal/adapters/in/http/middleware"
	"musicvault/internal/adapters/in/http/webhook"
	dbout "musicvault/internal/adapters/out/db"
	fsout "musicvault/internal/adapters/out/firestore"
	gcsout "musicvault/internal/adapters/out/gcs"
	httpout "musicvault/internal/adapters/out/http"
	"musicvault/internal/adapters/out/mail"
	stripeout "musicvault/internal/adapters/out/stripe"
	uc "musicvault/internal/application/usecase"
	"musicvault/internal/domain/bitz"
	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/domain/payment"
	appcfg "musicvault/internal/infra/config"
	solanainfra "musicvault/internal/infra/solana"
)

// Container は main.go から使う依存オブジェクトの束。
// main.go を極限まで薄くするためのもの。
type Container struct {
	Infra  *Infra
	Router http.Handler

	Purchases *uc.PurchaseUsecase
	Bitz      *uc.BitzUsecase
	Previews  *uc.PreviewPlayer
	Ledger    *uc.PaymentLogger
}

// Close は Cloud Run 終了時などに呼んで安全にリソースを閉じる。
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	return c.Infra.Close()
}

// NewContainer wires infra → outbound adapters → usecases → handlers.
func NewContainer(ctx context.Context, cfg *appcfg.Config) (*Container, error) {
	inf, err := NewInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	preAccess := uc.NewPreAccessCache(cfg.PreAccessTTL)
	signatures := uc.NewRendezvous[uc.SignatureResult]()
	cards := uc.NewRendezvous[uc.CardOutcome]()

	// ------------------------------------------------------------
	// Price oracle
	// ------------------------------------------------------------
	oracle := uc.NewPriceOracle(httpout.NewSolPriceFeedClient(cfg.SolPriceFeedURL, nil), cfg.OneUSDInXP)

	// ------------------------------------------------------------
	// Payment ledger + mint
	// ------------------------------------------------------------
	ledgerRepo := buildLedgerRepo(cfg, inf)
	logger := uc.NewPaymentLogger(ledgerRepo, preAccess, uuid.NewString)

	minter := buildMinter(ctx, cfg, inf)
	mintRepo := buildMintRequestRepo(inf)

	var notifier uc.SupportNotifier
	if strings.TrimSpace(cfg.SendGridAPIKey) != "" && strings.TrimSpace(cfg.SupportEmail) != "" {
		notifier = mail.NewSupportNotifierWithSendGrid(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.SupportEmail)
	} else {
		slog.Warn("[di] support notifier disabled (SENDGRID_API_KEY / SUPPORT_EMAIL empty)")
	}
	mintUC := uc.NewMintUsecase(minter, mintRepo, notifier, preAccess)

	// ------------------------------------------------------------
	// Executors
	// ------------------------------------------------------------
	var executors []uc.PaymentExecutor

	if cfg.SolServiceWallet != "" {
		transfer := solanainfra.NewSolTransfer(inf.SolanaRPC)
		executors = append(executors, uc.NewSolPaymentExecutor(transfer, transfer, signatures, cfg.SolServiceWallet, cfg.SolConfirmTimeout))
	} else {
		slog.Warn("[di] SOL rail disabled (SOL_SERVICE_WALLET empty)")
	}

	var xpLedger uc.XPLedger
	if strings.TrimSpace(cfg.XPAPIBaseURL) != "" {
		xpLedger = httpout.NewXPClient(cfg.XPAPIBaseURL, nil)
		executors = append(executors, uc.NewXPPaymentExecutor(xpLedger, preAccess, cfg.XPCampaignID))
	} else {
		slog.Warn("[di] XP rail disabled (XP_API_BASE_URL empty)")
	}

	if creator := buildCardIntentCreator(ctx, cfg); creator != nil {
		executors = append(executors, uc.NewCardPaymentExecutor(creator, cards, cfg.CardConfirmTimeout))
	} else {
		slog.Warn("[di] card rail disabled (no Stripe key and CARD_INTENT_URL empty)")
	}

	purchases := uc.NewPurchaseUsecase(uc.PurchaseUsecaseDeps{
		Quoter:     oracle,
		Executors:  executors,
		Recorder:   logger,
		Minter:     mintUC,
		Signatures: signatures,
		Cards:      cards,
		PreAccess:  preAccess,
		Validate:   solanainfra.ValidateAddress,
		NewID:      uuid.NewString,
	})

	// ------------------------------------------------------------
	// Bitz / previews
	// ------------------------------------------------------------
	var sums bitz.SumsReader
	if base := firstNonEmpty(cfg.BitzAPIBaseURL, cfg.XPAPIBaseURL); base != "" {
		sums = httpout.NewXPClient(base, nil)
	}
	bitzUC := uc.NewBitzUsecase(uc.NewPowerUpCache(cfg.BitzCacheSize, cfg.BitzCacheTTL), sums, xpLedger, preAccess, cfg.XPCampaignID)

	var previews *uc.PreviewPlayer
	if inf.GCS != nil {
		previews = uc.NewPreviewPlayer(gcsout.NewPreviewRepositoryGCS(inf.GCS, cfg.PreviewBucket))
	} else {
		previews = uc.NewPreviewPlayer(nil)
	}

	// ------------------------------------------------------------
	// Inbound HTTP
	// ------------------------------------------------------------
	auth := &middleware.UserAuthMiddleware{Required: cfg.AuthRequired}
	if inf.FirebaseAuth != nil {
		auth.Verifier = inf.FirebaseAuth
	}
	if !cfg.AuthRequired {
		slog.Warn("[di] AUTH_REQUIRED=false: X-Payer-Address is trusted without a token")
	}

	deps := httpin.RouterDeps{
		Purchases:      handlers.NewPurchaseHandler(purchases),
		Payments:       handlers.NewPaymentLedgerHandler(logger),
		Bitz:           handlers.NewBitzHandler(bitzUC, preAccess),
		Previews:       handlers.NewPreviewHandler(previews),
		Stripe:         webhook.NewStripeWebhookHandler(cfg.StripeWebhookSecret, purchases),
		UserAuth:       auth,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if strings.TrimSpace(cfg.StripeWebhookSelfURL) != "" && strings.TrimSpace(cfg.StripeWebhookSecret) != "" {
		deps.CardSimulator = handlers.NewCardSimulateHandler(
			httpout.NewStripeWebhookClient(cfg.StripeWebhookSelfURL, cfg.StripeWebhookSecret),
		)
		slog.Warn("[di] dev card simulator enabled", "selfURL", cfg.StripeWebhookSelfURL)
	}

	slog.Info("[di] container ready",
		"rails", len(executors),
		"paymentLogSink", cfg.PaymentLogSink,
		"mintMode", cfg.MintMode,
	)

	return &Container{
		Infra:     inf,
		Router:    httpin.NewRouter(deps),
		Purchases: purchases,
		Bitz:      bitzUC,
		Previews:  previews,
		Ledger:    logger,
	}, nil
}

func buildLedgerRepo(cfg *appcfg.Config, inf *Infra) payment.RepositoryPort {
	switch cfg.PaymentLogSink {
	case "firestore":
		return fsout.NewPaymentLedgerFS(inf.Firestore.Client)
	case "postgres":
		return dbout.NewPaymentRepositoryPG(inf.DB.Client)
	default:
		return httpout.NewPaymentLogClient(cfg.PaymentLogURL, nil)
	}
}

// mint request は Postgres があればそちら、無ければ Firestore。どちらも無ければ記録しない。
func buildMintRequestRepo(inf *Infra) mintrequest.Repository {
	switch {
	case inf.DB != nil:
		return dbout.NewMintRequestRepositoryPG(inf.DB.Client)
	case inf.Firestore != nil:
		return fsout.NewMintRequestRepositoryFS(inf.Firestore.Client)
	default:
		slog.Warn("[di] mint requests are not persisted (no Firestore / Postgres)")
		return nil
	}
}

func buildMinter(ctx context.Context, cfg *appcfg.Config, inf *Infra) uc.Minter {
	if cfg.MintMode == "onchain" {
		authority, err := solanainfra.LoadMintAuthority(ctx, cfg.MintAuthoritySecretName)
		if err != nil {
			slog.Warn("[di] onchain minter disabled", "err", err)
			return nil
		}
		return solanainfra.NewOnchainMinter(inf.SolanaRPC, authority, cfg.MintMetadataBaseURL)
	}
	if strings.TrimSpace(cfg.MintAPIURL) == "" {
		slog.Warn("[di] minter disabled (MINT_API_URL empty)")
		return nil
	}
	return httpout.NewMintClient(cfg.MintAPIURL, nil)
}

// Stripe の秘密鍵があれば直接 PaymentIntent を作る。無ければ決済バックエンド経由。
func buildCardIntentCreator(ctx context.Context, cfg *appcfg.Config) uc.CardIntentCreator {
	if strings.TrimSpace(cfg.StripeSecretKey) != "" || strings.TrimSpace(cfg.StripeSecretName) != "" {
		creator, err := newStripeCreator(ctx, cfg)
		if err == nil {
			return creator
		}
		slog.Warn("[di] stripe creator unavailable", "err", err)
	}
	if strings.TrimSpace(cfg.CardIntentURL) != "" {
		return httpout.NewCardIntentClient(cfg.CardIntentURL, nil)
	}
	return nil
}

func newStripeCreator(ctx context.Context, cfg *appcfg.Config) (*stripeout.PaymentIntentCreator, error) {
	key, err := stripeout.ResolveSecretKey(ctx, cfg.StripeSecretKey, cfg.StripeSecretName)
	if err != nil {
		return nil, err
	}
	return stripeout.NewPaymentIntentCreator(key, nil)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
