// internal/infra/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config はアプリケーション全体の環境変数設定を保持します。
type Config struct {
	Port                     string
	GCPProjectID             string
	GCPCreds                 string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string

	// 認証を必須にするか（ローカル開発では false にできる）
	AuthRequired       bool
	CORSAllowedOrigins []string

	// Solana
	SolanaRPCURL      string
	SolServiceWallet  string
	SolPriceFeedURL   string
	SolConfirmTimeout time.Duration

	// XP
	OneUSDInXP   int64
	XPAPIBaseURL string
	XPCampaignID string

	// 支払い台帳: "http" | "firestore" | "postgres"
	PaymentLogSink string
	PaymentLogURL  string
	DatabaseURL    string

	// Mint: "http" | "onchain"
	MintMode                string
	MintAPIURL              string
	MintAuthoritySecretName string
	MintMetadataBaseURL     string

	// Stripe / カード決済
	StripeSecretKey     string
	StripeSecretName    string
	StripeWebhookSecret string
	CardIntentURL       string
	CardConfirmTimeout  time.Duration
	// 開発用: Stripe を介さず自分の webhook を叩く
	StripeWebhookSelfURL string

	// Preview
	PreviewBucket string

	// SendGrid（mint 失敗時のサポート通知）
	SendGridAPIKey string
	SendGridFrom   string
	SupportEmail   string

	// Bitz power-ups
	BitzAPIBaseURL string
	BitzCacheTTL   time.Duration
	BitzCacheSize  int

	PreAccessTTL time.Duration
}

// defaults は env 未設定時の値。
var defaults = map[string]any{
	"PORT":                 "8080",
	"GCP_PROJECT_ID":       "musicvault-dev",
	"AUTH_REQUIRED":        true,
	"CORS_ALLOWED_ORIGINS": "http://localhost:3000,http://localhost:5173",
	"SOLANA_RPC_URL":       "https://api.devnet.solana.com",
	"SOL_PRICE_FEED_URL":   "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd",
	"SOL_CONFIRM_TIMEOUT":  "90s",
	"ONE_USD_IN_XP":        1000,
	"PAYMENT_LOG_SINK":     "http",
	"MINT_MODE":            "http",
	"CARD_CONFIRM_TIMEOUT": "15m",
	"SENDGRID_FROM":        "no-reply@musicvault.app",
	"BITZ_CACHE_TTL":       "5m",
	"BITZ_CACHE_SIZE":      512,
	"PRE_ACCESS_TTL":       "10m",
}

// Load は環境変数（と任意の CONFIG_FILE）を読み込み Config を返します。
// 優先順位: env > CONFIG_FILE(yaml) > defaults
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	defaultProject := v.GetString("GCP_PROJECT_ID")

	cfg := &Config{
		Port:                     v.GetString("PORT"),
		GCPProjectID:             defaultProject,
		GCPCreds:                 v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		FirestoreProjectID:       getDefault(v, "FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: v.GetString("FIRESTORE_CREDENTIALS_FILE"),
		FirebaseProjectID:        getDefault(v, "FIREBASE_PROJECT_ID", defaultProject),

		AuthRequired:       v.GetBool("AUTH_REQUIRED"),
		CORSAllowedOrigins: splitCSV(v.GetString("CORS_ALLOWED_ORIGINS")),

		SolanaRPCURL:      v.GetString("SOLANA_RPC_URL"),
		SolServiceWallet:  strings.TrimSpace(v.GetString("SOL_SERVICE_WALLET")),
		SolPriceFeedURL:   v.GetString("SOL_PRICE_FEED_URL"),
		SolConfirmTimeout: v.GetDuration("SOL_CONFIRM_TIMEOUT"),

		OneUSDInXP:   v.GetInt64("ONE_USD_IN_XP"),
		XPAPIBaseURL: v.GetString("XP_API_BASE_URL"),
		XPCampaignID: v.GetString("XP_CAMPAIGN_ID"),

		PaymentLogSink: strings.ToLower(strings.TrimSpace(v.GetString("PAYMENT_LOG_SINK"))),
		PaymentLogURL:  v.GetString("PAYMENT_LOG_URL"),
		DatabaseURL:    v.GetString("DATABASE_URL"),

		MintMode:                strings.ToLower(strings.TrimSpace(v.GetString("MINT_MODE"))),
		MintAPIURL:              v.GetString("MINT_API_URL"),
		MintAuthoritySecretName: v.GetString("MINT_AUTHORITY_SECRET_NAME"),
		MintMetadataBaseURL:     v.GetString("MINT_METADATA_BASE_URL"),

		StripeSecretKey:      v.GetString("STRIPE_SECRET_KEY"),
		StripeSecretName:     v.GetString("STRIPE_SECRET_NAME"),
		StripeWebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
		CardIntentURL:        v.GetString("CARD_INTENT_URL"),
		CardConfirmTimeout:   v.GetDuration("CARD_CONFIRM_TIMEOUT"),
		StripeWebhookSelfURL: v.GetString("STRIPE_WEBHOOK_SELF_URL"),

		PreviewBucket: v.GetString("PREVIEW_BUCKET"),

		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		SendGridFrom:   v.GetString("SENDGRID_FROM"),
		SupportEmail:   v.GetString("SUPPORT_EMAIL"),

		BitzAPIBaseURL: v.GetString("BITZ_API_BASE_URL"),
		BitzCacheTTL:   v.GetDuration("BITZ_CACHE_TTL"),
		BitzCacheSize:  v.GetInt("BITZ_CACHE_SIZE"),

		PreAccessTTL: v.GetDuration("PRE_ACCESS_TTL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OneUSDInXP <= 0 {
		return fmt.Errorf("config: ONE_USD_IN_XP must be positive, got %d", c.OneUSDInXP)
	}
	if c.SolConfirmTimeout <= 0 {
		return fmt.Errorf("config: SOL_CONFIRM_TIMEOUT must be positive")
	}
	if c.CardConfirmTimeout <= 0 {
		return fmt.Errorf("config: CARD_CONFIRM_TIMEOUT must be positive")
	}
	switch c.PaymentLogSink {
	case "http", "firestore", "postgres":
	default:
		return fmt.Errorf("config: unknown PAYMENT_LOG_SINK %q", c.PaymentLogSink)
	}
	switch c.MintMode {
	case "http", "onchain":
	default:
		return fmt.Errorf("config: unknown MINT_MODE %q", c.MintMode)
	}
	if c.BitzCacheSize <= 0 {
		c.BitzCacheSize = 512
	}
	return nil
}

// GetFirestoreProjectID は Firestore/GCP プロジェクト ID を返します。
func (c *Config) GetFirestoreProjectID() string {
	return c.FirestoreProjectID
}

func (c *Config) GetFirebaseProjectID() string {
	return c.FirebaseProjectID
}

func getDefault(v *viper.Viper, key, def string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
