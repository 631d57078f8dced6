// internal/platform/di/infra.go
package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/blocto/solana-go-sdk/client"
	"google.golang.org/api/option"

	dbout "musicvault/internal/adapters/out/db"
	appcfg "musicvault/internal/infra/config"
	"musicvault/internal/infra/database"
	firestoreinfra "musicvault/internal/infra/firestore"
	solanainfra "musicvault/internal/infra/solana"
)

// Infra is shared runtime infrastructure for DI.
// - owns external clients (Firestore / Postgres / GCS / Firebase Auth / Solana RPC)
// - Firestore / Postgres は台帳に選ばれたときだけ strict
// - それ以外は best-effort（warn + continue）
type Infra struct {
	Config *appcfg.Config

	Firestore    *firestoreinfra.ClientWrapper
	DB           *database.DB
	GCS          *storage.Client
	FirebaseAuth *firebaseauth.Client
	SolanaRPC    *client.Client
}

func NewInfra(ctx context.Context, cfg *appcfg.Config) (*Infra, error) {
	if cfg == nil {
		return nil, errors.New("di.infra: config is nil")
	}
	inf := &Infra{Config: cfg}

	// Credentials file (optional; mainly for local dev)
	credFile := strings.TrimSpace(cfg.FirestoreCredentialsFile)
	if credFile == "" {
		credFile = strings.TrimSpace(cfg.GCPCreds)
	}
	var clientOpts []option.ClientOption
	if credFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credFile))
		slog.Info("[di.infra] using credentials file for GCP clients", "file", redactPath(credFile))
	} else {
		slog.Info("[di.infra] using Application Default Credentials")
	}

	// 1) Firestore
	{
		fs, err := firestoreinfra.NewClient(ctx, cfg.GetFirestoreProjectID(), credFile)
		switch {
		case err != nil && cfg.PaymentLogSink == "firestore":
			return nil, fmt.Errorf("di.infra: firestore (project=%s): %w", cfg.GetFirestoreProjectID(), err)
		case err != nil:
			slog.Warn("[di.infra] firestore unavailable", "err", err)
		default:
			inf.Firestore = fs
		}
	}

	// 2) Postgres (PAYMENT_LOG_SINK=postgres のときだけ)
	if cfg.PaymentLogSink == "postgres" {
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("di.infra: postgres: %w", err)
		}
		if err := dbout.EnsureSchema(ctx, db.Client); err != nil {
			_ = db.Close()
			_ = inf.Close()
			return nil, fmt.Errorf("di.infra: ensure schema: %w", err)
		}
		inf.DB = db
	}

	// 3) GCS（preview 配信）
	{
		gcs, err := storage.NewClient(ctx, clientOpts...)
		if err != nil {
			slog.Warn("[di.infra] storage.NewClient failed (previews disabled)", "err", err)
		} else {
			inf.GCS = gcs
		}
	}

	// 4) Firebase Auth (best-effort; 必須なら middleware が 503 を返す)
	{
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GetFirebaseProjectID()}, clientOpts...)
		if err != nil {
			slog.Warn("[di.infra] firebase app init failed", "err", err)
		} else if authClient, err := fbApp.Auth(ctx); err != nil {
			slog.Warn("[di.infra] firebase auth init failed", "err", err)
		} else {
			inf.FirebaseAuth = authClient
			slog.Info("[di.infra] firebase auth initialized")
		}
	}

	// 5) Solana RPC
	inf.SolanaRPC = solanainfra.NewRPC(solanainfra.ResolveRPCURL(cfg.SolanaRPCURL))

	return inf, nil
}

func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	if i.Firestore != nil {
		_ = i.Firestore.Close()
	}
	if i.DB != nil {
		_ = i.DB.Close()
	}
	if i.GCS != nil {
		_ = i.GCS.Close()
	}
	return nil
}

// ログにフルパスを出さない
func redactPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	parts := strings.Split(p, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return "***"
	}
	return "***/" + last
}
