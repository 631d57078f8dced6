// cmd/devnet_sol_quote/main.go
//
// devnet で SOL レールの見積もりと未署名 transfer を確認するための手動ツール。
//
//	go run ./cmd/devnet_sol_quote -usd 9.99 -from <payer pubkey>
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	httpout "musicvault/internal/adapters/out/http"
	"musicvault/internal/application/usecase"
	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/config"
	"musicvault/internal/infra/logging"
	solanainfra "musicvault/internal/infra/solana"
)

func main() {
	logging.Setup()

	usd := flag.String("usd", "1.00", "album price in USD")
	from := flag.String("from", "", "payer wallet (base58)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("config", err)
	}

	price, err := decimal.NewFromString(*usd)
	if err != nil || !price.IsPositive() {
		fail("usd", fmt.Errorf("invalid price %q", *usd))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	oracle := usecase.NewPriceOracle(httpout.NewSolPriceFeedClient(cfg.SolPriceFeedURL, nil), cfg.OneUSDInXP)
	q := oracle.Quote(ctx, price, purchase.RailSOL)
	if !q.Resolved {
		fail("quote", fmt.Errorf("unresolved: %s", q.Err))
	}
	fmt.Printf("price: %s USD = %s SOL (%d lamports)\n", q.PriceUSD.StringFixed(2), q.Amount.String(), q.Lamports)

	if *from == "" {
		return
	}
	if cfg.SolServiceWallet == "" {
		fail("transfer", fmt.Errorf("SOL_SERVICE_WALLET is empty"))
	}
	for _, a := range []string{*from, cfg.SolServiceWallet} {
		if err := solanainfra.ValidateAddress(a); err != nil {
			fail("address", fmt.Errorf("%s: %w", a, err))
		}
	}

	transfer := solanainfra.NewSolTransfer(solanainfra.NewRPC(solanainfra.ResolveRPCURL(cfg.SolanaRPCURL)))
	unsigned, err := transfer.BuildTransfer(ctx, *from, cfg.SolServiceWallet, q.Lamports)
	if err != nil {
		fail("transfer", err)
	}
	fmt.Printf("blockhash: %s\n", unsigned.Blockhash)
	fmt.Printf("unsigned tx (base64): %s\n", base64.StdEncoding.EncodeToString(unsigned.Tx))
}

func fail(stage string, err error) {
	slog.Error("[devnet_sol_quote] failed", "stage", stage, "err", err)
	os.Exit(1)
}
