package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpout "musicvault/internal/adapters/out/http"
	stripeout "musicvault/internal/adapters/out/stripe"
	appcfg "musicvault/internal/infra/config"
)

func TestBuildLedgerRepo_HTTP(t *testing.T) {
	repo := buildLedgerRepo(&appcfg.Config{PaymentLogSink: "http", PaymentLogURL: "http://log"}, &Infra{})
	_, ok := repo.(*httpout.PaymentLogClient)
	assert.True(t, ok)
}

func TestBuildMintRequestRepo_NoStore(t *testing.T) {
	assert.Nil(t, buildMintRequestRepo(&Infra{}))
}

func TestBuildMinter(t *testing.T) {
	assert.Nil(t, buildMinter(context.Background(), &appcfg.Config{MintMode: "http"}, &Infra{}))

	m := buildMinter(context.Background(), &appcfg.Config{MintMode: "http", MintAPIURL: "http://mint"}, &Infra{})
	_, ok := m.(*httpout.MintClient)
	assert.True(t, ok)

	// secret 名が無ければ onchain は無効
	assert.Nil(t, buildMinter(context.Background(), &appcfg.Config{MintMode: "onchain"}, &Infra{}))
}

func TestBuildCardIntentCreator(t *testing.T) {
	assert.Nil(t, buildCardIntentCreator(context.Background(), &appcfg.Config{}))

	c := buildCardIntentCreator(context.Background(), &appcfg.Config{StripeSecretKey: "sk_test_123"})
	_, ok := c.(*stripeout.PaymentIntentCreator)
	require.True(t, ok)

	c = buildCardIntentCreator(context.Background(), &appcfg.Config{CardIntentURL: "http://cards"})
	_, ok = c.(*httpout.CardIntentClient)
	assert.True(t, ok)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty(" ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
	assert.Equal(t, "***/key.json", redactPath(`C:\secrets\key.json`))
	assert.Equal(t, "", redactPath(""))
}
