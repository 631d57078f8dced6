package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"musicvault/internal/infra/config"
)

func TestLoad(t *testing.T) {
	t.Run("ok, defaults", func(t *testing.T) {
		t.Setenv("GCP_PROJECT_ID", "proj-x")

		cfg, err := config.Load()
		require.NoError(t, err)
		require.Equal(t, "8080", cfg.Port)
		require.Equal(t, "proj-x", cfg.GetFirestoreProjectID())
		require.Equal(t, "proj-x", cfg.GetFirebaseProjectID())
		require.Equal(t, int64(1000), cfg.OneUSDInXP)
		require.Equal(t, 90*time.Second, cfg.SolConfirmTimeout)
		require.Equal(t, "http", cfg.PaymentLogSink)
		require.True(t, cfg.AuthRequired)
		require.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
	})

	t.Run("ok, yaml file then env override", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "./testdata/config.yaml")
		t.Setenv("ONE_USD_IN_XP", "3000")

		cfg, err := config.Load()
		require.NoError(t, err)
		require.Equal(t, int64(3000), cfg.OneUSDInXP)
		require.Equal(t, "onchain", cfg.MintMode)
		require.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", cfg.SolServiceWallet)
	})

	t.Run("fail, unknown sink", func(t *testing.T) {
		t.Setenv("PAYMENT_LOG_SINK", "kafka")

		_, err := config.Load()
		require.Error(t, err)
	})

	t.Run("fail, missing config file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "./testdata/nope.yaml")

		_, err := config.Load()
		require.Error(t, err)
	})
}
