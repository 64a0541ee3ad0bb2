package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/entitlements/pkg/types"
)

const sample = `
server:
  port: 9000
catalog:
  products:
    - product_id: com.app.plus_weekly
      provider_id: apple
      type: auto_renewable_subscription
      price_micros: 2000000
      currency_code: USD
    - product_id: plus
      provider_id: google
      base_plan_id: plus-monthly
      price_micros: 6000000
      currency_code: USD
allowances:
  plus:
    live: 100
    call: 10
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNew_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("APP_CONFIG_FILE", "")
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, 8888, cfg.Server.Port)
	require.Equal(t, DriverPostgres, cfg.RemoteStore.Driver)
	require.Equal(t, 2*time.Minute, cfg.Reconcile.OptimisticTrustWindow)
	require.Empty(t, cfg.ConfigFile)

	a, ok := cfg.AllowanceFor(types.TierPro)
	require.True(t, ok)
	require.EqualValues(t, 72000, a.LiveSeconds)
	_, ok = cfg.AllowanceFor(types.TierNone)
	require.False(t, ok)
}

func TestNew_ReadsFileFromEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sample)
	t.Setenv("APP_CONFIG_FILE", path)

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, path, cfg.ConfigFile)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Len(t, cfg.Catalog.Products, 2)

	a, ok := cfg.AllowanceFor(types.TierPlus)
	require.True(t, ok)
	require.Equal(t, types.Allowance{LiveSeconds: 100, CallSeconds: 10}, a)

	p, err := cfg.GetProductByProvider(types.PaymentProviderGoogle, "plus", "plus-monthly")
	require.NoError(t, err)
	require.EqualValues(t, 6000000, p.PriceMicros)
	_, err = cfg.GetProductByProvider(types.PaymentProviderGoogle, "plus", "plus-yearly")
	require.Error(t, err)
	require.NotNil(t, cfg.GetProductByID("com.app.plus_weekly"))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sample)

	var port atomic.Int64
	require.NoError(t, Watch(path, func(cfg *Config, err error) {
		if err == nil {
			port.Store(int64(cfg.Server.Port))
		}
	}))

	require.Eventually(t, func() bool {
		// rewrite until the watcher, started asynchronously, sees a write
		_ = os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600)
		return port.Load() == 9100
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_EmptyFileIsNoop(t *testing.T) {
	require.NoError(t, Watch("", func(*Config, error) { t.Fatal("unexpected reload") }))
	require.Error(t, Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config, error) {}))
}
