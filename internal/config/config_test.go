package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesOnlySetKeys(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
order:
  currency: USD
  shipping_fee_cents: 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "USD", cfg.Order.Currency)
	require.EqualValues(t, 500, cfg.Order.ShippingFeeCents)

	// 没出现在文件里的键保持默认
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8081, cfg.AdminServer.Port)
	require.Equal(t, "order_events", cfg.RabbitMQ.EventQueue)
}

func TestTxTimeoutFallback(t *testing.T) {
	require.Equal(t, 5*time.Second, OrderConfig{}.TxTimeout())
	require.Equal(t, 12*time.Second, OrderConfig{TxTimeoutSeconds: 12}.TxTimeout())
}
