package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.OpsPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "ORD", cfg.Ledger.OrderPrefix)
	assert.Equal(t, "pending", cfg.Ledger.DefaultStatus)
	assert.True(t, cfg.Ledger.HomeCityDriverFee.Equal(decimal.NewFromInt(2)))
	assert.True(t, cfg.Ledger.DefaultDriverFee.Equal(decimal.NewFromInt(3)))
	assert.False(t, cfg.DB.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 50, cfg.Relay.BatchSize)
	assert.Equal(t, 3, cfg.Relay.MaxAttempts)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("OPS_PORT", "9000")
	t.Setenv("ORDER_PREFIX", "TRP")
	t.Setenv("HOME_CITY", "Tripoli")
	t.Setenv("DEFAULT_DRIVER_FEE", "4.5")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("RELAY_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.OpsPort)
	assert.Equal(t, "TRP", cfg.Ledger.OrderPrefix)
	assert.Equal(t, "Tripoli", cfg.Ledger.HomeCity)
	assert.True(t, cfg.Ledger.DefaultDriverFee.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "250ms", cfg.Relay.PollingInterval.String())
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("OPS_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestBadDecimalFallsBackToDefault(t *testing.T) {
	t.Setenv("DEFAULT_DRIVER_FEE", "three")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Ledger.DefaultDriverFee.Equal(decimal.NewFromInt(3)))
}

func TestGetDBConnString(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=courierledger sslmode=disable",
		cfg.GetDBConnString())
}
