package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/audit"
)

func load(t *testing.T, env map[string]string) *Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func TestDefaultsMatchEngineDefaults(t *testing.T) {
	cfg := load(t, nil)

	got := cfg.Audit.ToAuditConfig()
	assert.Equal(t, audit.DefaultConfig(), got)
	require.NoError(t, got.Validate())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Lock.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Broker.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.Audit.RunTimeout())
}

func TestEnvironmentOverrides(t *testing.T) {
	cfg := load(t, map[string]string{
		"AUDIT_TARGET_SERVICE_LEVEL":     "0.99",
		"AUDIT_MIN_NEW_INVOICES_RETRAIN": "5",
		"AUDIT_MAX_PRICE_DEVIATION":      "0.5",
		"AUDIT_PERSIST":                  "false",
		"KAFKA_BROKERS":                  "k1:9092, k2:9092,",
		"STORAGE_PREFIX":                 "/reports/",
	})

	got := cfg.Audit.ToAuditConfig()
	assert.Equal(t, 0.99, got.TargetServiceLevel)
	assert.Equal(t, 5, got.MinNewInvoicesForRetrain)
	assert.Equal(t, 0.5, got.MaxPriceDeviation)
	assert.False(t, got.Persist)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Brokers)
	assert.Equal(t, "reports", cfg.Storage.Prefix)
}

func TestRunTimeoutDisabled(t *testing.T) {
	assert.Zero(t, AuditSettings{}.RunTimeout())
}
