package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) (*Config, error) {
	t.Helper()
	v, err := LoadConfig()
	require.NoError(t, err)
	return ParseConfig(v)
}

func TestDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "1.0.0", cfg.Server.AppVersion)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 1, cfg.Queue.MaxConcurrency)
	assert.Equal(t, 64, cfg.Queue.MaxPending)
	assert.Equal(t, "./bin/basisu", cfg.Compressor.Binary)
	assert.Equal(t, 5*time.Minute, cfg.Compressor.Timeout)
	assert.Equal(t, "temp-", cfg.Compressor.DirPrefix)
	assert.Equal(t, int64(64), cfg.Upload.MaxBodyMB)
	assert.Empty(t, cfg.Cache.Addr)
	assert.Empty(t, cfg.Events.Brokers)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestPortFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Server.Port)
}

func TestPrefixedEnvironmentOverrides(t *testing.T) {
	t.Setenv("KTX2_QUEUE_MAX_CONCURRENCY", "4")
	t.Setenv("KTX2_COMPRESSOR_TIMEOUT", "30s")
	t.Setenv("KTX2_EVENTS_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Queue.MaxConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Compressor.Timeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "zero concurrency", key: "KTX2_QUEUE_MAX_CONCURRENCY", val: "0"},
		{name: "non numeric port", key: "PORT", val: "http"},
		{name: "unknown log level", key: "KTX2_LOG_LEVEL", val: "loud"},
		{name: "prefix with path separator", key: "KTX2_COMPRESSOR_DIR_PREFIX", val: "../escape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := load(t)
			assert.Error(t, err)
		})
	}
}
