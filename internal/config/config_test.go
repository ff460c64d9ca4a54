package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "Formulando-Webhook/1.0", cfg.Webhook.UserAgent)
	assert.Equal(t, "X-Formulando-Signature", cfg.Webhook.SignatureHeader)
	assert.Equal(t, 0, cfg.Webhook.MaxConcurrency)
	assert.Equal(t, 8, cfg.Queue.Workers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("WEBHOOK_TIMEOUT", "2s")
	t.Setenv("WEBHOOK_MAX_CONCURRENCY", "4")
	t.Setenv("OTEL_TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 2*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, 4, cfg.Webhook.MaxConcurrency)
	assert.True(t, cfg.Otel.EnableTracing)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown store driver", key: "STORE_DRIVER", val: "mysql"},
		{name: "zero timeout", key: "WEBHOOK_TIMEOUT", val: "0s"},
		{name: "negative concurrency", key: "WEBHOOK_MAX_CONCURRENCY", val: "-1"},
		{name: "no queue workers", key: "QUEUE_WORKERS", val: "0"},
		{name: "malformed duration", key: "WEBHOOK_TIMEOUT", val: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
