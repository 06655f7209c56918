package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ACME_ADMINISTRATOR", "0xadmin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "acme:orders:placed", cfg.RedisChannel)
	assert.Equal(t, "0xadmin", cfg.Administrator)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, 1024, cfg.NotifyQueueSize)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACME_ADMINISTRATOR", "0xadmin")
	t.Setenv("ACME_STORE", "mysql")
	t.Setenv("ACME_REDIS_ADDR", "redis:6379")
	t.Setenv("ACME_NOTIFY_WORKERS", "8")
	t.Setenv("ACME_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("ACME_LOG_FORMAT", "json")
	t.Setenv("ACME_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMySQL, cfg.Store)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 8, cfg.NotifyWorkers)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)

	log := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing administrator", env: map[string]string{}},
		{name: "unknown store", env: map[string]string{"ACME_ADMINISTRATOR": "0xadmin", "ACME_STORE": "postgres"}},
		{name: "zero workers", env: map[string]string{"ACME_ADMINISTRATOR": "0xadmin", "ACME_NOTIFY_WORKERS": "0"}},
		{name: "bad level", env: map[string]string{"ACME_ADMINISTRATOR": "0xadmin", "ACME_LOG_LEVEL": "loud"}},
		{name: "bad format", env: map[string]string{"ACME_ADMINISTRATOR": "0xadmin", "ACME_LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ACME_ADMINISTRATOR", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
