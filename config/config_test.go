package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 3, cfg.TaskMaxRetry)
	assert.Equal(t, 10*time.Second, cfg.TaskBackoffBase)
	assert.Equal(t, 10*time.Minute, cfg.TaskBackoffMax)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, "no-reply@order-system.com", cfg.FromEmail)
	assert.Equal(t, 2525, cfg.EmailPort)
	assert.Empty(t, cfg.EmailHost)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TASK_MAX_RETRY", "5")
	t.Setenv("TASK_BACKOFF_BASE", "250ms")
	t.Setenv("STORAGE_BACKEND", "gcs")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.TaskMaxRetry)
	assert.Equal(t, 250*time.Millisecond, cfg.TaskBackoffBase)
	assert.Equal(t, "gcs", cfg.StorageBackend)
}
