package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearCollabEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 300, cfg.PresenceTTLSeconds)
	assert.Equal(t, 30, cfg.LockTimeoutSeconds)
	assert.Equal(t, 2000, cfg.ActivityBatchMS)
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	clearCollabEnv(t)
	t.Setenv("LOCK_TIMEOUT_SECONDS", "45")
	t.Setenv("ESS_URL", "redis://ess.internal:6379/0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.LockTimeoutSeconds)
	assert.Equal(t, "redis://ess.internal:6379/0", cfg.ESSURL)
}

func TestLoadMissingOverlayIsNotAnError(t *testing.T) {
	clearCollabEnv(t)
	_, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
}

func clearCollabEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "ESS_URL", "ESS_READY_TIMEOUT_MS", "DSS_HOST", "DSS_PORT",
		"LOCK_TIMEOUT_SECONDS", "PRESENCE_TTL_SECONDS", "ACTIVITY_BATCH_MS",
	} {
		v, ok := os.LookupEnv(k)
		if ok {
			t.Cleanup(func(k, v string) func() { return func() { os.Setenv(k, v) } }(k, v))
		} else {
			t.Cleanup(func(k string) func() { return func() { os.Unsetenv(k) } }(k))
		}
		os.Unsetenv(k)
	}
}
