package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "LOG_LEVEL", "OIDC_ISSUER", "OIDC_CLIENT_ID", "OIDC_CLIENT_SECRET", "WEBHOOK_SECRET"} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.OIDC.ClientID)
	assert.Equal(t, 64, cfg.Engine.EmbeddingDim)
	assert.Equal(t, "memory", cfg.Persist.Backend)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	os.Setenv("PORT", "3000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("OIDC_ISSUER", "https://example.com")
	os.Setenv("OIDC_CLIENT_ID", "test-client")
	os.Setenv("OIDC_CLIENT_SECRET", "test-secret")
	defer clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://example.com", cfg.OIDC.Issuer)
	assert.Equal(t, "test-client", cfg.OIDC.ClientID)
	assert.Equal(t, "test-secret", cfg.OIDC.ClientSecret)
}

func TestLoadRejectsInvalidPersistBackend(t *testing.T) {
	clearEnv(t)
	os.Setenv("SHGAT_PERSIST_BACKEND", "not-a-backend")
	defer os.Unsetenv("SHGAT_PERSIST_BACKEND")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadRejectsCOSBackendWithoutBucket(t *testing.T) {
	clearEnv(t)
	os.Setenv("SHGAT_PERSIST_BACKEND", "cos")
	defer os.Unsetenv("SHGAT_PERSIST_BACKEND")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist.cos")
}
