package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:8787", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.EnablePromptCache)
	assert.Equal(t, "5m", cfg.PromptCacheTTL)
	assert.NotNil(t, cfg.CustomProviders)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().ListenAddr, cfg.ListenAddr)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.ListenAddr = "0.0.0.0:9999"
	cfg.SetCustomProvider(&CustomProviderConfig{Name: "local", BaseURL: "http://localhost:11434/v1", APIKey: "secret"})

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", loaded.ListenAddr)
	provider, ok := loaded.CustomProvider("local")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434/v1", provider.BaseURL)
}

func TestSaveIsIdempotentWhenUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	firstModTime := info.ModTime()

	require.NoError(t, cfg.Save(path))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, firstModTime, info.ModTime())
}

func TestSecretsPasswordEncryptsCustomProviderKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	require.NoError(t, cfg.UpdateSecretsPassword("hunter2"))
	cfg.SetCustomProvider(&CustomProviderConfig{Name: "local", BaseURL: "http://localhost:11434/v1", APIKey: "plaintext-key"})
	require.NoError(t, cfg.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plaintext-key")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, loaded.ApplySecretsPassword("hunter2"))
	provider, ok := loaded.CustomProvider("local")
	require.True(t, ok)
	assert.Equal(t, "plaintext-key", provider.APIKey)
}

func TestApplySecretsPasswordRejectsWrongPassword(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.UpdateSecretsPassword("correct-password"))
	err := cfg.ApplySecretsPassword("wrong-password")
	assert.Error(t, err)
}
