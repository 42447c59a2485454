package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/gatewayd/internal/config"
)

func TestBuildServerDepsConstructsEveryDependency(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.TokenStorePath = filepath.Join(dir, "token.json")
	cfg.RequestLogPath = filepath.Join(dir, "requests.db")
	cfg.SetCustomProvider(&config.CustomProviderConfig{Name: "local-llm", BaseURL: "http://localhost:11434"})

	deps, err := buildServerDeps(cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.tokenStore)
	assert.NotNil(t, deps.manager)
	assert.NotNil(t, deps.registry)
	assert.NotNil(t, deps.anthropic)
	assert.NotNil(t, deps.custom)
	assert.NotNil(t, deps.thinking)
	require.NotNil(t, deps.requests)

	_, ok := deps.registry.Entry("local-llm")
	assert.True(t, ok, "custom provider declared in config should be registered")
}

func TestBuildServerDepsToleratesMissingTokenFile(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.TokenStorePath = filepath.Join(dir, "does-not-exist.json")
	cfg.RequestLogPath = filepath.Join(dir, "requests.db")

	deps, err := buildServerDeps(cfg)
	require.NoError(t, err)
	defer deps.Close()
}
