package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/gatewayd/internal/config"
	"github.com/codefionn/gatewayd/internal/oauthstore"
)

func TestRunLogoutCommandClearsStoredToken(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	store := oauthstore.New(tokenPath)
	require.NoError(t, store.Save(&oauthstore.TokenRecord{
		AccessToken: "abc",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	configPath := filepath.Join(dir, "config.json")
	cfg := config.DefaultConfig()
	cfg.TokenStorePath = tokenPath
	require.NoError(t, cfg.Save(configPath))

	var stdout bytes.Buffer
	err := runLogoutCommand([]string{"--config", configPath}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Logged out")

	fresh := oauthstore.New(tokenPath)
	_, loadErr := fresh.Load()
	assert.ErrorIs(t, loadErr, oauthstore.ErrNoToken)
}
