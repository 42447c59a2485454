package httpapi

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/codefionn/gatewayd/internal/config"
	"github.com/codefionn/gatewayd/internal/modelregistry"
	"github.com/codefionn/gatewayd/internal/oauth"
	"github.com/codefionn/gatewayd/internal/oauthstore"
	"github.com/codefionn/gatewayd/internal/thinkingcache"
	"github.com/codefionn/gatewayd/internal/upstream/anthropic"
	"github.com/codefionn/gatewayd/internal/upstream/customprovider"
)

// newTestServer wires a Server whose Anthropic client points at
// anthropicUpstream (an httptest.Server mocking api.anthropic.com) with a
// token that never needs refreshing, plus a registry carrying any declared
// custom provider names.
func newTestServer(t *testing.T, anthropicUpstream string, customProviders []string) (*Server, *config.Config) {
	t.Helper()

	dir := t.TempDir()
	store := oauthstore.New(filepath.Join(dir, "token.json"))
	err := store.Save(&oauthstore.TokenRecord{
		AccessToken: "test-access-token",
		ExpiresAt:   time.Now().Add(time.Hour),
		ObtainedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("seed token: %v", err)
	}

	mgr := oauth.NewManager(store)
	anthropicClient := anthropic.New(mgr, nil).WithBaseURL(anthropicUpstream)
	customClient := customprovider.New(10 * time.Second)
	registry := modelregistry.Build(customProviders)
	cache := thinkingcache.New(time.Minute, 16)

	cfg := config.DefaultConfig()

	s := New(cfg, store, registry, anthropicClient, customClient, cache, nil)
	t.Cleanup(s.Close)
	return s, cfg
}
