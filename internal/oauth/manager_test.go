package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/gatewayd/internal/oauthstore"
)

func decodeJSON(t *testing.T, r *http.Request, out *map[string]any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(out))
}

func newTestManager(t *testing.T, server *httptest.Server) *Manager {
	t.Helper()
	store := oauthstore.New(filepath.Join(t.TempDir(), "token.json"))
	m := NewManager(store)
	m.httpClient = server.Client()
	return m
}

func TestAuthorizeURLUsesNarrowScopeForLongLived(t *testing.T) {
	m := NewManager(oauthstore.New(filepath.Join(t.TempDir(), "token.json")))
	session, err := NewSession()
	require.NoError(t, err)

	broad := m.AuthorizeURL(session, "http://localhost:54545/callback", false)
	narrow := m.AuthorizeURL(session, "http://localhost:54545/callback", true)

	assert.Contains(t, broad, "scope=org%3Acreate_api_key")
	assert.Contains(t, narrow, "scope=user%3Ainference")
	assert.NotContains(t, narrow, "org%3Acreate_api_key")
	assert.Contains(t, broad, "code_challenge_method=S256")
	assert.Contains(t, broad, "state="+session.State)
}

func TestExchangeCodeSplitsStateSuffixAndPersists(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeJSON(t, r, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"sk-ant-oat01-abc","refresh_token":"refresh-1","expires_in":3600,"scope":"user:inference"}`))
	}))
	defer server.Close()

	m := newTestManager(t, server)
	m.httpClientOverrideURL(server.URL)

	session, err := NewSession()
	require.NoError(t, err)

	rec, err := m.ExchangeCode(context.Background(), "the-code#"+session.State, session, "http://localhost/cb", false)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-oat01-abc", rec.AccessToken)
	assert.True(t, rec.LongLived, "access tokens with the sk-ant-oat01- prefix are treated as long-lived regardless of the requested grant")
	assert.Equal(t, "the-code", gotBody["code"])
	assert.Equal(t, session.State, gotBody["state"])
}

func TestRefreshKeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","expires_in":3600}`))
	}))
	defer server.Close()

	m := newTestManager(t, server)
	m.httpClientOverrideURL(server.URL)

	current := &oauthstore.TokenRecord{AccessToken: "old-access", RefreshToken: "old-refresh"}
	rec, err := m.Refresh(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, "new-access", rec.AccessToken)
	assert.Equal(t, "old-refresh", rec.RefreshToken)
}

func TestRefreshIsNoopForLongLivedTokens(t *testing.T) {
	m := NewManager(oauthstore.New(filepath.Join(t.TempDir(), "token.json")))
	current := &oauthstore.TokenRecord{AccessToken: "sk-ant-oat01-x", LongLived: true}
	rec, err := m.Refresh(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, current.AccessToken, rec.AccessToken)
}

func TestObtainValidTokenSingleFlightsConcurrentRefreshes(t *testing.T) {
	var refreshCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCount, 1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"refreshed","refresh_token":"r2","expires_in":3600}`))
	}))
	defer server.Close()

	store := oauthstore.New(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&oauthstore.TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "r1",
		ExpiresAt:    time.Now().Add(1 * time.Minute), // within the refresh skew
	}))

	m := NewManager(store)
	m.httpClient = server.Client()
	m.httpClientOverrideURL(server.URL)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := m.ObtainValidToken(context.Background())
			require.NoError(t, err)
			results[i] = token
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCount), "concurrent callers should share a single refresh")
	for _, token := range results {
		assert.Equal(t, "refreshed", token)
	}
}
