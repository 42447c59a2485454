// Package oauth implements the OAuth 2.0 + PKCE flow gatewayd borrows from
// the Claude Code CLI to mint and refresh credentials against a Claude
// Pro/Max subscription, plus the single-flight refresh coordination used by
// every upstream request.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/codefionn/gatewayd/internal/consts"
	"github.com/codefionn/gatewayd/internal/gwerr"
	"github.com/codefionn/gatewayd/internal/logger"
	"github.com/codefionn/gatewayd/internal/oauthstore"
)

// RedirectURI is the fixed OAuth redirect target gatewayd registers as,
// matching the official Claude Code CLI's own registration. The
// authorization code lands on that page for the user to copy back, rather
// than gatewayd running a local callback listener.
const RedirectURI = "https://console.anthropic.com/oauth/code/callback"

const (
	authorizeURL = "https://claude.ai/oauth/authorize"
	tokenURL     = "https://console.anthropic.com/v1/oauth/token"
	clientID     = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"

	broadScopes     = "org:create_api_key user:profile user:inference user:sessions:claude_code"
	longLivedScopes = "user:inference"

	// longLivedTokenPrefix marks an access token minted with a custom,
	// long-lived expiry rather than the default short-lived grant.
	longLivedTokenPrefix = "sk-ant-oat01-"
)

// Manager drives the OAuth flow and keeps exactly one refresh in flight at
// a time, matching the spec's single-flight requirement for concurrent
// callers racing a near-expiry token.
type Manager struct {
	store      *oauthstore.Store
	httpClient *http.Client
	log        *logger.Logger

	refreshMu      sync.Mutex
	refreshPending *refreshCall

	tokenURLOverride string // set only by tests
}

type refreshCall struct {
	done chan struct{}
	rec  *oauthstore.TokenRecord
	err  error
}

// NewManager constructs a Manager backed by store.
func NewManager(store *oauthstore.Store) *Manager {
	return &Manager{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.Global().WithPrefix("oauth"),
	}
}

// AuthorizeURL builds the browser URL the user visits to grant access.
// When longLived is true the request asks for the narrow "user:inference"
// scope only, since the broader scopes used for the default grant don't
// permit a custom expires_in later.
func (m *Manager) AuthorizeURL(session *Session, redirectURI string, longLived bool) string {
	scope := broadScopes
	if longLived {
		scope = longLivedScopes
	}

	q := url.Values{}
	q.Set("code", "true")
	q.Set("client_id", clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", scope)
	q.Set("code_challenge", codeChallenge(session.CodeVerifier))
	q.Set("code_challenge_method", "S256")
	q.Set("state", session.State)

	return authorizeURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// ExchangeCode trades an authorization code for tokens. The code as pasted
// back by the user may carry a "#state" suffix; it is split off here.
// When longLived is true the exchange requests a custom one-year expiry,
// per the upstream's "user:inference"-only long-lived grant.
func (m *Manager) ExchangeCode(ctx context.Context, code string, session *Session, redirectURI string, longLived bool) (*oauthstore.TokenRecord, error) {
	actualCode, state := splitCode(code)
	if state == "" {
		state = session.State
	}

	body := map[string]any{
		"code":          actualCode,
		"state":         state,
		"grant_type":    "authorization_code",
		"client_id":     clientID,
		"redirect_uri":  redirectURI,
		"code_verifier": session.CodeVerifier,
	}
	if longLived {
		body["expires_in"] = consts.OneYearSeconds
	}

	resp, err := m.postToken(ctx, body)
	if err != nil {
		return nil, err
	}

	rec := &oauthstore.TokenRecord{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Scope:        resp.Scope,
		LongLived:    longLived || strings.HasPrefix(resp.AccessToken, longLivedTokenPrefix),
		ObtainedAt:   time.Now(),
	}
	if resp.ExpiresIn > 0 {
		rec.ExpiresAt = rec.ObtainedAt.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if err := m.store.Save(rec); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	return rec, nil
}

func splitCode(raw string) (code, state string) {
	if idx := strings.Index(raw, "#"); idx >= 0 {
		return raw[:idx], raw[idx+1:]
	}
	return raw, ""
}

// Refresh exchanges a refresh token for a new access token. Long-lived
// tokens are never refreshed by design — the caller should not reach here
// for one, but this guards against it anyway.
func (m *Manager) Refresh(ctx context.Context, current *oauthstore.TokenRecord) (*oauthstore.TokenRecord, error) {
	if current.LongLived {
		return current, nil
	}
	if current.RefreshToken == "" {
		return nil, fmt.Errorf("oauth: no refresh token available")
	}

	body := map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": current.RefreshToken,
		"client_id":     clientID,
	}

	resp, err := m.postToken(ctx, body)
	if err != nil {
		return nil, err
	}

	rec := &oauthstore.TokenRecord{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Scope:        resp.Scope,
		LongLived:    false,
		ObtainedAt:   time.Now(),
	}
	if rec.RefreshToken == "" {
		rec.RefreshToken = current.RefreshToken
	}
	if resp.ExpiresIn > 0 {
		rec.ExpiresAt = rec.ObtainedAt.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if err := m.store.Save(rec); err != nil {
		return nil, fmt.Errorf("persist refreshed token: %w", err)
	}
	return rec, nil
}

func (m *Manager) postToken(ctx context.Context, body map[string]any) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := tokenURL
	if m.tokenURLOverride != "" {
		endpoint = m.tokenURLOverride
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth token request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth token request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	return &tr, nil
}

// httpClientOverrideURL points token requests at a test server instead of
// the real Anthropic endpoint. Only ever called from tests.
func (m *Manager) httpClientOverrideURL(url string) {
	m.tokenURLOverride = url
}

// SetTokenEndpointForTesting points token requests at a test server instead
// of the real Anthropic endpoint. Exported so other packages' tests (e.g.
// an upstream client exercising a 401-triggered refresh) can set it up
// without a same-package test helper.
func (m *Manager) SetTokenEndpointForTesting(url string) {
	m.tokenURLOverride = url
}

// ObtainValidToken returns an access token guaranteed not to be within the
// refresh skew of expiry, refreshing it if necessary. A long-lived token is
// never refreshed: it is returned as is until it expires, after which the
// call fails with gwerr.ErrReauthRequired. Concurrent callers
// that observe a stale token while a refresh is already in flight share its
// outcome instead of each starting their own refresh.
func (m *Manager) ObtainValidToken(ctx context.Context) (string, error) {
	rec, ok := m.store.Current()
	if !ok {
		loaded, err := m.store.Load()
		if err != nil {
			return "", err
		}
		rec = loaded
	}

	if rec.LongLived {
		if rec.IsExpired(time.Now(), 0) {
			return "", gwerr.ErrReauthRequired
		}
		return rec.AccessToken, nil
	}
	if !rec.IsExpired(time.Now(), consts.TokenRefreshSkew) {
		return rec.AccessToken, nil
	}

	refreshed, err := m.refreshSingleFlight(ctx, rec)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// ForceRefresh discards the current token's freshness assumption (used
// after a 401 from the upstream) and refreshes unconditionally.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	rec, ok := m.store.Current()
	if !ok {
		loaded, err := m.store.Load()
		if err != nil {
			return "", err
		}
		rec = loaded
	}
	refreshed, err := m.refreshSingleFlight(ctx, rec)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

func (m *Manager) refreshSingleFlight(ctx context.Context, current *oauthstore.TokenRecord) (*oauthstore.TokenRecord, error) {
	m.refreshMu.Lock()
	if call := m.refreshPending; call != nil {
		m.refreshMu.Unlock()
		<-call.done
		return call.rec, call.err
	}

	call := &refreshCall{done: make(chan struct{})}
	m.refreshPending = call
	m.refreshMu.Unlock()

	rec, err := m.Refresh(ctx, current)

	call.rec, call.err = rec, err
	close(call.done)

	m.refreshMu.Lock()
	m.refreshPending = nil
	m.refreshMu.Unlock()

	return rec, err
}
