// Package gwerr defines the sentinel error kinds gatewayd surfaces across
// package boundaries, so callers can branch on cause with errors.Is
// instead of string matching.
package gwerr

import "errors"

var (
	// ErrNoCredentials means no OAuth token or custom provider key is configured.
	ErrNoCredentials = errors.New("gatewayd: no credentials configured")
	// ErrReauthRequired means the stored token is unusable and the user must run login again.
	ErrReauthRequired = errors.New("gatewayd: re-authentication required")
	// ErrRefreshFailed means a token refresh attempt was made and rejected by the upstream.
	ErrRefreshFailed = errors.New("gatewayd: token refresh failed")
	// ErrUnknownModel means the requested model id does not resolve in the registry.
	ErrUnknownModel = errors.New("gatewayd: unknown model")
	// ErrUpstreamProtocol means the upstream returned a response gatewayd could not parse.
	ErrUpstreamProtocol = errors.New("gatewayd: upstream protocol error")
	// ErrTranslation means a request or response could not be translated between wire formats.
	ErrTranslation = errors.New("gatewayd: translation error")
)
