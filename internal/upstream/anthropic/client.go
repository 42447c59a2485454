// Package anthropic is gatewayd's HTTP client for the upstream Anthropic
// Messages API, authenticated with a borrowed OAuth token instead of an
// API key. It sends the exact header signature the official Claude Code
// CLI sends so the subscription-backed token is accepted the same way it
// would be from the CLI itself.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/gatewayd/internal/consts"
	"github.com/codefionn/gatewayd/internal/logger"
	"github.com/codefionn/gatewayd/internal/oauth"
	"github.com/codefionn/gatewayd/internal/protocol"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
	maxRetries       = 3
	initialBackoff   = 500 * time.Millisecond
)

// Client sends Messages API requests using a token obtained from an
// oauth.Manager, refreshing and retrying once on a 401 and backing off on
// 429/5xx responses.
type Client struct {
	oauth      *oauth.Manager
	httpClient *http.Client
	log        *logger.Logger
	baseURL    string // overridden in tests
}

// New creates a Client backed by mgr for token acquisition.
func New(mgr *oauth.Manager, log *logger.Logger) *Client {
	return &Client{
		oauth:      mgr,
		httpClient: &http.Client{Timeout: 0}, // streaming responses manage their own deadlines via ctx
		log:        log,
	}
}

// WithBaseURL overrides the upstream host, for tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

func (c *Client) endpoint() string {
	base := c.baseURL
	if base == "" {
		base = defaultBaseURL
	}
	return base + messagesPath
}

// Send performs a non-streaming Messages API call and returns the decoded
// response.
func (c *Client) Send(ctx context.Context, req *protocol.AnthropicRequest, betas []string) (*protocol.AnthropicResponse, error) {
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	respBody, err := c.doWithRetry(ctx, body, betas, false)
	if err != nil {
		return nil, err
	}

	var resp protocol.AnthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}
	return &resp, nil
}

// Stream performs a streaming Messages API call and returns the raw
// response body for the caller to parse as Server-Sent Events. The caller
// owns closing the returned reader. A 401 triggers one forced refresh and
// resend before the stream begins; once bytes start flowing, mid-stream
// errors are the caller's problem to surface as synthetic SSE events.
func (c *Client) Stream(ctx context.Context, req *protocol.AnthropicRequest, betas []string) (io.ReadCloser, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	resp, err := c.send(ctx, body, betas)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if _, rerr := c.oauth.ForceRefresh(ctx); rerr != nil {
			return nil, fmt.Errorf("anthropic: stream 401 and refresh failed: %w", rerr)
		}
		resp, err = c.send(ctx, body, betas)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: errBody}
	}

	return resp.Body, nil
}

// doWithRetry performs request/response with backoff on 429/5xx and a
// single forced-refresh retry on 401.
func (c *Client) doWithRetry(ctx context.Context, body []byte, betas []string, refreshed bool) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.send(ctx, body, betas)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("anthropic: read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !refreshed:
			c.debugf("got 401, forcing token refresh")
			if _, rerr := c.oauth.ForceRefresh(ctx); rerr != nil {
				return nil, fmt.Errorf("anthropic: 401 and refresh failed: %w", rerr)
			}
			return c.doWithRetry(ctx, body, betas, true)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: respBody}
			c.debugf("retrying after status %d (attempt %d/%d)", resp.StatusCode, attempt+1, maxRetries)
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
		default:
			return respBody, nil
		}
	}

	return nil, fmt.Errorf("anthropic: exhausted retries: %w", lastErr)
}

func (c *Client) send(ctx context.Context, body []byte, betas []string) (*http.Response, error) {
	token, err := c.oauth.ObtainValidToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("anthropic: obtain token: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}

	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("authorization", "Bearer "+token)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("anthropic-beta", strings.Join(betas, ","))
	httpReq.Header.Set("x-app", consts.UpstreamXApp)
	httpReq.Header.Set("User-Agent", consts.UpstreamUserAgent)
	httpReq.Header.Set("accept-language", "*")
	httpReq.Header.Set("sec-fetch-mode", "cors")
	for k, v := range consts.StainlessHeaders {
		httpReq.Header.Set(k, v)
	}

	return c.httpClient.Do(httpReq)
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Debug(format, args...)
	}
}

// StatusError is returned for a non-2xx response the caller should see the
// upstream body for.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("anthropic: upstream returned %d: %s", e.StatusCode, string(e.Body))
}
