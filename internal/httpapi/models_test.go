package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealthzReportsOK(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleModelsListsBaseAndReasoningVariants(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Object string           `json:"object"`
		Data   []modelListEntry `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "list", body.Object)

	ids := make(map[string]modelListEntry)
	for _, e := range body.Data {
		ids[e.ID] = e
	}
	for _, want := range []string{"claude-sonnet-4-5", "claude-sonnet-4-5-reasoning-low", "claude-sonnet-4-5-reasoning-medium", "claude-sonnet-4-5-reasoning-high"} {
		entry, ok := ids[want]
		require.True(t, ok, "expected model %s in listing", want)
		assert.Equal(t, "model", entry.Object)
		assert.Positive(t, entry.ContextLength)
		assert.Positive(t, entry.MaxCompletionTokens)
	}
}

func TestHandleAuthStatusReportsStoredToken(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/auth/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body authStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Authenticated)
	assert.Equal(t, "ephemeral", body.Type)
	require.NotNil(t, body.ExpiresAt)
}
