package customprovider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointAppendsChatCompletionsSuffix(t *testing.T) {
	assert.Equal(t, "https://api.z.ai/v4/chat/completions", Endpoint("https://api.z.ai/v4"))
	assert.Equal(t, "https://api.z.ai/v4/chat/completions", Endpoint("https://api.z.ai/v4/"))
	assert.Equal(t, "https://api.z.ai/v4/chat/completions", Endpoint("https://api.z.ai/v4/chat/completions"))
}

func TestSendForwardsBodyAndAuth(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer server.Close()

	c := New(5 * time.Second)
	resp, status, err := c.Send(context.Background(), server.URL, "sk-test", []byte(`{"model":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, `{"model":"x"}`, string(gotBody))
	assert.Contains(t, string(resp), "chatcmpl-1")
}

func TestSendReturnsNonOKStatusWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	c := New(5 * time.Second)
	resp, status, err := c.Send(context.Background(), server.URL, "sk-test", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, string(resp), "rate limited")
}

func TestStreamRelaysSuccessfulBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"id\":\"1\"}\n\n"))
	}))
	defer server.Close()

	c := New(5 * time.Second)
	rc, err := c.Stream(context.Background(), server.URL, "sk-test", []byte(`{}`))
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"1"`)
}

func TestStreamSynthesizesErrorEventOnNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream exploded`))
	}))
	defer server.Close()

	c := New(5 * time.Second)
	rc, err := c.Stream(context.Background(), server.URL, "sk-test", []byte(`{}`))
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "event: error")
	assert.Contains(t, string(data), "upstream exploded")
}

func TestStreamSynthesizesErrorEventOnConnectionFailure(t *testing.T) {
	c := New(5 * time.Second)
	rc, err := c.Stream(context.Background(), "http://127.0.0.1:1", "sk-test", []byte(`{}`))
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "event: error")
}
