package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/gatewayd/internal/config"
	"github.com/codefionn/gatewayd/internal/protocol"
)

func TestHandleMessagesNonStreamingDispatchesToAnthropic(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		var req protocol.AnthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-sonnet-4-5-20250929", req.Model)

		resp := protocol.AnthropicResponse{
			ID:    "msg_1",
			Type:  "message",
			Role:  "assistant",
			Model: req.Model,
			Content: []protocol.AnthropicContentBlock{
				{OfText: &protocol.AnthropicTextBlock{Type: "text", Text: "hi there"}},
			},
			StopReason: "end_turn",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer upstream.Close()

	s, _ := newTestServer(t, upstream.URL, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := `{"model":"claude-sonnet-4-5","max_tokens":100,"messages":[{"role":"user","content":[{"type":"text","text":"hi"}]}]}`
	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded protocol.AnthropicResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "hi there", decoded.Content[0].OfText.Text)
}

func TestHandleMessagesUnknownModelReturns400(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := `{"model":"nonexistent","max_tokens":100,"messages":[]}`
	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleMessagesRejectsCustomProviderModel(t *testing.T) {
	s, cfg := newTestServer(t, "", []string{"myprovider"})
	cfg.SetCustomProvider(&config.CustomProviderConfig{Name: "myprovider", BaseURL: "http://example.invalid", APIKey: "key"})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := `{"model":"myprovider","max_tokens":100,"messages":[]}`
	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleMessagesStreamingRelaysBytesVerbatim(t *testing.T) {
	const sseBody = "event: message_start\ndata: {\"message\":{\"id\":\"msg_1\"}}\n\nevent: message_stop\ndata: {}\n\n"

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, sseBody)
	}))
	defer upstream.Close()

	s, _ := newTestServer(t, upstream.URL, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := `{"model":"claude-sonnet-4-5","max_tokens":100,"stream":true,"messages":[{"role":"user","content":[{"type":"text","text":"hi"}]}]}`
	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, sseBody, string(got))
}

func TestHandleMessagesRestoresThinkingBlockForToolUse(t *testing.T) {
	var captured protocol.AnthropicRequest

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := protocol.AnthropicResponse{ID: "msg_2", Type: "message", Role: "assistant", Model: captured.Model, StopReason: "end_turn"}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer upstream.Close()

	s, _ := newTestServer(t, upstream.URL, nil)
	s.thinking.Put("toolu_1", "reasoning about it", "sig-abc")

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := `{
		"model":"claude-sonnet-4-5","max_tokens":100,
		"messages":[
			{"role":"user","content":[{"type":"text","text":"do the thing"}]},
			{"role":"assistant","content":[{"type":"tool_use","id":"toolu_1","name":"search","input":{}}]},
			{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"result"}]}
		]
	}`
	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assistant := captured.Messages[1]
	require.NotEmpty(t, assistant.Content)
	require.NotNil(t, assistant.Content[0].OfThinking)
	assert.Equal(t, "reasoning about it", assistant.Content[0].OfThinking.Thinking)
	assert.Equal(t, "sig-abc", assistant.Content[0].OfThinking.Signature)
}
