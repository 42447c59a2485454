package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/gatewayd/internal/modelregistry"
	"github.com/codefionn/gatewayd/internal/normalize"
	"github.com/codefionn/gatewayd/internal/protocol"
)

// handleMessages accepts an Anthropic-shaped request body natively,
// normalizes it, and dispatches it to the Anthropic upstream. A streaming
// request's SSE body is relayed byte-for-byte; gatewayd performs no
// translation on this path.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req protocol.AnthropicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAnthropicError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	entry, err := s.registry.Resolve(req.Model)
	if err != nil {
		writeAnthropicError(w, statusForError(err), err.Error())
		return
	}
	setRequestModel(r.Context(), entry.ID)
	if entry.Route == modelregistry.RouteCustom {
		writeAnthropicError(w, http.StatusBadRequest, "custom provider models are not available on /v1/messages")
		return
	}

	req.Model = entry.AnthropicID
	if req.Thinking == nil && entry.ReasoningLevel != "" {
		req.Thinking = &protocol.AnthropicThinking{Type: "enabled", BudgetTokens: entry.ReasoningBudget}
	}

	restoreThinkingBlocks(&req, s.thinking)

	betas := normalize.Normalize(&req, s.normalizeOptions(entry))

	if req.Stream {
		s.streamMessagesNative(w, r, &req, betas)
		return
	}

	resp, err := s.anthropic.Send(r.Context(), &req, betas)
	if err != nil {
		s.log.Error("[%s] messages request failed: %v", requestIDFromContext(r.Context()), err)
		writeAnthropicError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) normalizeOptions(entry modelregistry.Entry) normalize.Options {
	opts := normalize.Options{Use1MContext: entry.Use1MContext}
	if s.cfg.EnablePromptCache {
		opts.PromptCacheTTL = s.cfg.PromptCacheTTL
	}
	return opts
}

func (s *Server) streamMessagesNative(w http.ResponseWriter, r *http.Request, req *protocol.AnthropicRequest, betas []string) {
	body, err := s.anthropic.Stream(r.Context(), req, betas)
	if err != nil {
		writeAnthropicError(w, statusForError(err), err.Error())
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				s.log.Warn("stream read error after bytes flowed: %v", readErr)
			}
			return
		}
	}
}
