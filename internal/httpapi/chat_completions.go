package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/gatewayd/internal/logger"
	"github.com/codefionn/gatewayd/internal/modelregistry"
	"github.com/codefionn/gatewayd/internal/normalize"
	"github.com/codefionn/gatewayd/internal/protocol"
	"github.com/codefionn/gatewayd/internal/protocol/openai"
	"github.com/codefionn/gatewayd/internal/protocol/openai/streaming"
	"github.com/codefionn/gatewayd/internal/sse"
)

const sseMaxLineBytes = 1024 * 1024

// handleChatCompletions accepts an OpenAI Chat Completions request, resolves
// its model, and either forwards it untranslated to a custom provider or
// translates it to Anthropic's wire shape, normalizes it, and dispatches it
// over OAuth.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req protocol.OpenAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	entry, err := s.registry.Resolve(req.Model)
	if err != nil {
		writeOpenAIError(w, statusForError(err), err.Error())
		return
	}
	setRequestModel(r.Context(), entry.ID)

	if entry.Route == modelregistry.RouteCustom {
		s.dispatchCustomProvider(w, r, &req, entry)
		return
	}
	s.dispatchAnthropic(w, r, &req, entry)
}

func (s *Server) dispatchCustomProvider(w http.ResponseWriter, r *http.Request, req *protocol.OpenAIRequest, entry modelregistry.Entry) {
	provider, ok := s.cfg.CustomProvider(entry.CustomProvider)
	if !ok {
		writeOpenAIError(w, http.StatusBadRequest, fmt.Sprintf("custom provider %q is not configured", entry.CustomProvider))
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		writeOpenAIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Stream {
		upstream, err := s.custom.Stream(r.Context(), provider.BaseURL, provider.APIKey, body)
		if err != nil {
			writeOpenAIError(w, http.StatusBadGateway, err.Error())
			return
		}
		defer upstream.Close()
		relaySSE(w, upstream, s.log)
		return
	}

	respBody, status, err := s.custom.Send(r.Context(), provider.BaseURL, provider.APIKey, body)
	if err != nil {
		writeOpenAIError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(respBody)
}

func (s *Server) dispatchAnthropic(w http.ResponseWriter, r *http.Request, req *protocol.OpenAIRequest, entry modelregistry.Entry) {
	anthropicReq, err := openai.RequestToAnthropic(req, entry.AnthropicID)
	if err != nil {
		writeOpenAIError(w, statusForError(err), err.Error())
		return
	}

	if _, budget, ok := openai.ResolveReasoning(req.ReasoningEffort, entry.ReasoningLevel, entry.ReasoningBudget, modelregistry.ReasoningBudgets); ok {
		openai.ApplyReasoning(anthropicReq, budget, true)
	}

	restoreThinkingBlocks(anthropicReq, s.thinking)

	betas := normalize.Normalize(anthropicReq, s.normalizeOptions(entry))

	if req.Stream {
		s.streamChatCompletions(w, r, anthropicReq, betas, req.Model)
		return
	}

	resp, err := s.anthropic.Send(r.Context(), anthropicReq, betas)
	if err != nil {
		s.log.Error("[%s] chat completions request failed: %v", requestIDFromContext(r.Context()), err)
		writeOpenAIError(w, statusForError(err), err.Error())
		return
	}

	out := openai.ResponseFromAnthropic(resp, req.Model, time.Now().Unix())
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) streamChatCompletions(w http.ResponseWriter, r *http.Request, req *protocol.AnthropicRequest, betas []string, clientModel string) {
	body, err := s.anthropic.Stream(r.Context(), req, betas)
	if err != nil {
		writeOpenAIError(w, statusForError(err), err.Error())
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	converter := streaming.New(clientModel, time.Now().Unix(), s.thinking)
	reader := sse.NewReader(body, sseMaxLineBytes)

	for {
		ev, err := reader.Next()
		if err != nil {
			if err != io.EOF {
				s.log.Warn("chat completions stream read error: %v", err)
			}
			break
		}

		chunks, done, cerr := converter.Feed(ev)
		if cerr != nil {
			s.log.Warn("chat completions stream conversion error: %v", cerr)
			break
		}
		for _, chunk := range chunks {
			if !writeChunk(w, chunk) {
				return
			}
		}
		if flusher != nil {
			flusher.Flush()
		}
		if done {
			break
		}
	}

	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	if flusher != nil {
		flusher.Flush()
	}
}

func writeChunk(w http.ResponseWriter, chunk *protocol.OpenAIChunk) bool {
	data, err := json.Marshal(chunk)
	if err != nil {
		return true
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	return true
}

// relaySSE forwards a custom provider's already-OpenAI-shaped SSE stream
// line-for-line, ensuring the downstream response still ends with the
// literal DONE marker even if the upstream omitted it.
func relaySSE(w http.ResponseWriter, upstream io.Reader, log *logger.Logger) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), sseMaxLineBytes)
	sawDone := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "data: [DONE]" {
			sawDone = true
		}
		if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("custom provider stream read error: %v", err)
	}
	if !sawDone {
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
	}
}
