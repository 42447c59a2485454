// Package normalize applies the ordered transformations gatewayd performs
// on every Anthropic-bound request before it leaves the process: stripping
// invalid sampling parameters, tightening parameters for extended thinking,
// injecting the Claude Code spoof system message, annotating prompt-cache
// boundaries, and assembling the anthropic-beta header. Custom provider
// requests never pass through this package — they're forwarded verbatim.
package normalize

import (
	"encoding/json"

	"github.com/codefionn/gatewayd/internal/consts"
	"github.com/codefionn/gatewayd/internal/protocol"
)

// SpoofSystemMessage is prepended as the first system content block on
// every Anthropic-bound request so the upstream sees the same client
// identity the official Claude Code CLI presents.
const SpoofSystemMessage = "You are Claude Code, Anthropic's official CLI for Claude."

const (
	betaOAuth                 = "oauth-2025-04-20"
	betaContext1M             = "context-1m-2025-08-07"
	betaInterleavedThinking   = "interleaved-thinking-2025-05-14"
	betaFineGrainedToolStream = "fine-grained-tool-streaming-2025-05-14"
)

// Options carries the per-request facts Normalize needs beyond the request
// body itself.
type Options struct {
	Use1MContext   bool
	PromptCacheTTL string // "5m" or "1h"; empty disables cache annotation
}

// Normalize runs every pass in order and returns the anthropic-beta flags
// to send alongside the mutated request. Client-supplied beta flags are
// never consulted — gatewayd always decides the beta set itself, so a
// client can't accidentally (or deliberately) request an upstream feature
// gatewayd hasn't been validated against.
func Normalize(req *protocol.AnthropicRequest, opts Options) []string {
	SanitizeParams(req)
	TightenForThinking(req)
	InjectSpoofMessage(req)
	if opts.PromptCacheTTL != "" {
		AnnotatePromptCache(req, opts.PromptCacheTTL)
	}
	return AssembleBetaFlags(req, opts)
}

// SanitizeParams drops sampling parameters that are present but invalid,
// rather than forwarding them and letting the upstream reject the whole
// request. top_p gets both a type check and a [0,1] range check;
// temperature gets only the type check (JSON decoding already guarantees
// numeric-or-nil, so in practice this just documents the asymmetry — the
// upstream itself enforces temperature's range and rejects it there).
func SanitizeParams(req *protocol.AnthropicRequest) {
	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		req.TopP = nil
	}
	if req.TopK != nil && *req.TopK <= 0 {
		req.TopK = nil
	}
	if len(req.Tools) == 0 {
		req.Tools = nil
	}
}

// TightenForThinking enforces Anthropic's constraints when extended
// thinking is enabled: temperature must be exactly 1.0, top_p must fall in
// [0.95, 1.0], top_k must be absent, and max_tokens must cover the
// thinking budget plus headroom for the visible response.
func TightenForThinking(req *protocol.AnthropicRequest) {
	if req.Thinking == nil || req.Thinking.Type != "enabled" {
		return
	}

	one := 1.0
	req.Temperature = &one

	if req.TopP != nil {
		clamped := *req.TopP
		if clamped < 0.95 {
			clamped = 0.95
		}
		if clamped > 1.0 {
			clamped = 1.0
		}
		req.TopP = &clamped
	}

	req.TopK = nil

	floor := req.Thinking.BudgetTokens + consts.ThinkingMaxTokensHeadroom
	if req.MaxTokens < floor {
		req.MaxTokens = floor
	}
}

// InjectSpoofMessage prepends SpoofSystemMessage as the first block of the
// system prompt, converting a bare string system field into array form if
// necessary. Idempotent: if the sentinel is already the first block, the
// request is left unchanged, so calling Normalize twice on the same
// request never duplicates it.
func InjectSpoofMessage(req *protocol.AnthropicRequest) {
	blocks := systemAsBlocks(req.System)
	if len(blocks) > 0 && blocks[0].Type == "text" && blocks[0].Text == SpoofSystemMessage {
		return
	}

	spoofed := append([]protocol.AnthropicTextBlock{{Type: "text", Text: SpoofSystemMessage}}, blocks...)
	raw, err := json.Marshal(spoofed)
	if err != nil {
		return
	}
	req.System = raw
}

func systemAsBlocks(raw json.RawMessage) []protocol.AnthropicTextBlock {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []protocol.AnthropicTextBlock{{Type: "text", Text: s}}
	}

	var blocks []protocol.AnthropicTextBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks
	}
	return nil
}

// AnnotatePromptCache marks up to consts.MaxPromptCacheBlocks content
// blocks as ephemeral cache boundaries, in priority order: the last tool
// definition, the last system block, then the last content block of each
// of the last two user messages when that block is a text block (other
// block types are left unmarked). Requests that already carry
// MaxPromptCacheBlocks or more cache_control markers are left untouched.
func AnnotatePromptCache(req *protocol.AnthropicRequest, ttl string) {
	existing := countCacheControls(req)
	remaining := consts.MaxPromptCacheBlocks - existing
	if remaining <= 0 {
		return
	}

	mark := func() *protocol.CacheControl {
		remaining--
		return &protocol.CacheControl{Type: "ephemeral", TTL: ttl}
	}

	if remaining > 0 && len(req.Tools) > 0 {
		req.Tools[len(req.Tools)-1].CacheControl = mark()
	}

	if remaining > 0 && len(req.System) > 0 {
		blocks := systemAsBlocks(req.System)
		if len(blocks) > 0 {
			blocks[len(blocks)-1].CacheControl = mark()
			if raw, err := json.Marshal(blocks); err == nil {
				req.System = raw
			}
		}
	}

	userIndices := lastUserMessageIndices(req.Messages, 2)
	for _, idx := range userIndices {
		if remaining <= 0 {
			break
		}
		msg := &req.Messages[idx]
		if len(msg.Content) == 0 {
			continue
		}
		last := &msg.Content[len(msg.Content)-1]
		if last.OfText != nil {
			last.OfText.CacheControl = mark()
		}
	}
}

func lastUserMessageIndices(messages []protocol.AnthropicMessage, n int) []int {
	var indices []int
	for i := len(messages) - 1; i >= 0 && len(indices) < n; i-- {
		if messages[i].Role == "user" {
			indices = append(indices, i)
		}
	}
	return indices
}

func countCacheControls(req *protocol.AnthropicRequest) int {
	count := 0
	for _, t := range req.Tools {
		if t.CacheControl != nil {
			count++
		}
	}
	for _, b := range systemAsBlocks(req.System) {
		if b.CacheControl != nil {
			count++
		}
	}
	for _, m := range req.Messages {
		for _, b := range m.Content {
			if b.OfText != nil && b.OfText.CacheControl != nil {
				count++
			}
		}
	}
	return count
}

// AssembleBetaFlags builds the anthropic-beta header value. oauth is
// always present; context-1m is added when the resolved model variant
// requested extended context; interleaved-thinking is added when thinking
// is enabled; fine-grained-tool-streaming is added for non-streaming
// requests that declare tools.
func AssembleBetaFlags(req *protocol.AnthropicRequest, opts Options) []string {
	flags := []string{betaOAuth}

	if opts.Use1MContext {
		flags = append(flags, betaContext1M)
	}
	if req.Thinking != nil && req.Thinking.Type == "enabled" {
		flags = append(flags, betaInterleavedThinking)
	}
	if len(req.Tools) > 0 && !req.Stream {
		flags = append(flags, betaFineGrainedToolStream)
	}

	return flags
}
