// Package streaming converts an Anthropic Messages SSE stream into OpenAI
// Chat Completions chunks, one sse.Event at a time. A single completion id
// is minted on message_start and reused for every chunk, text and
// tool-call argument deltas are forwarded as they arrive, and a closing
// thinking block's signature is stashed in a thinkingcache keyed by the
// tool_use id of the tool call that follows it in the same turn, so it can
// be replayed on the next request in that tool-call round trip.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/codefionn/gatewayd/internal/protocol"
	"github.com/codefionn/gatewayd/internal/protocol/openai"
	"github.com/codefionn/gatewayd/internal/sse"
	"github.com/codefionn/gatewayd/internal/thinkingcache"
)

// Converter holds the running state of one Anthropic stream → OpenAI chunk
// conversion. Create one per request; it is not safe for concurrent use.
type Converter struct {
	model   string
	created int64
	cache   *thinkingcache.Cache

	id          string
	toolIndex   map[int]int    // content_block index -> OpenAI tool_calls index
	nextToolIdx int
	thinkingBuf map[int]string // content_block index -> accumulated thinking text

	// pendingThinking/pendingSignature hold the most recently closed
	// thinking block's text and signature until the tool_use block that
	// follows it in the same turn opens, since that's the id the
	// signature must be cached under to be replayed on the next request.
	pendingThinking  string
	pendingSignature string
	done             bool
}

// New creates a Converter for one request. cache may be nil to disable
// thinking-signature caching entirely — appropriate for a client that
// never replays thinking blocks back.
func New(model string, createdUnix int64, cache *thinkingcache.Cache) *Converter {
	return &Converter{
		model:       model,
		created:     createdUnix,
		cache:       cache,
		toolIndex:   make(map[int]int),
		thinkingBuf: make(map[int]string),
	}
}

// anthropicStreamEvent covers the union of Messages API SSE payload shapes
// gatewayd needs to read fields out of. Fields unused by a given event type
// are simply left zero.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message struct {
		ID string `json:"id"`
	} `json:"message"`

	ContentBlock struct {
		Type      string `json:"type"`
		ID        string `json:"id"`
		Name      string `json:"name"`
		Signature string `json:"signature"`
	} `json:"content_block"`

	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		Thinking    string `json:"thinking"`
		Signature   string `json:"signature"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Feed consumes one sse.Event from the upstream Anthropic stream and
// returns the OpenAI chunks it produces (zero or one per event). A nil slice
// with a nil error means the event carried nothing chunk-worthy (e.g. a
// content_block_stop for a text block). Feed returns done=true once the
// caller should stop reading (message_stop or a terminal error event). A
// payload that fails to parse returns a non-nil error with done=false.
func (c *Converter) Feed(ev *sse.Event) (chunks []*protocol.OpenAIChunk, done bool, err error) {
	if c.done {
		return nil, true, nil
	}

	switch ev.Event {
	case "message_start":
		return c.handleMessageStart(ev)
	case "content_block_start":
		return c.handleContentBlockStart(ev)
	case "content_block_delta":
		return c.handleContentBlockDelta(ev)
	case "content_block_stop":
		return c.handleContentBlockStop(ev)
	case "message_delta":
		return c.handleMessageDelta(ev)
	case "message_stop":
		c.done = true
		return nil, true, nil
	case "error":
		c.done = true
		chunk, perr := c.errorChunk(ev)
		return []*protocol.OpenAIChunk{chunk}, true, perr
	default:
		// ping and any other event gatewayd doesn't model yet carry nothing.
		return nil, false, nil
	}
}

func (c *Converter) handleMessageStart(ev *sse.Event) ([]*protocol.OpenAIChunk, bool, error) {
	var parsed anthropicStreamEvent
	if err := json.Unmarshal([]byte(ev.Data), &parsed); err != nil {
		return nil, false, fmt.Errorf("streaming: parse message_start: %w", err)
	}
	c.id = "chatcmpl-" + trimMsgPrefix(parsed.Message.ID)

	return []*protocol.OpenAIChunk{c.chunk(protocol.OpenAIChunkDelta{Role: "assistant"}, nil)}, false, nil
}

func (c *Converter) handleContentBlockStart(ev *sse.Event) ([]*protocol.OpenAIChunk, bool, error) {
	var parsed anthropicStreamEvent
	if err := json.Unmarshal([]byte(ev.Data), &parsed); err != nil {
		return nil, false, fmt.Errorf("streaming: parse content_block_start: %w", err)
	}

	if parsed.ContentBlock.Type == "tool_use" {
		idx := c.nextToolIdx
		c.nextToolIdx++
		c.toolIndex[parsed.Index] = idx

		if c.pendingSignature != "" && c.cache != nil {
			c.cache.Put(parsed.ContentBlock.ID, c.pendingThinking, c.pendingSignature)
		}
		c.pendingThinking = ""
		c.pendingSignature = ""

		return []*protocol.OpenAIChunk{c.chunk(protocol.OpenAIChunkDelta{
			ToolCalls: []protocol.OpenAIToolCall{{
				Index: idx,
				ID:    parsed.ContentBlock.ID,
				Type:  "function",
				Function: protocol.OpenAIToolCallFunc{
					Name: parsed.ContentBlock.Name,
				},
			}},
		}, nil)}, false, nil
	}

	return nil, false, nil
}

func (c *Converter) handleContentBlockDelta(ev *sse.Event) ([]*protocol.OpenAIChunk, bool, error) {
	var parsed anthropicStreamEvent
	if err := json.Unmarshal([]byte(ev.Data), &parsed); err != nil {
		return nil, false, fmt.Errorf("streaming: parse content_block_delta: %w", err)
	}

	switch parsed.Delta.Type {
	case "text_delta":
		if parsed.Delta.Text == "" {
			return nil, false, nil
		}
		return []*protocol.OpenAIChunk{c.chunk(protocol.OpenAIChunkDelta{Content: parsed.Delta.Text}, nil)}, false, nil

	case "input_json_delta":
		if parsed.Delta.PartialJSON == "" {
			return nil, false, nil
		}
		idx, ok := c.toolIndex[parsed.Index]
		if !ok {
			return nil, false, nil
		}
		return []*protocol.OpenAIChunk{c.chunk(protocol.OpenAIChunkDelta{
			ToolCalls: []protocol.OpenAIToolCall{{
				Index: idx,
				Function: protocol.OpenAIToolCallFunc{
					Arguments: parsed.Delta.PartialJSON,
				},
			}},
		}, nil)}, false, nil

	case "thinking_delta":
		c.thinkingBuf[parsed.Index] += parsed.Delta.Thinking
		return nil, false, nil

	case "signature_delta":
		c.pendingThinking = c.thinkingBuf[parsed.Index]
		c.pendingSignature = parsed.Delta.Signature
		return nil, false, nil

	default:
		return nil, false, nil
	}
}

func (c *Converter) handleContentBlockStop(ev *sse.Event) ([]*protocol.OpenAIChunk, bool, error) {
	var parsed anthropicStreamEvent
	if err := json.Unmarshal([]byte(ev.Data), &parsed); err != nil {
		return nil, false, fmt.Errorf("streaming: parse content_block_stop: %w", err)
	}
	delete(c.thinkingBuf, parsed.Index)
	return nil, false, nil
}

func (c *Converter) handleMessageDelta(ev *sse.Event) ([]*protocol.OpenAIChunk, bool, error) {
	var parsed anthropicStreamEvent
	if err := json.Unmarshal([]byte(ev.Data), &parsed); err != nil {
		return nil, false, fmt.Errorf("streaming: parse message_delta: %w", err)
	}
	if parsed.Delta.StopReason == "" {
		return nil, false, nil
	}
	finish := openai.FinishReasonFromStopReason(parsed.Delta.StopReason)
	return []*protocol.OpenAIChunk{c.chunk(protocol.OpenAIChunkDelta{}, &finish)}, false, nil
}

func (c *Converter) errorChunk(ev *sse.Event) (*protocol.OpenAIChunk, error) {
	var parsed anthropicStreamEvent
	message := ev.Data
	if err := json.Unmarshal([]byte(ev.Data), &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	finish := "stop"
	return c.chunk(protocol.OpenAIChunkDelta{Content: "[error: " + message + "]"}, &finish), nil
}

func (c *Converter) chunk(delta protocol.OpenAIChunkDelta, finishReason *string) *protocol.OpenAIChunk {
	return &protocol.OpenAIChunk{
		ID:      c.id,
		Object:  "chat.completion.chunk",
		Created: c.created,
		Model:   c.model,
		Choices: []protocol.OpenAIChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
	}
}

func trimMsgPrefix(id string) string {
	const prefix = "msg_"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		return id[len(prefix):]
	}
	return id
}
