// Package protocol holds the wire-level request/response shapes gatewayd
// speaks on both sides: Anthropic's Messages API and OpenAI's Chat
// Completions API. Types round-trip unknown fields via json.RawMessage so
// a client-supplied field gatewayd doesn't model explicitly still survives
// normalization instead of being silently dropped.
package protocol

import "encoding/json"

// AnthropicRequest is the body gatewayd sends to (or receives destined for)
// the Anthropic Messages API.
type AnthropicRequest struct {
	Model         string                 `json:"model"`
	Messages      []AnthropicMessage     `json:"messages"`
	System        json.RawMessage        `json:"system,omitempty"` // string or []AnthropicContentBlock
	MaxTokens     int                    `json:"max_tokens"`
	Stream        bool                   `json:"stream,omitempty"`
	Temperature   *float64               `json:"temperature,omitempty"`
	TopP          *float64               `json:"top_p,omitempty"`
	TopK          *int                   `json:"top_k,omitempty"`
	StopSequences []string               `json:"stop_sequences,omitempty"`
	Tools         []AnthropicTool        `json:"tools,omitempty"`
	ToolChoice    json.RawMessage        `json:"tool_choice,omitempty"`
	Thinking      *AnthropicThinking     `json:"thinking,omitempty"`
	Metadata      map[string]any         `json:"metadata,omitempty"`
	Extra         map[string]json.RawMessage `json:"-"` // fields seen but not modeled above
}

var anthropicRequestKnownFields = map[string]bool{
	"model": true, "messages": true, "system": true, "max_tokens": true,
	"stream": true, "temperature": true, "top_p": true, "top_k": true,
	"stop_sequences": true, "tools": true, "tool_choice": true,
	"thinking": true, "metadata": true,
}

// anthropicRequestAlias avoids infinite recursion when delegating to the standard
// marshal/unmarshal machinery from the custom methods below.
type anthropicRequestAlias AnthropicRequest

// UnmarshalJSON captures any field not in the known set into Extra, so a
// client-supplied field gatewayd doesn't model still survives normalization
// and reaches the upstream unchanged.
func (r *AnthropicRequest) UnmarshalJSON(data []byte) error {
	var alias anthropicRequestAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = AnthropicRequest(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if anthropicRequestKnownFields[k] {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[k] = v
	}
	return nil
}

// MarshalJSON re-merges Extra fields alongside the modeled ones.
func (r AnthropicRequest) MarshalJSON() ([]byte, error) {
	alias := anthropicRequestAlias(r)
	base, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := merged[k]; known {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// AnthropicThinking requests extended reasoning with a fixed token budget.
type AnthropicThinking struct {
	Type         string `json:"type"` // "enabled"
	BudgetTokens int    `json:"budget_tokens"`
}

// AnthropicMessage is one turn in an Anthropic Messages conversation.
type AnthropicMessage struct {
	Role    string                  `json:"role"` // "user" or "assistant"
	Content []AnthropicContentBlock `json:"content"`
}

// CacheControl marks a content block (or tool/system block) as a prompt
// cache boundary.
type CacheControl struct {
	Type string `json:"type"` // "ephemeral"
	TTL  string `json:"ttl,omitempty"`
}

// AnthropicContentBlock is a tagged-union content block. Exactly one Of*
// field is set — pointer-typed variant fields instead of a Go-native enum,
// so the JSON shape stays byte-for-byte what the upstream Messages API
// expects. No SDK types are involved; this package hand-rolls the wire
// shape on encoding/json (see DESIGN.md, internal/protocol).
type AnthropicContentBlock struct {
	OfText       *AnthropicTextBlock
	OfImage      *AnthropicImageBlock
	OfToolUse    *AnthropicToolUseBlock
	OfToolResult *AnthropicToolResultBlock
	OfThinking   *AnthropicThinkingBlock
}

// MarshalJSON flattens whichever Of* variant is set into a single JSON
// object, matching the wire shape Anthropic expects (no wrapper object).
func (b AnthropicContentBlock) MarshalJSON() ([]byte, error) {
	switch {
	case b.OfText != nil:
		return json.Marshal(b.OfText)
	case b.OfImage != nil:
		return json.Marshal(b.OfImage)
	case b.OfToolUse != nil:
		return json.Marshal(b.OfToolUse)
	case b.OfToolResult != nil:
		return json.Marshal(b.OfToolResult)
	case b.OfThinking != nil:
		return json.Marshal(b.OfThinking)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON dispatches on the "type" discriminator to populate the
// matching Of* variant.
func (b *AnthropicContentBlock) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Type {
	case "text":
		var v AnthropicTextBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.OfText = &v
	case "image":
		var v AnthropicImageBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.OfImage = &v
	case "tool_use":
		var v AnthropicToolUseBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.OfToolUse = &v
	case "tool_result":
		var v AnthropicToolResultBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.OfToolResult = &v
	case "thinking":
		var v AnthropicThinkingBlock
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.OfThinking = &v
	default:
		return &UnknownBlockTypeError{Type: head.Type}
	}
	return nil
}

// UnknownBlockTypeError is returned when a content block's "type" doesn't
// match any known Anthropic content block variant.
type UnknownBlockTypeError struct {
	Type string
}

func (e *UnknownBlockTypeError) Error() string {
	return "protocol: unknown content block type " + e.Type
}

// AnthropicTextBlock is a plain text content block.
type AnthropicTextBlock struct {
	Type         string        `json:"type"` // "text"
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// AnthropicImageBlock is an inline or URL-referenced image.
type AnthropicImageBlock struct {
	Type   string              `json:"type"` // "image"
	Source AnthropicImageSource `json:"source"`
}

// AnthropicImageSource describes where image bytes come from.
type AnthropicImageSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// AnthropicToolUseBlock represents a model-initiated tool call.
type AnthropicToolUseBlock struct {
	Type  string          `json:"type"` // "tool_use"
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// AnthropicToolResultBlock carries the result of a prior tool call back to the model.
type AnthropicToolResultBlock struct {
	Type      string          `json:"type"` // "tool_result"
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"` // string or []AnthropicContentBlock
	IsError   bool            `json:"is_error,omitempty"`
}

// AnthropicThinkingBlock is an extended-reasoning block with a signature
// that must be replayed verbatim on the next turn.
type AnthropicThinkingBlock struct {
	Type      string `json:"type"` // "thinking"
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// AnthropicTool declares a tool the model may call.
type AnthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
	CacheControl *CacheControl  `json:"cache_control,omitempty"`
}

// AnthropicResponse is a non-streaming Messages API response.
type AnthropicResponse struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"` // "message"
	Role         string                  `json:"role"`
	Model        string                  `json:"model"`
	Content      []AnthropicContentBlock `json:"content"`
	StopReason   string                  `json:"stop_reason,omitempty"`
	StopSequence string                  `json:"stop_sequence,omitempty"`
	Usage        AnthropicUsage          `json:"usage"`
}

// AnthropicUsage reports token accounting for a request.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
