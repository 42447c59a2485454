package protocol

import "encoding/json"

// OpenAIRequest is a Chat Completions request body.
type OpenAIRequest struct {
	Model           string          `json:"model"`
	Messages        []OpenAIMessage `json:"messages"`
	Stream          bool            `json:"stream,omitempty"`
	MaxTokens       int             `json:"max_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	Stop            json.RawMessage `json:"stop,omitempty"` // string or []string
	Tools           []OpenAITool    `json:"tools,omitempty"`
	ToolChoice      json.RawMessage `json:"tool_choice,omitempty"`
	ReasoningEffort string          `json:"reasoning_effort,omitempty"`

	// Functions/FunctionCall are the pre-"tools" Chat Completions fields,
	// still sent by some older clients. Functions takes the same shape as
	// each OpenAITool.Function; FunctionCall is "none", "auto", or
	// {"name": "..."}.
	Functions    []OpenAIToolFunction `json:"functions,omitempty"`
	FunctionCall json.RawMessage      `json:"function_call,omitempty"`
}

// OpenAIMessage is one turn in a Chat Completions conversation. Content is
// either a plain string or an array of typed content parts; ToolCalls is
// present on assistant messages that invoked tools; ToolCallID/Name are
// present on role="tool" messages replying to a call.
type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    json.RawMessage  `json:"content,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`

	// FunctionCall is the legacy single-call form an assistant message
	// carries instead of ToolCalls.
	FunctionCall *OpenAIToolCallFunc `json:"function_call,omitempty"`
}

// OpenAIContentPart is one element of an array-form message content field.
type OpenAIContentPart struct {
	Type     string              `json:"type"` // "text" or "image_url"
	Text     string              `json:"text,omitempty"`
	ImageURL *OpenAIImageURLPart `json:"image_url,omitempty"`
}

// OpenAIImageURLPart is the image_url payload of a content part, which may
// be a remote URL or a data: URI.
type OpenAIImageURLPart struct {
	URL string `json:"url"`
}

// OpenAIToolCall is a model-initiated tool invocation in Chat Completions form.
type OpenAIToolCall struct {
	Index    int                `json:"index,omitempty"`
	ID       string             `json:"id"`
	Type     string             `json:"type"` // "function"
	Function OpenAIToolCallFunc `json:"function"`
}

// OpenAIToolCallFunc is the function payload of a tool call.
type OpenAIToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded
}

// OpenAITool declares a callable tool in Chat Completions form.
type OpenAITool struct {
	Type     string             `json:"type"` // "function"
	Function OpenAIToolFunction `json:"function"`
}

// OpenAIToolFunction is the function declaration of a tool.
type OpenAIToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// OpenAIResponse is a non-streaming Chat Completions response.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion"
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

// OpenAIChoice is one completion choice (gatewayd always returns exactly one).
type OpenAIChoice struct {
	Index        int             `json:"index"`
	Message      OpenAIRespMsg   `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// OpenAIRespMsg is the message payload of a non-streaming choice.
type OpenAIRespMsg struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []OpenAIToolCall `json:"tool_calls,omitempty"`
}

// OpenAIUsage reports token accounting in OpenAI's shape.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIChunk is one streamed Chat Completions SSE data payload.
type OpenAIChunk struct {
	ID      string              `json:"id"`
	Object  string              `json:"object"` // "chat.completion.chunk"
	Created int64               `json:"created"`
	Model   string              `json:"model"`
	Choices []OpenAIChunkChoice `json:"choices"`
}

// OpenAIChunkChoice is one choice within a streamed chunk.
type OpenAIChunkChoice struct {
	Index        int              `json:"index"`
	Delta        OpenAIChunkDelta `json:"delta"`
	FinishReason *string          `json:"finish_reason"`
}

// OpenAIChunkDelta carries the incremental content of a streamed chunk.
type OpenAIChunkDelta struct {
	Role      string           `json:"role,omitempty"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []OpenAIToolCall `json:"tool_calls,omitempty"`
}
