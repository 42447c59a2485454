// Package openai translates between gatewayd's own OpenAI Chat Completions
// surface and Anthropic's Messages wire format, in both directions.
package openai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/codefionn/gatewayd/internal/gwerr"
	"github.com/codefionn/gatewayd/internal/protocol"
)

var dataURIPattern = regexp.MustCompile(`^data:image/(\w+);base64,(.+)$`)

// RequestToAnthropic converts an OpenAI Chat Completions request into an
// Anthropic Messages request. model is the resolved Anthropic model id to
// place on the outgoing request (the registry, not this package, decides
// what that id is).
func RequestToAnthropic(req *protocol.OpenAIRequest, anthropicModel string) (*protocol.AnthropicRequest, error) {
	messages, systemText, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	out := &protocol.AnthropicRequest{
		Model:       anthropicModel,
		Messages:    messages,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	out.MaxTokens = maxTokens

	if systemText != "" {
		raw, marshalErr := json.Marshal(systemText)
		if marshalErr != nil {
			return nil, marshalErr
		}
		out.System = raw
	}

	if len(req.Stop) > 0 {
		stops, err := parseStop(req.Stop)
		if err != nil {
			return nil, fmt.Errorf("%w: parse stop: %v", gwerr.ErrTranslation, err)
		}
		out.StopSequences = stops
	}

	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return nil, err
		}
		out.Tools = tools
	}

	// The legacy "functions" field, when present, replaces whatever
	// "tools" produced above — matching the original's last-write-wins
	// order, since a client sending both is specifying the same thing
	// twice in two API generations.
	if len(req.Functions) > 0 {
		out.Tools = convertFunctions(req.Functions)
	}

	if len(req.ToolChoice) > 0 {
		choice, err := convertToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		var mode string
		if choice != nil {
			out.ToolChoice = choice
		} else if json.Unmarshal(req.ToolChoice, &mode) == nil && mode == "none" {
			out.Tools = nil
		}
	}

	// The legacy "function_call" field plays the same role as
	// "tool_choice" and is applied after it for the same reason.
	if len(req.FunctionCall) > 0 {
		choice, err := convertLegacyFunctionCall(req.FunctionCall)
		if err != nil {
			return nil, err
		}
		var mode string
		if choice != nil {
			out.ToolChoice = choice
		} else if json.Unmarshal(req.FunctionCall, &mode) == nil && mode == "none" {
			out.Tools = nil
		}
	}

	return out, nil
}

// ResolveReasoning decides the effective reasoning level and thinking
// budget for a request: an explicit reasoning_effort field on the request
// takes precedence over the reasoning level implied by the resolved model
// id (e.g. a "-reasoning-high" suffix). ok is false when neither source
// names a level, or requestReasoningEffort names one budgets doesn't
// recognize.
func ResolveReasoning(requestReasoningEffort, modelLevel string, modelBudget int, budgets map[string]int) (level string, budget int, ok bool) {
	if requestReasoningEffort != "" {
		b, valid := budgets[requestReasoningEffort]
		if !valid {
			return "", 0, false
		}
		return requestReasoningEffort, b, true
	}
	if modelLevel != "" {
		return modelLevel, modelBudget, true
	}
	return "", 0, false
}

// ApplyReasoning sets out.Thinking from the resolved reasoning level/budget,
// if any. It's separate from RequestToAnthropic because the budget the
// caller passes in already folds together the request's own
// reasoning_effort field and the resolved model's implied reasoning level
// (see ResolveReasoning) — this function just applies the outcome.
func ApplyReasoning(out *protocol.AnthropicRequest, budgetTokens int, enabled bool) {
	if !enabled {
		return
	}
	out.Thinking = &protocol.AnthropicThinking{Type: "enabled", BudgetTokens: budgetTokens}
}

func parseStop(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func convertMessages(in []protocol.OpenAIMessage) ([]protocol.AnthropicMessage, string, error) {
	var systemParts []string
	var out []protocol.AnthropicMessage

	for _, m := range in {
		switch m.Role {
		case "system", "developer":
			text, err := contentAsText(m.Content)
			if err != nil {
				return nil, "", err
			}
			if text != "" {
				systemParts = append(systemParts, text)
			}
		case "user":
			blocks, err := convertContent(m.Content)
			if err != nil {
				return nil, "", err
			}
			out = append(out, protocol.AnthropicMessage{Role: "user", Content: blocks})
		case "assistant":
			blocks, err := convertContent(m.Content)
			if err != nil {
				return nil, "", err
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, protocol.AnthropicContentBlock{
					OfToolUse: &protocol.AnthropicToolUseBlock{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Function.Name,
						Input: json.RawMessage(tc.Function.Arguments),
					},
				})
			}
			if m.FunctionCall != nil {
				args := m.FunctionCall.Arguments
				if args == "" {
					args = "{}"
				}
				blocks = append(blocks, protocol.AnthropicContentBlock{
					OfToolUse: &protocol.AnthropicToolUseBlock{
						Type:  "tool_use",
						ID:    "func_" + m.FunctionCall.Name,
						Name:  m.FunctionCall.Name,
						Input: json.RawMessage(args),
					},
				})
			}
			out = append(out, protocol.AnthropicMessage{Role: "assistant", Content: blocks})
		case "tool":
			content, err := json.Marshal(mustText(m.Content))
			if err != nil {
				return nil, "", err
			}
			out = append(out, protocol.AnthropicMessage{
				Role: "user",
				Content: []protocol.AnthropicContentBlock{{
					OfToolResult: &protocol.AnthropicToolResultBlock{
						Type:      "tool_result",
						ToolUseID: m.ToolCallID,
						Content:   content,
					},
				}},
			})
		default:
			return nil, "", fmt.Errorf("%w: unsupported message role %q", gwerr.ErrTranslation, m.Role)
		}
	}

	return out, strings.Join(systemParts, "\n\n"), nil
}

func mustText(raw json.RawMessage) string {
	text, _ := contentAsText(raw)
	return text
}

func contentAsText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []protocol.OpenAIContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("%w: unsupported content shape: %v", gwerr.ErrTranslation, err)
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

func convertContent(raw json.RawMessage) ([]protocol.AnthropicContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []protocol.AnthropicContentBlock{{OfText: &protocol.AnthropicTextBlock{Type: "text", Text: s}}}, nil
	}

	var parts []protocol.OpenAIContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("%w: unsupported content shape: %v", gwerr.ErrTranslation, err)
	}

	out := make([]protocol.AnthropicContentBlock, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, protocol.AnthropicContentBlock{OfText: &protocol.AnthropicTextBlock{Type: "text", Text: p.Text}})
		case "image_url":
			if p.ImageURL == nil {
				continue
			}
			out = append(out, protocol.AnthropicContentBlock{OfImage: convertImage(p.ImageURL.URL)})
		}
	}
	return out, nil
}

func convertImage(url string) *protocol.AnthropicImageBlock {
	if m := dataURIPattern.FindStringSubmatch(url); m != nil {
		return &protocol.AnthropicImageBlock{
			Type: "image",
			Source: protocol.AnthropicImageSource{
				Type: "base64", MediaType: "image/" + m[1], Data: m[2],
			},
		}
	}
	return &protocol.AnthropicImageBlock{
		Type:   "image",
		Source: protocol.AnthropicImageSource{Type: "url", URL: url},
	}
}

func convertTools(in []protocol.OpenAITool) ([]protocol.AnthropicTool, error) {
	out := make([]protocol.AnthropicTool, 0, len(in))
	for _, t := range in {
		out = append(out, protocol.AnthropicTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}
	return out, nil
}

// convertFunctions converts the legacy "functions" request field, which
// already has the same shape as an OpenAITool's nested function, to
// Anthropic tools.
func convertFunctions(in []protocol.OpenAIToolFunction) []protocol.AnthropicTool {
	out := make([]protocol.AnthropicTool, 0, len(in))
	for _, f := range in {
		out = append(out, protocol.AnthropicTool{
			Name:        f.Name,
			Description: f.Description,
			InputSchema: f.Parameters,
		})
	}
	return out
}

// convertToolChoice returns a raw Anthropic tool_choice object, or (nil, nil)
// for "none" and "auto". The caller strips tools entirely for "none" and
// leaves them untouched for "auto".
func convertToolChoice(raw json.RawMessage) (json.RawMessage, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "none":
			return nil, nil
		case "auto", "":
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: unsupported tool_choice %q", gwerr.ErrTranslation, s)
		}
	}

	var obj struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: unsupported tool_choice shape: %v", gwerr.ErrTranslation, err)
	}
	if obj.Type != "function" {
		return raw, nil
	}
	return json.Marshal(map[string]string{"type": "tool", "name": obj.Function.Name})
}

// convertLegacyFunctionCall handles the request-level "function_call"
// field: "none" and "auto" both return (nil, nil); the caller strips tools
// for "none" and leaves the default Anthropic behavior in place for "auto";
// {"name": "..."} pins a specific function the same way tool_choice's
// {"type": "function", "function": {"name": "..."}} does.
func convertLegacyFunctionCall(raw json.RawMessage) (json.RawMessage, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "none":
			return nil, nil
		case "auto", "":
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: unsupported function_call %q", gwerr.ErrTranslation, s)
		}
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: unsupported function_call shape: %v", gwerr.ErrTranslation, err)
	}
	if obj.Name == "" {
		return nil, nil
	}
	return json.Marshal(map[string]string{"type": "tool", "name": obj.Name})
}

// FinishReasonFromStopReason maps an Anthropic stop_reason to an OpenAI
// finish_reason.
func FinishReasonFromStopReason(stopReason string) string {
	switch stopReason {
	case "end_turn":
		return "stop"
	case "max_tokens":
		return "length"
	case "stop_sequence":
		return "stop"
	case "tool_use":
		return "tool_calls"
	default:
		return "stop"
	}
}

// ResponseFromAnthropic converts a non-streaming Anthropic response into an
// OpenAI Chat Completions response.
func ResponseFromAnthropic(resp *protocol.AnthropicResponse, model string, createdUnix int64) *protocol.OpenAIResponse {
	var text strings.Builder
	var toolCalls []protocol.OpenAIToolCall

	for _, block := range resp.Content {
		switch {
		case block.OfText != nil:
			text.WriteString(block.OfText.Text)
		case block.OfToolUse != nil:
			toolCalls = append(toolCalls, protocol.OpenAIToolCall{
				ID:   block.OfToolUse.ID,
				Type: "function",
				Function: protocol.OpenAIToolCallFunc{
					Name:      block.OfToolUse.Name,
					Arguments: string(block.OfToolUse.Input),
				},
			})
		}
	}

	id := "chatcmpl-" + strings.TrimPrefix(resp.ID, "msg_")

	return &protocol.OpenAIResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: createdUnix,
		Model:   model,
		Choices: []protocol.OpenAIChoice{{
			Index: 0,
			Message: protocol.OpenAIRespMsg{
				Role:      "assistant",
				Content:   text.String(),
				ToolCalls: toolCalls,
			},
			FinishReason: FinishReasonFromStopReason(resp.StopReason),
		}},
		Usage: protocol.OpenAIUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}
