package normalize

import (
	"encoding/json"
	"testing"

	"github.com/codefionn/gatewayd/internal/consts"
	"github.com/codefionn/gatewayd/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textBlock(s string) protocol.AnthropicContentBlock {
	return protocol.AnthropicContentBlock{OfText: &protocol.AnthropicTextBlock{Type: "text", Text: s}}
}

func TestSanitizeParamsDropsOutOfRangeValues(t *testing.T) {
	badTopP := 1.5
	badTopK := 0
	req := &protocol.AnthropicRequest{TopP: &badTopP, TopK: &badTopK}

	SanitizeParams(req)

	assert.Nil(t, req.TopP)
	assert.Nil(t, req.TopK)
}

func TestSanitizeParamsDoesNotRangeCheckTemperature(t *testing.T) {
	hot := 2.0
	req := &protocol.AnthropicRequest{Temperature: &hot}

	SanitizeParams(req)

	require.NotNil(t, req.Temperature)
	assert.Equal(t, 2.0, *req.Temperature)
}

func TestSanitizeParamsKeepsValidValues(t *testing.T) {
	goodTopP := 0.9
	goodTemp := 0.5
	goodTopK := 40
	req := &protocol.AnthropicRequest{TopP: &goodTopP, Temperature: &goodTemp, TopK: &goodTopK}

	SanitizeParams(req)

	require.NotNil(t, req.TopP)
	assert.Equal(t, 0.9, *req.TopP)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.5, *req.Temperature)
	require.NotNil(t, req.TopK)
	assert.Equal(t, 40, *req.TopK)
}

func TestSanitizeParamsNilsEmptyToolsSlice(t *testing.T) {
	req := &protocol.AnthropicRequest{Tools: []protocol.AnthropicTool{}}
	SanitizeParams(req)
	assert.Nil(t, req.Tools)
}

func TestTightenForThinkingForcesTemperatureAndClampsTopP(t *testing.T) {
	lowTopP := 0.2
	req := &protocol.AnthropicRequest{
		Thinking: &protocol.AnthropicThinking{Type: "enabled", BudgetTokens: consts.ThinkingBudgetMedium},
		TopP:     &lowTopP,
		MaxTokens: 100,
	}

	TightenForThinking(req)

	require.NotNil(t, req.Temperature)
	assert.Equal(t, 1.0, *req.Temperature)
	require.NotNil(t, req.TopP)
	assert.Equal(t, 0.95, *req.TopP)
	assert.Nil(t, req.TopK)
	assert.Equal(t, consts.ThinkingBudgetMedium+consts.ThinkingMaxTokensHeadroom, req.MaxTokens)
}

func TestTightenForThinkingNoopWhenThinkingDisabled(t *testing.T) {
	temp := 0.3
	req := &protocol.AnthropicRequest{Temperature: &temp, MaxTokens: 50}
	TightenForThinking(req)
	assert.Equal(t, 0.3, *req.Temperature)
	assert.Equal(t, 50, req.MaxTokens)
}

func TestTightenForThinkingLeavesSufficientMaxTokensAlone(t *testing.T) {
	req := &protocol.AnthropicRequest{
		Thinking:  &protocol.AnthropicThinking{Type: "enabled", BudgetTokens: 1000},
		MaxTokens: 50000,
	}
	TightenForThinking(req)
	assert.Equal(t, 50000, req.MaxTokens)
}

func TestInjectSpoofMessagePrependsToStringSystem(t *testing.T) {
	raw, _ := json.Marshal("be helpful")
	req := &protocol.AnthropicRequest{System: raw}

	InjectSpoofMessage(req)

	var blocks []protocol.AnthropicTextBlock
	require.NoError(t, json.Unmarshal(req.System, &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, SpoofSystemMessage, blocks[0].Text)
	assert.Equal(t, "be helpful", blocks[1].Text)
}

func TestInjectSpoofMessagePrependsToEmptySystem(t *testing.T) {
	req := &protocol.AnthropicRequest{}
	InjectSpoofMessage(req)

	var blocks []protocol.AnthropicTextBlock
	require.NoError(t, json.Unmarshal(req.System, &blocks))
	require.Len(t, blocks, 1)
	assert.Equal(t, SpoofSystemMessage, blocks[0].Text)
}

func TestInjectSpoofMessagePrependsToArraySystem(t *testing.T) {
	raw, _ := json.Marshal([]protocol.AnthropicTextBlock{{Type: "text", Text: "existing"}})
	req := &protocol.AnthropicRequest{System: raw}

	InjectSpoofMessage(req)

	var blocks []protocol.AnthropicTextBlock
	require.NoError(t, json.Unmarshal(req.System, &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, SpoofSystemMessage, blocks[0].Text)
	assert.Equal(t, "existing", blocks[1].Text)
}

func TestInjectSpoofMessageIsIdempotent(t *testing.T) {
	raw, _ := json.Marshal("be helpful")
	req := &protocol.AnthropicRequest{System: raw}

	InjectSpoofMessage(req)
	InjectSpoofMessage(req)

	var blocks []protocol.AnthropicTextBlock
	require.NoError(t, json.Unmarshal(req.System, &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, SpoofSystemMessage, blocks[0].Text)
	assert.Equal(t, "be helpful", blocks[1].Text)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	req := &protocol.AnthropicRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []protocol.AnthropicMessage{{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("hi")}}},
	}

	Normalize(req, Options{})
	firstSystem := append(json.RawMessage(nil), req.System...)

	Normalize(req, Options{})

	assert.JSONEq(t, string(firstSystem), string(req.System))

	var blocks []protocol.AnthropicTextBlock
	require.NoError(t, json.Unmarshal(req.System, &blocks))
	require.Len(t, blocks, 1)
	assert.Equal(t, SpoofSystemMessage, blocks[0].Text)
}

func TestAnnotatePromptCacheMarksToolSystemAndUserMessages(t *testing.T) {
	sysRaw, _ := json.Marshal([]protocol.AnthropicTextBlock{{Type: "text", Text: "sys"}})
	req := &protocol.AnthropicRequest{
		System: sysRaw,
		Tools:  []protocol.AnthropicTool{{Name: "t1"}},
		Messages: []protocol.AnthropicMessage{
			{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("u1")}},
			{Role: "assistant", Content: []protocol.AnthropicContentBlock{textBlock("a1")}},
			{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("u2")}},
		},
	}

	AnnotatePromptCache(req, "5m")

	assert.NotNil(t, req.Tools[0].CacheControl)

	var blocks []protocol.AnthropicTextBlock
	require.NoError(t, json.Unmarshal(req.System, &blocks))
	assert.NotNil(t, blocks[0].CacheControl)

	assert.NotNil(t, req.Messages[2].Content[0].OfText.CacheControl)
	assert.NotNil(t, req.Messages[0].Content[0].OfText.CacheControl)
	assert.Nil(t, req.Messages[1].Content[0].OfText.CacheControl)
}

func TestAnnotatePromptCacheRespectsMaxBlocks(t *testing.T) {
	req := &protocol.AnthropicRequest{
		Tools: []protocol.AnthropicTool{{Name: "t1"}},
		Messages: []protocol.AnthropicMessage{
			{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("u1")}},
			{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("u2")}},
			{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("u3")}},
		},
	}

	AnnotatePromptCache(req, "5m")

	marked := 0
	if req.Tools[0].CacheControl != nil {
		marked++
	}
	for _, m := range req.Messages {
		if m.Content[0].OfText.CacheControl != nil {
			marked++
		}
	}
	assert.LessOrEqual(t, marked, consts.MaxPromptCacheBlocks)
}

func TestAnnotatePromptCacheNoopWhenAlreadyAtLimit(t *testing.T) {
	req := &protocol.AnthropicRequest{
		Tools: []protocol.AnthropicTool{
			{Name: "t1", CacheControl: &protocol.CacheControl{Type: "ephemeral"}},
			{Name: "t2", CacheControl: &protocol.CacheControl{Type: "ephemeral"}},
			{Name: "t3", CacheControl: &protocol.CacheControl{Type: "ephemeral"}},
			{Name: "t4", CacheControl: &protocol.CacheControl{Type: "ephemeral"}},
		},
		Messages: []protocol.AnthropicMessage{
			{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("u1")}},
		},
	}

	AnnotatePromptCache(req, "5m")

	assert.Nil(t, req.Messages[0].Content[0].OfText.CacheControl)
}

func TestAssembleBetaFlagsAlwaysIncludesOAuth(t *testing.T) {
	flags := AssembleBetaFlags(&protocol.AnthropicRequest{}, Options{})
	assert.Equal(t, []string{betaOAuth}, flags)
}

func TestAssembleBetaFlagsAddsContext1MWhenRequested(t *testing.T) {
	flags := AssembleBetaFlags(&protocol.AnthropicRequest{}, Options{Use1MContext: true})
	assert.Contains(t, flags, betaContext1M)
}

func TestAssembleBetaFlagsAddsInterleavedThinkingWhenEnabled(t *testing.T) {
	req := &protocol.AnthropicRequest{Thinking: &protocol.AnthropicThinking{Type: "enabled", BudgetTokens: 1000}}
	flags := AssembleBetaFlags(req, Options{})
	assert.Contains(t, flags, betaInterleavedThinking)
}

func TestAssembleBetaFlagsAddsFineGrainedToolStreamingForNonStreamingToolRequests(t *testing.T) {
	req := &protocol.AnthropicRequest{Tools: []protocol.AnthropicTool{{Name: "t1"}}, Stream: false}
	flags := AssembleBetaFlags(req, Options{})
	assert.Contains(t, flags, betaFineGrainedToolStream)
}

func TestAssembleBetaFlagsOmitsFineGrainedToolStreamingWhenStreaming(t *testing.T) {
	req := &protocol.AnthropicRequest{Tools: []protocol.AnthropicTool{{Name: "t1"}}, Stream: true}
	flags := AssembleBetaFlags(req, Options{})
	assert.NotContains(t, flags, betaFineGrainedToolStream)
}

func TestNormalizeIgnoresClientSuppliedBetaIntent(t *testing.T) {
	req := &protocol.AnthropicRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []protocol.AnthropicMessage{{Role: "user", Content: []protocol.AnthropicContentBlock{textBlock("hi")}}},
	}

	flags := Normalize(req, Options{PromptCacheTTL: "5m"})

	assert.Equal(t, []string{betaOAuth}, flags)

	var blocks []protocol.AnthropicTextBlock
	require.NoError(t, json.Unmarshal(req.System, &blocks))
	assert.Equal(t, SpoofSystemMessage, blocks[0].Text)
}
