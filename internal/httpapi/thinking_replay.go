package httpapi

import (
	"github.com/codefionn/gatewayd/internal/protocol"
	"github.com/codefionn/gatewayd/internal/thinkingcache"
)

// restoreThinkingBlocks re-attaches a previously cached thinking block to
// the assistant message that issued the tool_use it was reasoning toward,
// so a signed thinking block survives the round trip through OpenAI's
// tool-call wire shape (which has no field for it) and back. Anthropic
// requires a signed thinking block to be replayed verbatim as the first
// content block of its assistant turn whenever thinking and tools are both
// enabled.
func restoreThinkingBlocks(req *protocol.AnthropicRequest, cache *thinkingcache.Cache) {
	if cache == nil {
		return
	}

	for i := range req.Messages {
		msg := &req.Messages[i]
		if msg.Role != "assistant" {
			continue
		}

		for _, block := range msg.Content {
			if block.OfToolUse == nil {
				continue
			}
			entry, ok := cache.Get(block.OfToolUse.ID)
			if !ok {
				continue
			}
			if len(msg.Content) > 0 && msg.Content[0].OfThinking != nil && msg.Content[0].OfThinking.Signature == entry.Signature {
				continue // already carries this exact thinking block
			}

			thinkingBlock := protocol.AnthropicContentBlock{OfThinking: &protocol.AnthropicThinkingBlock{
				Type:      "thinking",
				Thinking:  entry.Thinking,
				Signature: entry.Signature,
			}}
			msg.Content = append([]protocol.AnthropicContentBlock{thinkingBlock}, msg.Content...)
			break
		}
	}
}
