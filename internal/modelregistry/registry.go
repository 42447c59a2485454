// Package modelregistry expands a small table of Anthropic base models into
// the full set of ids gatewayd exposes over its OpenAI-compatible model
// listing: a plain variant, three reasoning-level variants, an extended-
// context ("-1m") variant when the base model declares Supports1M, and
// hidden aliases under the raw Anthropic model id — plus whatever custom
// providers the user has declared.
package modelregistry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codefionn/gatewayd/internal/consts"
	"github.com/codefionn/gatewayd/internal/gwerr"
)

// ReasoningBudgets maps a reasoning level name to its fixed thinking-token
// budget.
var ReasoningBudgets = map[string]int{
	"low":    consts.ThinkingBudgetLow,
	"medium": consts.ThinkingBudgetMedium,
	"high":   consts.ThinkingBudgetHigh,
}

var reasoningLevelOrder = []string{"low", "medium", "high"}

// BaseModel describes one Anthropic model family as exposed to OpenAI
// clients under its openai-style id.
type BaseModel struct {
	OpenAIID        string
	AnthropicID     string
	Created         int64
	OwnedBy         string
	ContextWindow   int
	MaxOutputTokens int
	SupportsReason  bool
	Supports1M      bool // whether an extended-context "-1m" variant is registered
}

// BaseModels is the declarative table of Anthropic models gatewayd knows
// about. Created timestamps are the Unix seconds reported as each entry's
// "created" value in the listing; they do not match the release dates
// encoded in the AnthropicIDs.
var BaseModels = []BaseModel{
	{
		OpenAIID: "claude-sonnet-4-5", AnthropicID: "claude-sonnet-4-5-20250929",
		Created: 1727654400, OwnedBy: "anthropic",
		ContextWindow: 200_000, MaxOutputTokens: 65_536, SupportsReason: true,
	},
	{
		OpenAIID: "claude-haiku-4-5", AnthropicID: "claude-haiku-4-5-20251001",
		Created: 1727827200, OwnedBy: "anthropic",
		ContextWindow: 200_000, MaxOutputTokens: 65_536, SupportsReason: true,
	},
	{
		OpenAIID: "claude-opus-4-1", AnthropicID: "claude-opus-4-1-20250805",
		Created: 1722816000, OwnedBy: "anthropic",
		ContextWindow: 200_000, MaxOutputTokens: 32_768, SupportsReason: true,
	},
	{
		OpenAIID: "claude-sonnet-4", AnthropicID: "claude-sonnet-4-20250514",
		Created: 1715644800, OwnedBy: "anthropic",
		ContextWindow: 200_000, MaxOutputTokens: 65_536, SupportsReason: true,
	},
}

// Route describes how a request for a given model id should be dispatched.
type Route int

const (
	// RouteAnthropic sends the request to Anthropic via OAuth.
	RouteAnthropic Route = iota
	// RouteCustom sends the request to a user-declared OpenAI-compatible provider.
	RouteCustom
)

// Entry is one resolvable model id: either a base model, a reasoning
// variant, a hidden alias under the Anthropic id, or a custom provider
// entry.
type Entry struct {
	ID              string
	AnthropicID     string // empty for custom-provider entries
	Created         int64
	OwnedBy         string
	ContextWindow   int
	MaxOutputTokens int
	ReasoningLevel  string // "" if not a reasoning variant
	ReasoningBudget int    // 0 if not a reasoning variant
	Use1MContext    bool
	IncludeInListing bool
	Route           Route
	CustomProvider  string // name of the custom provider, for RouteCustom entries
}

// Registry resolves model ids to dispatch entries.
type Registry struct {
	entries map[string]Entry
	listed  []string
}

// Build constructs a Registry from the base model table plus any declared
// custom provider names (one catch-all entry per provider, since a custom
// provider's own model catalogue is opaque to gatewayd).
func Build(customProviders []string) *Registry {
	r := &Registry{entries: make(map[string]Entry)}

	for _, base := range BaseModels {
		r.register(Entry{
			ID: base.OpenAIID, AnthropicID: base.AnthropicID,
			Created: base.Created, OwnedBy: base.OwnedBy,
			ContextWindow: base.ContextWindow, MaxOutputTokens: base.MaxOutputTokens,
			IncludeInListing: true, Route: RouteAnthropic,
		})

		r.register(Entry{
			ID: base.AnthropicID, AnthropicID: base.AnthropicID,
			Created: base.Created, OwnedBy: base.OwnedBy,
			ContextWindow: base.ContextWindow, MaxOutputTokens: base.MaxOutputTokens,
			IncludeInListing: false, Route: RouteAnthropic,
		})

		if base.Supports1M {
			r.register(Entry{
				ID: base.OpenAIID + "-1m", AnthropicID: base.AnthropicID,
				Created: base.Created, OwnedBy: base.OwnedBy,
				ContextWindow: 1_000_000, MaxOutputTokens: base.MaxOutputTokens,
				Use1MContext: true, IncludeInListing: true, Route: RouteAnthropic,
			})
		}

		if !base.SupportsReason {
			continue
		}
		for _, level := range reasoningLevelOrder {
			budget := ReasoningBudgets[level]

			r.register(Entry{
				ID: fmt.Sprintf("%s-reasoning-%s", base.OpenAIID, level), AnthropicID: base.AnthropicID,
				Created: base.Created, OwnedBy: base.OwnedBy,
				ContextWindow: base.ContextWindow, MaxOutputTokens: base.MaxOutputTokens,
				ReasoningLevel: level, ReasoningBudget: budget,
				IncludeInListing: true, Route: RouteAnthropic,
			})

			r.register(Entry{
				ID: fmt.Sprintf("%s-reasoning-%s", base.AnthropicID, level), AnthropicID: base.AnthropicID,
				Created: base.Created, OwnedBy: base.OwnedBy,
				ContextWindow: base.ContextWindow, MaxOutputTokens: base.MaxOutputTokens,
				ReasoningLevel: level, ReasoningBudget: budget,
				IncludeInListing: false, Route: RouteAnthropic,
			})
		}
	}

	for _, name := range customProviders {
		r.register(Entry{
			ID:               name,
			IncludeInListing: true,
			Route:            RouteCustom,
			CustomProvider:   name,
		})
	}

	return r
}

func (r *Registry) register(e Entry) {
	r.entries[e.ID] = e
	if e.IncludeInListing {
		r.listed = append(r.listed, e.ID)
	}
}

// Listing returns the model ids meant for the public /v1/models response,
// sorted for a deterministic, diffable response body.
func (r *Registry) Listing() []string {
	out := append([]string(nil), r.listed...)
	sort.Strings(out)
	return out
}

// Entry returns the full entry for id, if known.
func (r *Registry) Entry(id string) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Resolve resolves a model id to its dispatch entry, falling back to
// legacy suffix parsing (`-1m`, `-reasoning-<level>`) for ids that were
// never registered directly — e.g. a "-1m" suffix on a base model that
// declares no extended-context variant.
func (r *Registry) Resolve(id string) (Entry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}

	remaining, use1M := trimSuffix(id, "-1m")
	base, level, hasLevel := parseReasoningSuffix(remaining)
	if !hasLevel && !use1M {
		return Entry{}, fmt.Errorf("%w: %s", gwerr.ErrUnknownModel, id)
	}

	if e, ok := r.entries[base]; ok {
		resolved := e
		resolved.ID = id
		resolved.Use1MContext = use1M
		if hasLevel {
			budget, valid := ReasoningBudgets[level]
			if !valid {
				return Entry{}, fmt.Errorf("%w: invalid reasoning level %q in %s", gwerr.ErrUnknownModel, level, id)
			}
			resolved.ReasoningLevel = level
			resolved.ReasoningBudget = budget
		}
		if use1M {
			resolved.ContextWindow = 1_000_000
		}
		return resolved, nil
	}

	return Entry{}, fmt.Errorf("%w: %s", gwerr.ErrUnknownModel, id)
}

func trimSuffix(id, suffix string) (string, bool) {
	if strings.HasSuffix(id, suffix) {
		return strings.TrimSuffix(id, suffix), true
	}
	return id, false
}

func parseReasoningSuffix(id string) (base, level string, ok bool) {
	const marker = "-reasoning-"
	idx := strings.LastIndex(id, marker)
	if idx < 0 {
		return id, "", false
	}
	return id[:idx], id[idx+len(marker):], true
}
