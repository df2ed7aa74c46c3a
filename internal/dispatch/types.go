// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"time"
)

// =============================================================================
// TIERS
// =============================================================================

// Tier identifies one of the three hosted model endpoints.
type Tier int

const (
	TierOpus Tier = iota
	TierSonnet
	TierHaiku
)

// TierOrder is the fixed ordering used everywhere results appear: records,
// documents, and critique prompts all follow it regardless of which call
// finished first.
var TierOrder = []Tier{TierOpus, TierSonnet, TierHaiku}

// Name returns the lowercase tier name used in config keys and records.
func (t Tier) Name() string {
	switch t {
	case TierOpus:
		return "opus"
	case TierSonnet:
		return "sonnet"
	case TierHaiku:
		return "haiku"
	default:
		return "unknown"
	}
}

// =============================================================================
// RESULTS
// =============================================================================

// Citation is one piece of web-search metadata attached to a response:
// either the query a search issued, or a result the model cited.
type Citation struct {
	Query   string `json:"query,omitempty"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// ModelResult is the outcome of one hosted-model exchange. Created by the
// caller, owned by the dispatcher, immutable once built. A failed call is a
// result with Err set, never a missing entry: one tier's failure is
// independent of its siblings.
type ModelResult struct {
	Tier         string        `json:"tier"`
	Model        string        `json:"model,omitempty"`
	Text         string        `json:"response_text"`
	Citations    []Citation    `json:"search_results,omitempty"`
	InputTokens  int           `json:"input_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	StopReason   string        `json:"stop_reason,omitempty"`
	Latency      time.Duration `json:"latency_ns"`
	Err          string        `json:"error,omitempty"`
}

// Failed reports whether the exchange ended in an error.
func (r ModelResult) Failed() bool {
	return r.Err != ""
}

// CritiqueResult is the outcome of the dependent local-model stage.
type CritiqueResult struct {
	Model      string        `json:"model,omitempty"`
	Text       string        `json:"response_text,omitempty"`
	EvalTokens int           `json:"eval_tokens,omitempty"`
	Latency    time.Duration `json:"latency_ns"`
	Err        string        `json:"error,omitempty"`
}

// Failed reports whether the critique call ended in an error.
func (c CritiqueResult) Failed() bool {
	return c.Err != ""
}

// =============================================================================
// CONFIG SNAPSHOT
// =============================================================================

// ConfigSnapshot is the effective request configuration captured at dispatch
// start. A config reload never touches a snapshot already handed to a run.
// Pointer fields distinguish "unset, omit from the request" from zero values.
type ConfigSnapshot struct {
	MaxTokens        int               `json:"max_tokens"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopP             *float64          `json:"top_p,omitempty"`
	TopK             *int              `json:"top_k,omitempty"`
	System           string            `json:"system,omitempty"`
	StopSequences    []string          `json:"stop_sequences,omitempty"`
	WebSearch        bool              `json:"web_search"`
	WebSearchMaxUses int               `json:"web_search_max_uses,omitempty"`
	Models           map[string]string `json:"models"`
}

// =============================================================================
// RUN RECORD
// =============================================================================

// RunRecord is the complete result of one dispatch: written exactly once by
// the recorder, never mutated after Run returns.
type RunRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Prompt    string          `json:"prompt"`
	FlagToken string          `json:"model_flags"`
	Config    ConfigSnapshot  `json:"config"`
	Results   []ModelResult   `json:"results"`
	Critique  *CritiqueResult `json:"comparison,omitempty"`
}

// ErrorCount returns how many launched tiers failed.
func (r *RunRecord) ErrorCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Result returns the result for a tier name, or nil when that tier was not
// launched.
func (r *RunRecord) Result(tier string) *ModelResult {
	for i := range r.Results {
		if r.Results[i].Tier == tier {
			return &r.Results[i]
		}
	}
	return nil
}
