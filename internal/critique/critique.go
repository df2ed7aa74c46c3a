// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package critique runs the dependent evaluation stage: a local model reads
// every tier response from a run and produces a comparison (or a single-
// response critique when only one tier answered).
package critique

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/triad/internal/dispatch"
	"github.com/jeranaias/triad/internal/ollama"
)

// =============================================================================
// PROMPT CONSTRUCTION
// =============================================================================

// capitalize uppercases the first byte ("opus" -> "Opus"). Tier names are
// ASCII by construction.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// BuildPrompt assembles the evaluation prompt from the original prompt and
// every tier result, in tier order. Failed tiers appear as annotated error
// sections so the evaluator knows a response is missing rather than empty.
func BuildPrompt(prompt string, results []dispatch.ModelResult) string {
	var names []string
	for _, r := range results {
		names = append(names, capitalize(r.Tier))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The following prompt was sent to %d AI model(s) (%s):\n\n",
		len(results), strings.Join(names, ", "))
	fmt.Fprintf(&b, "PROMPT: %s\n\n", prompt)

	for _, r := range results {
		fmt.Fprintf(&b, "--- %s ---\n", strings.ToUpper(r.Tier))
		if r.Failed() {
			fmt.Fprintf(&b, "[ERROR: %s]\n\n", r.Err)
		} else {
			fmt.Fprintf(&b, "%s\n\n", r.Text)
		}
	}

	if len(results) == 1 {
		b.WriteString("Summarize and critique this response. Evaluate its depth, accuracy, " +
			"completeness, and note any errors or omissions. Be concise but thorough.")
	} else {
		b.WriteString("Compare and contrast these responses. Identify key differences in " +
			"depth, accuracy, style, and completeness. Note any unique insights each model provided " +
			"and any errors or omissions. Be concise but thorough.")
	}

	return b.String()
}

// =============================================================================
// CRITIC
// =============================================================================

// Critic evaluates run results against a local Ollama model. It implements
// dispatch.Critic.
type Critic struct {
	client      *ollama.Client
	model       string
	temperature *float64
	timeout     time.Duration
}

// Options configures a Critic.
type Options struct {
	// Model is the local model name. Required.
	Model string
	// Temperature is an optional sampling override.
	Temperature *float64
	// Timeout bounds one evaluation call (0 = client default).
	Timeout time.Duration
}

// New creates a Critic backed by the given Ollama client.
func New(client *ollama.Client, opts Options) *Critic {
	return &Critic{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
	}
}

// Critique reads every tier result and asks the local model for an
// evaluation. Failures are reported in the result, never as a Go error:
// a broken critique must not lose the tier responses.
func (c *Critic) Critique(ctx context.Context, prompt string, results []dispatch.ModelResult) dispatch.CritiqueResult {
	res := dispatch.CritiqueResult{Model: c.model}

	if c.model == "" {
		res.Err = "local model not configured"
		return res
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &ollama.GenerateRequest{
		Model:  c.model,
		Prompt: BuildPrompt(prompt, results),
	}
	if c.temperature != nil {
		req.Options = &ollama.Options{Temperature: c.temperature}
	}

	start := time.Now()
	resp, err := c.client.Generate(ctx, req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.Text = resp.Response
	res.EvalTokens = resp.EvalCount
	return res
}
