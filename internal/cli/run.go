// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// run.go - One complete run: flag resolution, attachment expansion, the
// concurrent fan-out, artifact export, and history indexing.
//
// This is the shared execution path behind `triad ask` and every prompt
// line entered in chat.

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jeranaias/triad/internal/anthropic"
	"github.com/jeranaias/triad/internal/attach"
	"github.com/jeranaias/triad/internal/config"
	"github.com/jeranaias/triad/internal/critique"
	"github.com/jeranaias/triad/internal/dispatch"
	"github.com/jeranaias/triad/internal/export"
	"github.com/jeranaias/triad/internal/flagset"
	"github.com/jeranaias/triad/internal/history"
	"github.com/jeranaias/triad/internal/ollama"
)

// =============================================================================
// TIER CALLER
// =============================================================================

// tierCaller implements dispatch.Caller over the Anthropic client. One
// instance serves all three tiers; the dispatcher supplies the tier.
type tierCaller struct {
	client  *anthropic.Client
	cfg     *config.Config
	verbose bool
}

func newTierCaller(cfg *config.Config, verbose bool) *tierCaller {
	client := anthropic.NewClient(cfg.Anthropic.APIKey)
	if cfg.Anthropic.RequestTimeoutSecs > 0 {
		client = client.WithTimeout(time.Duration(cfg.Anthropic.RequestTimeoutSecs) * time.Second)
	}
	return &tierCaller{client: client, cfg: cfg, verbose: verbose}
}

// modelFor maps a tier to its configured model ID.
func (t *tierCaller) modelFor(tier dispatch.Tier) string {
	switch tier {
	case dispatch.TierOpus:
		return t.cfg.Anthropic.Models.Opus
	case dispatch.TierSonnet:
		return t.cfg.Anthropic.Models.Sonnet
	case dispatch.TierHaiku:
		return t.cfg.Anthropic.Models.Haiku
	default:
		return ""
	}
}

// Call performs one tier exchange. Errors are folded into the result so a
// failed tier never aborts its siblings.
func (t *tierCaller) Call(ctx context.Context, tier dispatch.Tier, prompt string) dispatch.ModelResult {
	model := t.modelFor(tier)
	res := dispatch.ModelResult{Model: model}

	ac := t.cfg.Anthropic
	req := &anthropic.MessageRequest{
		Model:         model,
		MaxTokens:     ac.MaxTokens,
		Messages:      []anthropic.Message{anthropic.NewUserMessage(prompt)},
		Temperature:   ac.Temperature,
		TopP:          ac.TopP,
		TopK:          ac.TopK,
		System:        ac.System,
		StopSequences: ac.StopSequences,
	}
	if ac.WebSearch {
		req.Tools = []anthropic.Tool{anthropic.WebSearchTool(ac.WebSearchMaxUses)}
	}

	if t.verbose {
		statusf("%s: calling %s", tierStyle(tier.Name()).Render(tier.Name()), model)
	}

	start := time.Now()
	resp, err := t.client.CreateMessage(ctx, req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.Text = resp.TextContent()
	res.InputTokens = resp.Usage.InputTokens
	res.OutputTokens = resp.Usage.OutputTokens
	res.StopReason = resp.StopReason
	for _, sr := range resp.SearchResults() {
		res.Citations = append(res.Citations, dispatch.Citation{
			Query:   sr.Query,
			Title:   sr.Title,
			URL:     sr.URL,
			Snippet: sr.Snippet,
		})
	}
	return res
}

// =============================================================================
// RUNNER
// =============================================================================

// runner executes prompt runs. One runner serves a whole chat session; the
// config is re-read per run so /reload takes effect between prompts.
type runner struct {
	quiet    bool
	verbose  bool
	noOpen   bool
	json     bool
	override string // --flags token, wins over default_flags

	hist    *history.Store
	histErr bool // an open failure is warned once, not per run
}

func newRunner(args Args) *runner {
	return &runner{
		quiet:    args.Quiet,
		verbose:  args.Verbose,
		noOpen:   args.NoOpen,
		json:     args.JSON,
		override: args.Flags,
	}
}

// close releases the history store if one was opened.
func (r *runner) close() {
	if r.hist != nil {
		r.hist.Close()
		r.hist = nil
	}
}

// historyStore lazily opens the run index. Index failures degrade to
// warnings: a broken index must not block runs.
func (r *runner) historyStore(cfg *config.Config) *history.Store {
	if !cfg.History.Enabled || r.histErr {
		return r.hist
	}
	if r.hist == nil {
		dir, err := config.ConfigDir()
		if err != nil {
			r.histErr = true
			warnf("history index unavailable: %v", err)
			return nil
		}
		store, err := history.Open(filepath.Join(dir, "history.db"), cfg.History.MaxRuns)
		if err != nil {
			r.histErr = true
			warnf("history index unavailable: %v", err)
			return nil
		}
		r.hist = store
	}
	return r.hist
}

// resolveFlags determines the effective FlagSet for one raw prompt:
// an in-prompt token wins, then a --flags override, then the configured
// default. Malformed defaults fall back to all-enabled.
func resolveFlags(raw, override, configured string) (string, flagset.FlagSet) {
	def, err := flagset.ParseToken(configured)
	if err != nil {
		def, _ = flagset.ParseToken("++++")
	}
	if override != "" {
		if ov, err := flagset.ParseToken(override); err == nil {
			def = ov
		}
	}
	prompt, fs, _ := flagset.Resolve(raw, def)
	return prompt, fs
}

// execute runs one prompt end to end and reports the outcome on the
// terminal. Only a config-level failure or zero enabled tiers is an error;
// per-tier and recorder failures are surfaced as warnings.
func (r *runner) execute(ctx context.Context, cfg *config.Config, raw string) error {
	prompt, fs := resolveFlags(raw, r.override, cfg.DefaultFlags)
	return r.executeWith(ctx, cfg, prompt, fs)
}

func (r *runner) executeWith(ctx context.Context, cfg *config.Config, prompt string, fs flagset.FlagSet) error {
	if fs.TierCount() == 0 {
		return fmt.Errorf("no model tiers enabled by flags %q", fs.String())
	}
	if !r.quiet {
		statusf("model flags: %s -> %s", fs.String(), fs.Describe())
	}

	// Inline @path attachments. Failures keep the marker and warn.
	expanded := attach.Expand(prompt)
	for _, p := range expanded.Problems {
		warnf("attachment %s: %s", p.Path, p.Kind)
	}
	if !r.quiet {
		for _, a := range expanded.Attached {
			statusf("attached %s (%d bytes)", a.Path, a.Bytes)
		}
	}

	caller := newTierCaller(cfg, r.verbose)
	if !caller.client.Configured() {
		return errors.New("no API key configured (set ANTHROPIC_API_KEY or anthropic.api_key)")
	}

	var critic dispatch.Critic
	if cfg.Ollama.Model != "" {
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL: cfg.Ollama.BaseURL,
		})
		critic = critique.New(client, critique.Options{
			Model:       cfg.Ollama.Model,
			Temperature: cfg.Ollama.Temperature,
			Timeout:     time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
		})
	}

	if !r.quiet {
		statusf("dispatching to %d tier(s)...", fs.TierCount())
	}

	start := time.Now()
	rec, err := dispatch.New(caller, critic).Run(ctx, dispatch.Request{
		Prompt:   expanded.Expanded,
		Flags:    fs,
		Snapshot: snapshotConfig(cfg),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("cancelled")
		}
		return err
	}

	if !r.quiet {
		r.reportResults(rec, time.Since(start))
	}
	if !r.quiet && !r.json {
		displayRun(rec)
	}

	r.record(ctx, cfg, rec)
	return nil
}

// reportResults prints the per-tier outcome lines.
func (r *runner) reportResults(rec *dispatch.RunRecord, elapsed time.Duration) {
	for _, res := range rec.Results {
		name := tierStyle(res.Tier).Render(res.Tier)
		if res.Failed() {
			errorf("%s failed: %s", name, res.Err)
			continue
		}
		statusf("%s done: %d tokens in %.1fs", name, res.OutputTokens, res.Latency.Seconds())
	}
	if rec.Critique != nil {
		if rec.Critique.Failed() {
			warnf("critique unavailable: %s", rec.Critique.Err)
		} else {
			statusf("critique (%s) done in %.1fs", rec.Critique.Model, rec.Critique.Latency.Seconds())
		}
	}
	statusf("run complete in %.1fs", elapsed.Seconds())
}

// record writes the artifacts and the index row. Both are best-effort: the
// run already succeeded from the user's point of view.
func (r *runner) record(ctx context.Context, cfg *config.Config, rec *dispatch.RunRecord) {
	outDir := cfg.OutputDir
	if outDir == "" {
		if d, err := config.DefaultOutputDir(); err == nil {
			outDir = d
		} else {
			outDir = "."
		}
	}

	arts, err := export.Record(rec, &export.Options{
		OutputDir:       outDir,
		OpenAfterExport: cfg.OpenHTML && !r.noOpen,
		Theme:           "dark",
	})
	if err != nil {
		warnf("recording run: %v", err)
	}

	if arts.JSONPath != "" {
		if r.json {
			fmt.Println(arts.JSONPath)
		} else if !r.quiet {
			statusf("saved %s", pathStyle.Render(arts.JSONPath))
		}
		if arts.HTMLPath != "" && !r.quiet && !r.json {
			statusf("saved %s", pathStyle.Render(arts.HTMLPath))
		}
	}

	if store := r.historyStore(cfg); store != nil && arts.JSONPath != "" {
		if _, err := store.Record(ctx, rec, arts.JSONPath, arts.HTMLPath); err != nil {
			warnf("history index: %v", err)
		}
	}
}

// snapshotConfig captures the effective request configuration for the run
// record. Pointer fields are copied so a later reload cannot mutate a
// snapshot already attached to a run.
func snapshotConfig(cfg *config.Config) dispatch.ConfigSnapshot {
	ac := cfg.Anthropic
	snap := dispatch.ConfigSnapshot{
		MaxTokens:        ac.MaxTokens,
		System:           ac.System,
		WebSearch:        ac.WebSearch,
		WebSearchMaxUses: ac.WebSearchMaxUses,
		Models: map[string]string{
			"opus":   ac.Models.Opus,
			"sonnet": ac.Models.Sonnet,
			"haiku":  ac.Models.Haiku,
		},
	}
	if ac.Temperature != nil {
		v := *ac.Temperature
		snap.Temperature = &v
	}
	if ac.TopP != nil {
		v := *ac.TopP
		snap.TopP = &v
	}
	if ac.TopK != nil {
		v := *ac.TopK
		snap.TopK = &v
	}
	if len(ac.StopSequences) > 0 {
		snap.StopSequences = append([]string(nil), ac.StopSequences...)
	}
	return snap
}
