// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch runs the concurrent fan-out over the enabled hosted tiers
// and the dependent local critique stage.
//
// The primary calls are independent I/O-bound exchanges and run one goroutine
// per tier; total latency is bounded by the slowest tier, not the sum. Each
// goroutine writes into its own fixed slot, so the aggregated record follows
// tier order (opus, sonnet, haiku) no matter which call finishes first and no
// locking is needed. The critique stage starts only after the join barrier
// over every primary call.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/triad/internal/flagset"
)

// ErrNoTiers is returned when the resolved flags enable no hosted tier.
// Dispatching nothing is a usage error, not an empty success.
var ErrNoTiers = errors.New("no model tiers enabled")

// Caller performs one hosted-model exchange. Implementations must return an
// error-carrying ModelResult rather than panicking or aborting siblings.
type Caller interface {
	Call(ctx context.Context, tier Tier, prompt string) ModelResult
}

// Critic performs the dependent local-model comparison over the primary
// results.
type Critic interface {
	Critique(ctx context.Context, prompt string, results []ModelResult) CritiqueResult
}

// Dispatcher coordinates one run: fan out, join, optional critique.
type Dispatcher struct {
	caller Caller
	critic Critic // nil when no local model is configured
}

// New creates a Dispatcher. critic may be nil; critique requests are then
// recorded as absent with a diagnostic.
func New(caller Caller, critic Critic) *Dispatcher {
	return &Dispatcher{caller: caller, critic: critic}
}

// Request is one resolved dispatch: cleaned prompt, parsed flags, and the
// config snapshot taken at dispatch start. Raw flag strings never reach this
// package; the boundary parses them into a FlagSet first.
type Request struct {
	Prompt   string
	Flags    flagset.FlagSet
	Snapshot ConfigSnapshot
}

// enabledTiers returns the launched tiers in fixed order.
func enabledTiers(f flagset.FlagSet) []Tier {
	var tiers []Tier
	if f.Opus {
		tiers = append(tiers, TierOpus)
	}
	if f.Sonnet {
		tiers = append(tiers, TierSonnet)
	}
	if f.Haiku {
		tiers = append(tiers, TierHaiku)
	}
	return tiers
}

// Run executes one dispatch to completion and returns the RunRecord.
//
// Cancellation: when ctx is done before the join completes, Run returns
// ctx.Err() and no record; in-flight calls observe the same context and
// abandon their requests. A per-tier failure is never fatal, and a critique
// failure is recorded in the critique slot without invalidating the primary
// results.
func (d *Dispatcher) Run(ctx context.Context, req Request) (*RunRecord, error) {
	tiers := enabledTiers(req.Flags)
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}

	// Fan out: one goroutine per enabled tier, each with its own slot.
	results := make([]ModelResult, len(tiers))
	var wg sync.WaitGroup
	for i, tier := range tiers {
		wg.Add(1)
		go func(slot int, t Tier) {
			defer wg.Done()
			res := d.caller.Call(ctx, t, req.Prompt)
			res.Tier = t.Name()
			results[slot] = res
		}(i, tier)
	}

	// Join barrier: the critique stage depends on every primary result,
	// success or failure.
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var critique *CritiqueResult
	if req.Flags.Critique {
		c := d.runCritique(ctx, req.Prompt, results)
		critique = &c
	}

	return &RunRecord{
		Timestamp: time.Now().UTC(),
		Prompt:    req.Prompt,
		FlagToken: req.Flags.String(),
		Config:    req.Snapshot,
		Results:   results,
		Critique:  critique,
	}, nil
}

// runCritique invokes the critic exactly once. Its failure is an absence in
// the record, never an error for the run.
func (d *Dispatcher) runCritique(ctx context.Context, prompt string, results []ModelResult) CritiqueResult {
	if d.critic == nil {
		return CritiqueResult{Err: "local model not configured"}
	}
	return d.critic.Critique(ctx, prompt, results)
}
