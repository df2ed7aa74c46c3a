// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/triad/internal/flagset"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeCaller returns canned results with configurable per-tier delays so
// tests can invert completion order.
type fakeCaller struct {
	calls  atomic.Int32
	delays map[Tier]time.Duration
	fail   map[Tier]string
}

func (f *fakeCaller) Call(ctx context.Context, tier Tier, prompt string) ModelResult {
	f.calls.Add(1)
	if d, ok := f.delays[tier]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ModelResult{Err: ctx.Err().Error()}
		}
	}
	if msg, ok := f.fail[tier]; ok {
		return ModelResult{Err: msg}
	}
	return ModelResult{
		Model: "model-" + tier.Name(),
		Text:  tier.Name() + " says: " + prompt,
	}
}

// fakeCritic records its input and returns a canned critique.
type fakeCritic struct {
	calls atomic.Int32
	seen  []ModelResult
	text  string
	err   string
}

func (f *fakeCritic) Critique(ctx context.Context, prompt string, results []ModelResult) CritiqueResult {
	f.calls.Add(1)
	f.seen = append([]ModelResult(nil), results...)
	return CritiqueResult{Model: "local", Text: f.text, Err: f.err}
}

func parse(t *testing.T, token string) flagset.FlagSet {
	t.Helper()
	fs, err := flagset.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken(%q): %v", token, err)
	}
	return fs
}

// =============================================================================
// FAN-OUT TESTS
// =============================================================================

func TestRun_InvokesOneCallPerEnabledTier(t *testing.T) {
	tests := []struct {
		token string
		want  int
	}{
		{"+---", 1},
		{"++--", 2},
		{"+++-", 3},
		{"-+--", 1},
		{"--+-", 1},
	}

	for _, tc := range tests {
		t.Run(tc.token, func(t *testing.T) {
			caller := &fakeCaller{}
			critic := &fakeCritic{}
			d := New(caller, critic)

			rec, err := d.Run(context.Background(), Request{
				Prompt: "hello",
				Flags:  parse(t, tc.token),
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := int(caller.calls.Load()); got != tc.want {
				t.Errorf("caller invocations = %d, want %d", got, tc.want)
			}
			if got := int(critic.calls.Load()); got != 0 {
				t.Errorf("critic invocations = %d, want 0 with critique disabled", got)
			}
			if len(rec.Results) != tc.want {
				t.Errorf("results = %d, want %d", len(rec.Results), tc.want)
			}
		})
	}
}

func TestRun_ZeroTiersIsUsageError(t *testing.T) {
	d := New(&fakeCaller{}, nil)

	rec, err := d.Run(context.Background(), Request{
		Prompt: "hello",
		Flags:  parse(t, "----"),
	})
	if !errors.Is(err, ErrNoTiers) {
		t.Fatalf("err = %v, want ErrNoTiers", err)
	}
	if rec != nil {
		t.Error("no record expected for a zero-tier dispatch")
	}
}

// Result ordering must follow fixed tier order even when completion order is
// inverted: haiku finishes first, opus last.
func TestRun_ResultOrderIsTierOrder(t *testing.T) {
	caller := &fakeCaller{
		delays: map[Tier]time.Duration{
			TierOpus:   60 * time.Millisecond,
			TierSonnet: 30 * time.Millisecond,
			TierHaiku:  0,
		},
	}
	d := New(caller, nil)

	rec, err := d.Run(context.Background(), Request{
		Prompt: "order check",
		Flags:  parse(t, "+++-"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"opus", "sonnet", "haiku"}
	if len(rec.Results) != len(want) {
		t.Fatalf("results = %d, want %d", len(rec.Results), len(want))
	}
	for i, name := range want {
		if rec.Results[i].Tier != name {
			t.Errorf("Results[%d].Tier = %q, want %q", i, rec.Results[i].Tier, name)
		}
	}
}

// =============================================================================
// CRITIQUE STAGE TESTS
// =============================================================================

func TestRun_CritiqueSeesAllResultsAfterJoin(t *testing.T) {
	caller := &fakeCaller{
		delays: map[Tier]time.Duration{TierOpus: 40 * time.Millisecond},
	}
	critic := &fakeCritic{text: "a fine comparison"}
	d := New(caller, critic)

	rec, err := d.Run(context.Background(), Request{
		Prompt: "compare",
		Flags:  parse(t, "++++"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := int(critic.calls.Load()); got != 1 {
		t.Fatalf("critic invocations = %d, want exactly 1", got)
	}
	// The join is a barrier: the critic must have seen every primary
	// result, including the slow one.
	if len(critic.seen) != 3 {
		t.Fatalf("critic saw %d results, want 3", len(critic.seen))
	}
	for _, r := range critic.seen {
		if r.Text == "" && !r.Failed() {
			t.Error("critic received an unfinished result")
		}
	}
	if rec.Critique == nil || rec.Critique.Text != "a fine comparison" {
		t.Errorf("Critique = %+v", rec.Critique)
	}
}

func TestRun_TierFailureIsIsolated(t *testing.T) {
	caller := &fakeCaller{
		fail: map[Tier]string{TierSonnet: "api error: overloaded"},
	}
	critic := &fakeCritic{text: "judged the survivors"}
	d := New(caller, critic)

	rec, err := d.Run(context.Background(), Request{
		Prompt: "resilience",
		Flags:  parse(t, "++++"),
	})
	if err != nil {
		t.Fatalf("Run: %v, a tier failure must not fail the run", err)
	}

	if rec.ErrorCount() != 1 {
		t.Errorf("ErrorCount = %d, want 1", rec.ErrorCount())
	}
	sonnet := rec.Result("sonnet")
	if sonnet == nil || !sonnet.Failed() {
		t.Fatal("sonnet result should be recorded as failed")
	}
	if !strings.Contains(sonnet.Err, "overloaded") {
		t.Errorf("sonnet.Err = %q", sonnet.Err)
	}
	for _, name := range []string{"opus", "haiku"} {
		if r := rec.Result(name); r == nil || r.Failed() {
			t.Errorf("%s should have succeeded: %+v", name, r)
		}
	}
	// Critique still runs, computed over all launched tiers with the
	// failure annotated by the critic.
	if got := int(critic.calls.Load()); got != 1 {
		t.Errorf("critic invocations = %d, want 1", got)
	}
}

func TestRun_CritiqueFailureIsNotFatal(t *testing.T) {
	caller := &fakeCaller{}
	critic := &fakeCritic{err: "connection refused"}
	d := New(caller, critic)

	rec, err := d.Run(context.Background(), Request{
		Prompt: "hello",
		Flags:  parse(t, "+++"),
	})
	if err != nil {
		t.Fatalf("Run: %v, a critique failure must not fail the run", err)
	}

	if len(rec.Results) != 3 {
		t.Errorf("primary results = %d, want 3", len(rec.Results))
	}
	for _, r := range rec.Results {
		if r.Failed() {
			t.Errorf("primary result %s unexpectedly failed", r.Tier)
		}
	}
	if rec.Critique == nil || !rec.Critique.Failed() {
		t.Fatalf("Critique = %+v, want failure recorded", rec.Critique)
	}
}

func TestRun_NilCriticRecordsAbsence(t *testing.T) {
	d := New(&fakeCaller{}, nil)

	rec, err := d.Run(context.Background(), Request{
		Prompt: "hello",
		Flags:  parse(t, "+--+"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Critique == nil || !rec.Critique.Failed() {
		t.Errorf("Critique = %+v, want recorded absence", rec.Critique)
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestRun_CancellationWritesNoRecord(t *testing.T) {
	caller := &fakeCaller{
		delays: map[Tier]time.Duration{
			TierOpus:   time.Second,
			TierSonnet: time.Second,
			TierHaiku:  time.Second,
		},
	}
	critic := &fakeCritic{}
	d := New(caller, critic)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	rec, err := d.Run(ctx, Request{
		Prompt: "interrupted",
		Flags:  parse(t, "++++"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rec != nil {
		t.Error("no partial record may be produced on cancellation")
	}
	if got := int(critic.calls.Load()); got != 0 {
		t.Errorf("critic invocations = %d, want 0 after cancellation", got)
	}
}

// =============================================================================
// RECORD HELPERS
// =============================================================================

func TestRunRecord_Result(t *testing.T) {
	rec := &RunRecord{Results: []ModelResult{
		{Tier: "opus", Text: "a"},
		{Tier: "haiku", Err: "boom"},
	}}

	if r := rec.Result("opus"); r == nil || r.Text != "a" {
		t.Errorf("Result(opus) = %+v", r)
	}
	if r := rec.Result("sonnet"); r != nil {
		t.Errorf("Result(sonnet) = %+v, want nil for unlaunched tier", r)
	}
	if rec.ErrorCount() != 1 {
		t.Errorf("ErrorCount = %d", rec.ErrorCount())
	}
}
