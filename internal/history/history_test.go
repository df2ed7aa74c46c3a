// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/triad/internal/dispatch"
)

func openTestStore(t *testing.T, maxRuns int) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), maxRuns)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(prompt string, ts time.Time) *dispatch.RunRecord {
	return &dispatch.RunRecord{
		Timestamp: ts,
		Prompt:    prompt,
		FlagToken: "+++-",
		Results: []dispatch.ModelResult{
			{Tier: "opus", Text: "a"},
			{Tier: "sonnet", Err: "boom"},
		},
	}
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := testRecord(fmt.Sprintf("prompt %d", i), base.Add(time.Duration(i)*time.Minute))
		id, err := store.Record(ctx, rec, "/runs/a.json", "/runs/a.html")
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if id == "" {
			t.Fatal("empty id")
		}
	}

	metas, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("len = %d", len(metas))
	}
	// Newest first
	if metas[0].Prompt != "prompt 2" || metas[2].Prompt != "prompt 0" {
		t.Errorf("order wrong: %v, %v", metas[0].Prompt, metas[2].Prompt)
	}
	if metas[0].ErrorCount != 1 {
		t.Errorf("ErrorCount = %d", metas[0].ErrorCount)
	}
	if metas[0].Critiqued {
		t.Error("Critiqued = true for run without critique")
	}
	if metas[0].JSONPath != "/runs/a.json" {
		t.Errorf("JSONPath = %q", metas[0].JSONPath)
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited len = %d", len(limited))
	}
}

func TestSearch(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()
	ts := time.Now().UTC()

	for _, p := range []string{"explain karst hydrology", "what is a monad", "Karst caves"} {
		if _, err := store.Record(ctx, testRecord(p, ts), "j", "h"); err != nil {
			t.Fatal(err)
		}
		ts = ts.Add(time.Second)
	}

	metas, err := store.Search(ctx, "karst", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len = %d: %+v", len(metas), metas)
	}

	// LIKE metacharacters in the term match literally
	if _, err := store.Record(ctx, testRecord("literally 100% done", ts), "j", "h"); err != nil {
		t.Fatal(err)
	}
	metas, err = store.Search(ctx, "100%", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 {
		t.Errorf("percent search len = %d", len(metas))
	}
}

func TestGet_ByPrefix(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()

	id, err := store.Record(ctx, testRecord("p", time.Now().UTC()), "j", "h")
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, id[:8])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}

	if _, err := store.Get(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t, 3)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := testRecord(fmt.Sprintf("prompt %d", i), base.Add(time.Duration(i)*time.Minute))
		if _, err := store.Record(ctx, rec, "j", "h"); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	metas, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Oldest two were pruned
	if metas[len(metas)-1].Prompt != "prompt 2" {
		t.Errorf("oldest kept = %q", metas[len(metas)-1].Prompt)
	}
}

func TestSummary(t *testing.T) {
	m := RunMeta{Prompt: "first line of a prompt\nsecond line"}
	if got := m.Summary(); got != "first line of a prompt" {
		t.Errorf("Summary = %q", got)
	}
}
