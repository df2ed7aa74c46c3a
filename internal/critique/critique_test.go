// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package critique

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/triad/internal/dispatch"
	"github.com/jeranaias/triad/internal/ollama"
)

func TestBuildPrompt_MultipleResults(t *testing.T) {
	results := []dispatch.ModelResult{
		{Tier: "opus", Text: "deep answer"},
		{Tier: "sonnet", Text: "balanced answer"},
		{Tier: "haiku", Text: "quick answer"},
	}

	got := BuildPrompt("what is karst", results)

	if !strings.HasPrefix(got, "The following prompt was sent to 3 AI model(s) (Opus, Sonnet, Haiku):") {
		t.Errorf("header wrong:\n%s", got)
	}
	if !strings.Contains(got, "PROMPT: what is karst") {
		t.Error("missing prompt line")
	}
	for _, section := range []string{"--- OPUS ---\ndeep answer", "--- SONNET ---\nbalanced answer", "--- HAIKU ---\nquick answer"} {
		if !strings.Contains(got, section) {
			t.Errorf("missing section %q", section)
		}
	}
	if !strings.Contains(got, "Compare and contrast these responses.") {
		t.Error("missing multi-response instruction")
	}
	if strings.Contains(got, "Summarize and critique") {
		t.Error("single-response instruction used for multiple results")
	}

	// Sections appear in tier order
	opusIdx := strings.Index(got, "--- OPUS ---")
	sonnetIdx := strings.Index(got, "--- SONNET ---")
	haikuIdx := strings.Index(got, "--- HAIKU ---")
	if !(opusIdx < sonnetIdx && sonnetIdx < haikuIdx) {
		t.Error("sections out of order")
	}
}

func TestBuildPrompt_SingleResult(t *testing.T) {
	results := []dispatch.ModelResult{{Tier: "sonnet", Text: "only answer"}}

	got := BuildPrompt("explain tides", results)

	if !strings.Contains(got, "1 AI model(s) (Sonnet)") {
		t.Errorf("header wrong:\n%s", got)
	}
	if !strings.Contains(got, "Summarize and critique this response.") {
		t.Error("missing single-response instruction")
	}
	if strings.Contains(got, "Compare and contrast") {
		t.Error("multi-response instruction used for one result")
	}
}

func TestBuildPrompt_FailedTierAnnotated(t *testing.T) {
	results := []dispatch.ModelResult{
		{Tier: "opus", Text: "fine"},
		{Tier: "haiku", Err: "anthropic: rate limited"},
	}

	got := BuildPrompt("q", results)

	if !strings.Contains(got, "--- HAIKU ---\n[ERROR: anthropic: rate limited]") {
		t.Errorf("failed tier not annotated:\n%s", got)
	}
	if !strings.Contains(got, "--- OPUS ---\nfine") {
		t.Error("successful tier missing")
	}
}

func TestCritique(t *testing.T) {
	var gotReq ollama.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(ollama.GenerateResponse{
			Model:     gotReq.Model,
			Response:  "opus was deepest",
			Done:      true,
			EvalCount: 77,
		})
	}))
	defer srv.Close()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL})
	temp := 0.2
	critic := New(client, Options{Model: "llama3.1:8b", Temperature: &temp})

	res := critic.Critique(context.Background(), "q", []dispatch.ModelResult{
		{Tier: "opus", Text: "a"},
		{Tier: "sonnet", Text: "b"},
	})

	if res.Err != "" {
		t.Fatalf("Err = %q", res.Err)
	}
	if res.Text != "opus was deepest" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.EvalTokens != 77 {
		t.Errorf("EvalTokens = %d", res.EvalTokens)
	}
	if res.Model != "llama3.1:8b" {
		t.Errorf("Model = %q", res.Model)
	}
	if res.Latency <= 0 {
		t.Error("Latency not recorded")
	}
	if gotReq.Options == nil || gotReq.Options.Temperature == nil || *gotReq.Options.Temperature != 0.2 {
		t.Errorf("options = %+v", gotReq.Options)
	}
	if !strings.Contains(gotReq.Prompt, "PROMPT: q") {
		t.Error("evaluation prompt not built")
	}
}

func TestCritique_NoModelConfigured(t *testing.T) {
	critic := New(ollama.NewClient(), Options{})
	res := critic.Critique(context.Background(), "q", nil)
	if res.Err != "local model not configured" {
		t.Errorf("Err = %q", res.Err)
	}
}

func TestCritique_ServerDownIsNonFatal(t *testing.T) {
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: "http://127.0.0.1:1"})
	critic := New(client, Options{Model: "llama3.1:8b"})

	res := critic.Critique(context.Background(), "q", []dispatch.ModelResult{{Tier: "opus", Text: "a"}})
	if res.Err == "" {
		t.Fatal("expected recorded error")
	}
	if res.Model != "llama3.1:8b" {
		t.Errorf("Model = %q", res.Model)
	}
}
