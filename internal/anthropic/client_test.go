// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(url string) *Client {
	return NewClient("test-key").
		WithBaseURL(url).
		WithMaxRetries(0).
		WithRateLimit(1000)
}

func TestCreateMessage_Success(t *testing.T) {
	var gotReq MessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != apiVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(MessageResponse{
			ID:    "msg_1",
			Model: "claude-sonnet-4-5",
			Content: []ContentBlock{
				{Type: "text", Text: "hello "},
				{Type: "text", Text: "there"},
			},
			StopReason: "end_turn",
			Usage:      Usage{InputTokens: 12, OutputTokens: 4},
		})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).CreateMessage(context.Background(), &MessageRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 1024,
		Messages:  []Message{NewUserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if got := resp.TextContent(); got != "hello there" {
		t.Errorf("TextContent = %q", got)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 4 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if gotReq.Model != "claude-sonnet-4-5" || gotReq.MaxTokens != 1024 {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestCreateMessage_OmitsUnsetSampling(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(MessageResponse{})
	}))
	defer srv.Close()

	temp := 0.7
	_, err := testClient(srv.URL).CreateMessage(context.Background(), &MessageRequest{
		Model:       "claude-haiku-4-5",
		MaxTokens:   256,
		Messages:    []Message{NewUserMessage("hi")},
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, ok := raw["temperature"]; !ok {
		t.Error("temperature missing from wire request")
	}
	for _, key := range []string{"top_p", "top_k", "system", "stop_sequences", "tools"} {
		if _, ok := raw[key]; ok {
			t.Errorf("unset field %q present on wire", key)
		}
	}
}

func TestCreateMessage_WebSearchTool(t *testing.T) {
	var gotReq MessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(MessageResponse{})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateMessage(context.Background(), &MessageRequest{
		Model:     "claude-opus-4-1",
		MaxTokens: 1024,
		Messages:  []Message{NewUserMessage("latest news")},
		Tools:     []Tool{WebSearchTool(3)},
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if len(gotReq.Tools) != 1 {
		t.Fatalf("tools = %+v", gotReq.Tools)
	}
	tool := gotReq.Tools[0]
	if tool.Type != "web_search_20250305" || tool.Name != "web_search" || tool.MaxUses != 3 {
		t.Errorf("tool = %+v", tool)
	}
}

func TestCreateMessage_NotConfigured(t *testing.T) {
	c := NewClient("")
	_, err := c.CreateMessage(context.Background(), &MessageRequest{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestCreateMessage_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateMessage(context.Background(), &MessageRequest{
		Model: "claude-haiku-4-5", MaxTokens: 16, Messages: []Message{NewUserMessage("hi")},
	})
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err not *APIError: %v", err)
	}
	if apiErr.Type != "authentication_error" {
		t.Errorf("Type = %q", apiErr.Type)
	}
}

func TestCreateMessage_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found_error","message":"model: nope"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateMessage(context.Background(), &MessageRequest{
		Model: "nope", MaxTokens: 16, Messages: []Message{NewUserMessage("hi")},
	})
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}

func TestCreateMessage_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(MessageResponse{
			Content: []ContentBlock{{Type: "text", Text: "ok"}},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL).WithMaxRetries(2)
	resp, err := c.CreateMessage(context.Background(), &MessageRequest{
		Model: "claude-sonnet-4-5", MaxTokens: 16, Messages: []Message{NewUserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if resp.TextContent() != "ok" {
		t.Errorf("TextContent = %q", resp.TextContent())
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestCreateMessage_NoRetryOnAuthError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL).WithMaxRetries(3)
	_, err := c.CreateMessage(context.Background(), &MessageRequest{
		Model: "claude-sonnet-4-5", MaxTokens: 16, Messages: []Message{NewUserMessage("hi")},
	})
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCreateMessage_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		json.NewEncoder(w).Encode(MessageResponse{})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := testClient(srv.URL).CreateMessage(ctx, &MessageRequest{
		Model: "claude-sonnet-4-5", MaxTokens: 16, Messages: []Message{NewUserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestSearchResults_Extraction(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "server_tool_use", Name: "web_search", Input: json.RawMessage(`{"query":"karst hydrology"}`)},
		{Type: "web_search_tool_result", Content: json.RawMessage(`[
			{"type":"web_search_result","title":"Karst","url":"https://example.com/karst","page_snippet":"dissolution of soluble rocks"},
			{"type":"web_search_result","title":"Caves","url":"https://example.com/caves","page_snippet":"underground voids"}
		]`)},
		{Type: "text", Text: "Karst forms when..."},
	}}

	results := resp.SearchResults()
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(results), results)
	}
	if results[0].Query != "karst hydrology" {
		t.Errorf("query = %q", results[0].Query)
	}
	if results[1].Title != "Karst" || results[1].URL != "https://example.com/karst" {
		t.Errorf("result[1] = %+v", results[1])
	}
	if results[2].Snippet != "underground voids" {
		t.Errorf("result[2] = %+v", results[2])
	}
}

func TestSearchResults_SkipsErrorResult(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "web_search_tool_result", Content: json.RawMessage(`{"type":"web_search_tool_result_error","error_code":"unavailable"}`)},
		{Type: "text", Text: "no results"},
	}}
	if got := resp.SearchResults(); len(got) != 0 {
		t.Errorf("results = %+v, want empty", got)
	}
}

func TestTextContent_Empty(t *testing.T) {
	resp := &MessageResponse{}
	if got := resp.TextContent(); got != "" {
		t.Errorf("TextContent = %q", got)
	}
}
