// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import "encoding/json"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// NewUserMessage creates a user turn.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Tool is a server-side tool definition. The only tool this client sends is
// the bounded web-search tool.
type Tool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// WebSearchTool returns the web-search tool definition with a cap on how
// many searches one call may issue.
func WebSearchTool(maxUses int) Tool {
	return Tool{Type: "web_search_20250305", Name: "web_search", MaxUses: maxUses}
}

// MessageRequest is one request to the messages endpoint. Pointer sampling
// fields are omitted from the wire when unset, leaving the API defaults in
// effect.
type MessageRequest struct {
	Model         string    `json:"model"`
	MaxTokens     int       `json:"max_tokens"`
	Messages      []Message `json:"messages"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	TopK          *int      `json:"top_k,omitempty"`
	System        string    `json:"system,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Tools         []Tool    `json:"tools,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ContentBlock is one element of a response's content array. Input and
// Content stay raw: their shape depends on the block type and only the
// web-search shapes are decoded, lazily.
type ContentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Usage reports token accounting for one exchange.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessageResponse is one response from the messages endpoint.
type MessageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// TextContent concatenates every text block into the response body.
func (r *MessageResponse) TextContent() string {
	var out []byte
	for _, block := range r.Content {
		if block.Type == "text" {
			out = append(out, block.Text...)
		}
	}
	return string(out)
}

// SearchResult is one piece of web-search metadata folded out of the content
// blocks: either an issued query or a cited result.
type SearchResult struct {
	Query   string `json:"query,omitempty"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// webSearchInput is the decoded input of a server_tool_use block.
type webSearchInput struct {
	Query string `json:"query"`
}

// webSearchResult is one entry of a web_search_tool_result block's content.
type webSearchResult struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PageSnippet string `json:"page_snippet"`
}

// SearchResults extracts search queries and cited results in block order.
// Tool-result errors (the content not being a result list) are skipped.
func (r *MessageResponse) SearchResults() []SearchResult {
	var results []SearchResult
	for _, block := range r.Content {
		switch block.Type {
		case "server_tool_use":
			if block.Name != "web_search" {
				continue
			}
			var in webSearchInput
			if err := json.Unmarshal(block.Input, &in); err == nil {
				results = append(results, SearchResult{Query: in.Query})
			}
		case "web_search_tool_result":
			var entries []webSearchResult
			if err := json.Unmarshal(block.Content, &entries); err != nil {
				continue
			}
			for _, e := range entries {
				if e.Type != "web_search_result" {
					continue
				}
				results = append(results, SearchResult{
					Title:   e.Title,
					URL:     e.URL,
					Snippet: e.PageSnippet,
				})
			}
		}
	}
	return results
}

// apiErrorResponse is the error envelope returned on non-2xx statuses.
type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
