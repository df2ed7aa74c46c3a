// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

// =============================================================================
// GENERATE API TYPES
// =============================================================================

// Options are per-request sampling options. Temperature is a pointer so an
// unset value leaves the model default in effect.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// GenerateRequest is one request to /api/generate. Stream is always sent
// explicitly: the critique stage wants a single complete body.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// GenerateResponse is the non-streaming response from /api/generate.
type GenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	TotalDuration   int64  `json:"total_duration"`
}

// errorResponse is the body returned on failures (e.g. unknown model).
type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// MODEL LISTING TYPES
// =============================================================================

// ModelInfo describes one locally available model.
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse is the response from /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}
