// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/triad/internal/dispatch"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the run record verbatim as indented JSON. This is the
// authoritative artifact: everything the run knew is in it.
type JSONExporter struct {
	opts *Options
}

// NewJSONExporter creates a JSON exporter with the given options.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{opts: opts}
}

// Export serializes the run record.
func (e *JSONExporter) Export(rec *dispatch.RunRecord) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal run record: %w", err)
	}
	return append(data, '\n'), nil
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the JSON MIME type.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
