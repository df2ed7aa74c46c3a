// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jeranaias/triad/internal/dispatch"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a run record as a single markdown document, one
// section per tier. Useful for pasting a run into notes or an issue.
type MarkdownExporter struct {
	opts *Options
}

// NewMarkdownExporter creates a markdown exporter with the given options.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{opts: opts}
}

// Export renders the record.
func (e *MarkdownExporter) Export(rec *dispatch.RunRecord) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Run %s\n\n", formatTimestamp(rec.Timestamp))
	fmt.Fprintf(&buf, "**Prompt:**\n\n> %s\n\n", strings.ReplaceAll(rec.Prompt, "\n", "\n> "))
	fmt.Fprintf(&buf, "Flags: `%s`\n\n", rec.FlagToken)

	for i := range rec.Results {
		r := &rec.Results[i]
		fmt.Fprintf(&buf, "## %s\n\n", strings.ToUpper(r.Tier))
		if r.Failed() {
			fmt.Fprintf(&buf, "**Error:** %s\n\n", r.Err)
			continue
		}
		fmt.Fprintf(&buf, "_%s — in %d tok, out %d tok, %s_\n\n",
			r.Model, r.InputTokens, r.OutputTokens, formatLatency(r.Latency))
		buf.WriteString(r.Text)
		buf.WriteString("\n\n")

		var sources []string
		for _, c := range r.Citations {
			if c.URL != "" {
				sources = append(sources, fmt.Sprintf("- [%s](%s)", c.Title, c.URL))
			}
		}
		if len(sources) > 0 {
			fmt.Fprintf(&buf, "**Sources:**\n\n%s\n\n", strings.Join(sources, "\n"))
		}
	}

	if c := rec.Critique; c != nil {
		buf.WriteString("## Comparison\n\n")
		if c.Err != "" {
			fmt.Fprintf(&buf, "**Error:** %s\n", c.Err)
		} else {
			fmt.Fprintf(&buf, "_%s — %d eval tok, %s_\n\n", c.Model, c.EvalTokens, formatLatency(c.Latency))
			buf.WriteString(c.Text)
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the markdown MIME type.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}
