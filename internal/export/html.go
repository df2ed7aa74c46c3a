// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/jeranaias/triad/internal/dispatch"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders a run record as a standalone dark-theme report:
// the prompt on top, one column per tier, and the critique below.
type HTMLExporter struct {
	opts *Options
	md   goldmark.Markdown
}

// NewHTMLExporter creates an HTML exporter with the given options.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		opts: opts,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				htmlrenderer.WithHardWraps(),
			),
		),
	}
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the HTML MIME type.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// Export renders the full report.
func (e *HTMLExporter) Export(rec *dispatch.RunRecord) ([]byte, error) {
	ncols := len(rec.Results)
	if ncols == 0 {
		ncols = 1
	}

	var cards strings.Builder
	for i := range rec.Results {
		cards.WriteString(e.renderCard(&rec.Results[i]))
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>triad — %s</title>
<style>
%s
</style>
</head>
<body>
<div class="ts">%s</div>
<div class="prompt-label">Prompt</div>
<div class="prompt">%s</div>
<div class="grid" style="grid-template-columns: repeat(%d, 1fr);">
%s</div>
%s</body>
</html>
`,
		html.EscapeString(formatTimestamp(rec.Timestamp)),
		e.css(),
		html.EscapeString(formatTimestamp(rec.Timestamp)),
		html.EscapeString(rec.Prompt),
		ncols,
		cards.String(),
		e.renderCritique(rec.Critique),
	)

	return buf.Bytes(), nil
}

// renderMarkdown converts markdown text to HTML, falling back to escaped
// preformatted text when conversion fails.
func (e *HTMLExporter) renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(text), &buf); err != nil {
		return "<pre>" + html.EscapeString(text) + "</pre>"
	}
	return buf.String()
}

// renderCard renders one tier column.
func (e *HTMLExporter) renderCard(r *dispatch.ModelResult) string {
	var body, meta string

	if r.Failed() {
		body = fmt.Sprintf(`<p class="error">%s</p>`, html.EscapeString(r.Err))
	} else {
		meta = fmt.Sprintf(`<div class="meta">Model: %s | In: %d tok | Out: %d tok | Stop: %s | Latency: %s</div>`,
			html.EscapeString(r.Model),
			r.InputTokens,
			r.OutputTokens,
			html.EscapeString(r.StopReason),
			formatLatency(r.Latency),
		)
		body = fmt.Sprintf(`<div class="md-body">%s</div>`, e.renderMarkdown(r.Text))
		body += e.renderSources(r.Citations)
	}

	return fmt.Sprintf(`<div class="col"><h2>%s</h2>%s%s</div>
`, strings.ToUpper(r.Tier), meta, body)
}

// renderSources renders the cited web search results, skipping query-only
// entries that carry no URL.
func (e *HTMLExporter) renderSources(citations []dispatch.Citation) string {
	var links strings.Builder
	for _, c := range citations {
		if c.URL == "" {
			continue
		}
		fmt.Fprintf(&links, `<li><a href="%s">%s</a></li>`,
			html.EscapeString(c.URL), html.EscapeString(c.Title))
	}
	if links.Len() == 0 {
		return ""
	}
	return fmt.Sprintf(`<div class="sources"><strong>Sources:</strong><ul>%s</ul></div>`, links.String())
}

// renderCritique renders the critique section, or nothing when the run
// carried no critique stage.
func (e *HTMLExporter) renderCritique(c *dispatch.CritiqueResult) string {
	if c == nil {
		return ""
	}
	if c.Err != "" {
		return fmt.Sprintf(`<div class="comparison"><h2>Comparison (Ollama)</h2><p class="error">%s</p></div>
`, html.EscapeString(c.Err))
	}
	meta := fmt.Sprintf(`<div class="meta">Model: %s | Eval tokens: %d | Latency: %s</div>`,
		html.EscapeString(c.Model), c.EvalTokens, formatLatency(c.Latency))
	return fmt.Sprintf(`<div class="comparison"><h2>Comparison — %s</h2>%s<div class="md-body">%s</div></div>
`, html.EscapeString(c.Model), meta, e.renderMarkdown(c.Text))
}

// css returns the stylesheet for the selected theme.
func (e *HTMLExporter) css() string {
	if e.opts.Theme == "light" {
		return lightCSS
	}
	return darkCSS
}

const darkCSS = `* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: system-ui, -apple-system, sans-serif; background: #0f0f0f; color: #e0e0e0; padding: 24px; }
.prompt { background: #1a1a2e; border: 1px solid #333; border-radius: 8px; padding: 16px; margin-bottom: 24px; white-space: pre-wrap; font-size: 14px; }
.prompt-label { color: #888; font-size: 12px; margin-bottom: 6px; text-transform: uppercase; letter-spacing: 1px; }
.ts { color: #666; font-size: 12px; margin-bottom: 16px; }
.grid { display: grid; gap: 16px; margin-bottom: 24px; }
.col { background: #1a1a1a; border: 1px solid #2a2a2a; border-radius: 8px; padding: 16px; overflow: auto; }
.col h2 { font-size: 16px; margin-bottom: 8px; color: #c9a0ff; }
.meta { font-size: 11px; color: #777; margin-bottom: 12px; line-height: 1.6; }
.md-body { font-size: 13px; line-height: 1.6; }
.md-body h1, .md-body h2, .md-body h3, .md-body h4 { color: #c9a0ff; margin: 12px 0 6px 0; }
.md-body h1 { font-size: 18px; } .md-body h2 { font-size: 16px; } .md-body h3 { font-size: 14px; }
.md-body p { margin: 8px 0; }
.md-body ul, .md-body ol { margin: 8px 0 8px 20px; }
.md-body li { margin: 4px 0; }
.md-body strong { color: #f0f0f0; }
.md-body em { color: #ccc; }
.md-body a { color: #7ab8ff; text-decoration: none; }
.md-body a:hover { text-decoration: underline; }
.md-body table { border-collapse: collapse; width: 100%; margin: 12px 0; font-size: 12px; }
.md-body th { background: #2a2a3e; color: #c9a0ff; padding: 8px; text-align: left; border: 1px solid #444; }
.md-body td { padding: 6px 8px; border: 1px solid #333; vertical-align: top; }
.md-body tr:nth-child(even) { background: #1e1e2e; }
.md-body pre { background: #161622; border: 1px solid #333; border-radius: 4px; padding: 10px; overflow-x: auto; margin: 8px 0; }
.md-body code { background: #1e1e2e; padding: 2px 5px; border-radius: 3px; font-size: 12px; }
.md-body pre code { background: none; padding: 0; }
.md-body blockquote { border-left: 3px solid #555; padding-left: 12px; color: #999; margin: 8px 0; }
.md-body hr { border: none; border-top: 1px solid #333; margin: 16px 0; }
.error { color: #ff6b6b; }
.sources { margin-top: 12px; font-size: 12px; border-top: 1px solid #333; padding-top: 8px; }
.sources ul { margin: 4px 0 0 16px; }
.sources li { margin-bottom: 4px; }
.sources a { color: #7ab8ff; text-decoration: none; }
.sources a:hover { text-decoration: underline; }
.comparison { background: #1a1a2e; border: 1px solid #3a3a5e; border-radius: 8px; padding: 20px; }
.comparison h2 { font-size: 16px; margin-bottom: 8px; color: #ffa657; }`

const lightCSS = `* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: system-ui, -apple-system, sans-serif; background: #fafafa; color: #222; padding: 24px; }
.prompt { background: #fff; border: 1px solid #ddd; border-radius: 8px; padding: 16px; margin-bottom: 24px; white-space: pre-wrap; font-size: 14px; }
.prompt-label { color: #888; font-size: 12px; margin-bottom: 6px; text-transform: uppercase; letter-spacing: 1px; }
.ts { color: #999; font-size: 12px; margin-bottom: 16px; }
.grid { display: grid; gap: 16px; margin-bottom: 24px; }
.col { background: #fff; border: 1px solid #ddd; border-radius: 8px; padding: 16px; overflow: auto; }
.col h2 { font-size: 16px; margin-bottom: 8px; color: #6b3fa0; }
.meta { font-size: 11px; color: #999; margin-bottom: 12px; line-height: 1.6; }
.md-body { font-size: 13px; line-height: 1.6; }
.md-body h1, .md-body h2, .md-body h3, .md-body h4 { color: #6b3fa0; margin: 12px 0 6px 0; }
.md-body p { margin: 8px 0; }
.md-body ul, .md-body ol { margin: 8px 0 8px 20px; }
.md-body a { color: #0066cc; text-decoration: none; }
.md-body pre { background: #f4f4f4; border: 1px solid #ddd; border-radius: 4px; padding: 10px; overflow-x: auto; margin: 8px 0; }
.md-body code { background: #f0f0f0; padding: 2px 5px; border-radius: 3px; font-size: 12px; }
.error { color: #cc2222; }
.sources { margin-top: 12px; font-size: 12px; border-top: 1px solid #ddd; padding-top: 8px; }
.sources ul { margin: 4px 0 0 16px; }
.comparison { background: #fff; border: 1px solid #ccc; border-radius: 8px; padding: 20px; }
.comparison h2 { font-size: 16px; margin-bottom: 8px; color: #b06020; }`
