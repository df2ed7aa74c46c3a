// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export persists run records as artifacts on disk. Every run
// produces a JSON file (the machine-readable record) and an HTML report
// (the human-readable one) sharing a timestamped base name.
package export

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jeranaias/triad/internal/dispatch"
	"github.com/jeranaias/triad/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for run record exporters.
type Exporter interface {
	// Export converts a run record to the target format and returns the content.
	Export(rec *dispatch.RunRecord) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".json", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the HTML report in the default browser.
	OpenAfterExport bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		OpenAfterExport: false,
		Theme:           "dark",
	}
}

// =============================================================================
// ARTIFACT NAMING
// =============================================================================

// baseSeq disambiguates runs that land in the same wall-clock second.
var baseSeq atomic.Uint32

// BaseName returns the shared base name for one run's artifact pair,
// derived from the record timestamp plus a process-local sequence number.
func BaseName(rec *dispatch.RunRecord) string {
	seq := baseSeq.Add(1) % 1000
	return fmt.Sprintf("run_%s_%03d", rec.Timestamp.Format("20060102_150405"), seq)
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Artifacts names the files one recorded run produced.
type Artifacts struct {
	JSONPath string
	HTMLPath string
}

// Record writes both artifacts for a run and optionally opens the HTML
// report. The JSON artifact is authoritative: an HTML render failure is
// returned but only after the JSON file is safely on disk.
func Record(rec *dispatch.RunRecord, opts *Options) (Artifacts, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	var arts Artifacts
	base := BaseName(rec)

	jsonPath, err := ExportToFile(rec, NewJSONExporter(opts), base, opts)
	if err != nil {
		return arts, err
	}
	arts.JSONPath = jsonPath

	htmlPath, err := ExportToFile(rec, NewHTMLExporter(opts), base, opts)
	if err != nil {
		return arts, fmt.Errorf("html report: %w", err)
	}
	arts.HTMLPath = htmlPath

	if opts.OpenAfterExport {
		if err := openFile(htmlPath); err != nil {
			// Non-fatal - both artifacts were still written
			fmt.Fprintf(os.Stderr, "Warning: could not open report: %v\n", err)
		}
	}

	return arts, nil
}

// ExportToFile exports a run record to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(rec *dispatch.RunRecord, exporter Exporter, base string, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if base == "" {
		base = BaseName(rec)
	}

	content, err := exporter.Export(rec)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, base+exporter.FileExtension())
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		// Quoted empty string is the window title; path must come last
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatLatency formats a latency for display in reports.
func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 MST")
}
