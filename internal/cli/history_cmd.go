// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - History command implementation for triad.
//
// Command: history [subcommand]
// Short:   Query the run index
//
// Subcommands:
//   list (default)      List recent runs
//   search <text>       Search run prompts
//   show <id>           Show one run (unique id prefix accepted)
//     --md              Print the markdown transcript
//
// Examples:
//   triad history
//   triad history list
//   triad history search tides
//   triad history show 3f2a
//   triad history show 3f2a --md

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/triad/internal/config"
	"github.com/jeranaias/triad/internal/dispatch"
	"github.com/jeranaias/triad/internal/export"
	"github.com/jeranaias/triad/internal/history"
)

// historyListLimit is the default number of rows shown.
const historyListLimit = 20

// HandleHistory handles the "history" command.
func HandleHistory(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled (set history.enabled = true)")
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	store, err := history.Open(filepath.Join(dir, "history.db"), cfg.History.MaxRuns)
	if err != nil {
		return fmt.Errorf("opening history index: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args.Subcommand {
	case "", "list":
		runs, err := store.List(ctx, historyListLimit)
		if err != nil {
			return err
		}
		printRunList(runs)
		return nil

	case "search":
		if args.Query == "" {
			return fmt.Errorf("usage: triad history search <text>")
		}
		runs, err := store.Search(ctx, args.Query, historyListLimit)
		if err != nil {
			return err
		}
		printRunList(runs)
		return nil

	case "show":
		if args.Query == "" {
			return fmt.Errorf("usage: triad history show <id>")
		}
		meta, err := store.Get(ctx, args.Query)
		if err != nil {
			return err
		}
		return showRun(meta, args.Markdown)

	default:
		return fmt.Errorf("unknown history subcommand: %s (want list, search, or show)", args.Subcommand)
	}
}

// printRunList renders index rows as a table.
func printRunList(runs []history.RunMeta) {
	if len(runs) == 0 {
		fmt.Println(infoStyle.Render("no runs recorded"))
		return
	}

	fmt.Println()
	fmt.Printf("  %s\n", infoStyle.Render(
		fmt.Sprintf("%-8s  %-16s  %-5s  %s", "ID", "WHEN", "FLAGS", "PROMPT")))
	for _, run := range runs {
		marks := ""
		if run.ErrorCount > 0 {
			marks = " " + errorStyle.Render(fmt.Sprintf("[%d failed]", run.ErrorCount))
		}
		fmt.Printf("  %-8s  %-16s  %-5s  %s%s\n",
			commandStyle.Render(shortID(run.ID)),
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.FlagToken,
			run.Summary(),
			marks)
	}
	fmt.Println()
}

// shortID truncates a run id for display; any unique prefix works with show.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// showRun prints one indexed run. With markdown set it re-renders the JSON
// snapshot as a transcript; otherwise it prints the metadata and paths.
func showRun(meta *history.RunMeta, markdown bool) error {
	if markdown {
		rec, err := loadRecord(meta.JSONPath)
		if err != nil {
			return err
		}
		out, err := export.NewMarkdownExporter(nil).Export(rec)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Run " + meta.ID))
	fmt.Printf("  %s %s\n", infoStyle.Render("when:"), meta.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  %s %s\n", infoStyle.Render("flags:"), meta.FlagToken)
	fmt.Printf("  %s %s\n", infoStyle.Render("prompt:"), meta.Summary())
	if meta.ErrorCount > 0 {
		fmt.Printf("  %s %s\n", infoStyle.Render("errors:"), errorStyle.Render(fmt.Sprintf("%d tier(s) failed", meta.ErrorCount)))
	}
	if meta.Critiqued {
		fmt.Printf("  %s yes\n", infoStyle.Render("critique:"))
	}
	fmt.Printf("  %s %s\n", infoStyle.Render("json:"), pathStyle.Render(meta.JSONPath))
	if meta.HTMLPath != "" {
		fmt.Printf("  %s %s\n", infoStyle.Render("html:"), pathStyle.Render(meta.HTMLPath))
	}
	fmt.Println()
	return nil
}

// loadRecord reads a run's JSON snapshot back from disk.
func loadRecord(path string) (*dispatch.RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var rec dispatch.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return &rec, nil
}
