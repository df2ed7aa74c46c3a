// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot run command handler for the triad CLI.
//
// Handles "triad ask" which resolves the flag token, fans the prompt out to
// the enabled tiers, prints the responses, and records the run.
//
// Command: ask [prompt]
// Short:   Run one prompt across the enabled tiers
//
// Examples:
//   triad ask "What is the capital of France?"
//   triad ask "+-- explain tides"              opus only
//   triad ask --flags ++-- "explain tides"     opus and sonnet
//   triad ask "review @main.go"                attach a file
//   triad ask --json "explain tides"           print the snapshot path only
//
// Flags:
//   --flags TOKEN   Override the default flag token
//   --no-open       Do not open the HTML report
//   --json          Print the JSON snapshot path only
//   -q, --quiet     Suppress status output
//   -v, --verbose   Per-call detail

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/triad/internal/config"
	"github.com/jeranaias/triad/internal/dispatch"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for model responses.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderTerminalMarkdown renders markdown for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderTerminalMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// RUN DISPLAY
// =============================================================================

// displayRun prints every tier response and the critique to stdout.
// Markdown is rendered only on a TTY so piped output stays raw.
func displayRun(rec *dispatch.RunRecord) {
	tty := IsStdoutTTY()
	rule := infoStyle.Render(strings.Repeat("─", 40))

	for _, res := range rec.Results {
		fmt.Println()
		fmt.Printf("%s %s %s\n",
			rule,
			tierStyle(res.Tier).Render(res.Tier),
			infoStyle.Render("("+res.Model+")"))

		if res.Failed() {
			fmt.Println(errorStyle.Render("[ERROR] " + res.Err))
			continue
		}
		if tty {
			fmt.Print(renderTerminalMarkdown(res.Text))
		} else {
			fmt.Println(res.Text)
		}
		for _, c := range res.Citations {
			if c.URL == "" {
				continue
			}
			fmt.Printf("  %s %s\n",
				infoStyle.Render("source:"),
				pathStyle.Render(c.URL))
		}
	}

	if rec.Critique != nil && !rec.Critique.Failed() {
		fmt.Println()
		fmt.Printf("%s %s %s\n",
			rule,
			headerStyle.Render("critique"),
			infoStyle.Render("("+rec.Critique.Model+")"))
		if tty {
			fmt.Print(renderTerminalMarkdown(rec.Critique.Text))
		} else {
			fmt.Println(rec.Critique.Text)
		}
	}
	fmt.Println()
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return errors.New(`usage: triad ask "prompt"`)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.SetGlobal(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newRunner(args)
	defer r.close()

	return r.execute(ctx, cfg, args.Query)
}
