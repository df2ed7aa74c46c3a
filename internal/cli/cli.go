// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for triad.
//
// Command surface:
//   triad                      Interactive chat (default)
//   triad ask "prompt"         One-shot run across the enabled tiers
//   triad "prompt"             Same as ask
//   triad config [subcommand]  Configuration management
//   triad history [subcommand] Run history
//   triad version              Version information
//   triad help                 Usage
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdConfig
	CmdHistory
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	NoOpen  bool   // suppress auto-open of the HTML report
	JSON    bool   // machine-readable output where supported
	Flags   string // --flags token, overrides default_flags for this run

	// Command-specific
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Markdown   bool // history show: print the markdown transcript

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `triad %s - one prompt, three Claude tiers, side by side

Triad fans a single prompt out to the opus, sonnet, and haiku tiers
concurrently, optionally asks a local Ollama model to compare the
responses, and saves every run as a JSON snapshot plus an HTML report.

Usage:
  triad                      Start interactive chat (default)
  triad ask "question"       One-shot run
  triad "question"           Same as ask
  triad config [show|set|path|init]   Configuration
  triad history [list|search|show]    Run history
  triad version              Show version
  triad help                 Show this help

Flag tokens:
  A token of 3-4 '+'/'-' characters anywhere in the prompt selects the
  tiers for that run: positions are opus, sonnet, haiku, critique.
  With 3 characters the critique stage is on whenever any tier is.

  triad ask "+-- explain tides"        opus only, with critique
  triad ask "++-- explain tides"       opus and sonnet, no critique
  triad ask --flags +++- "explain"     token via flag instead of in-band

Attachments:
  @path tokens inline file contents into the prompt:

  triad ask "review @main.go"
  triad ask "summarize @~/notes/design.md"

Global flags:
  --flags TOKEN   Override the default flag token for this run
  --no-open       Do not open the HTML report after the run
  --json          Print the JSON snapshot path only (ask)
  -q, --quiet     Suppress status output
  -v, --verbose   Per-call detail

Config keys (triad config set <key> <value>):
  default_flags              Default flag token (e.g. "+++-")
  output_dir                 Directory for run artifacts
  open_html                  Auto-open HTML reports (true/false)
  anthropic.api_key          API key (ANTHROPIC_API_KEY overrides)
  anthropic.max_tokens       Max output tokens per tier
  anthropic.web_search       Enable the web search tool (true/false)
  ollama.model               Local critique model (empty disables)
  history.max_runs           Index rows kept before pruning

Interactive commands (during chat):
  /set TOKEN      Persist a new default flag token
  /config         Show effective configuration
  /reload         Reload configuration from disk
  /history [n]    List recent runs
  /help           Show commands
  /quit           Exit
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("triad version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

// parse is the testable core of Parse.
func parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No remaining args: interactive chat is the default.
	if len(remaining) == 0 {
		return CmdChat, parsedArgs
	}

	first := remaining[0]
	cmd := strings.ToLower(first)
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "history", "runs":
		parseHistoryArgs(&parsedArgs, remaining)
		return CmdHistory, parsedArgs

	case "version", "-V", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Not a known command: treat the whole argument list as a
		// prompt, so `triad "question"` works without the ask keyword.
		parsedArgs.Raw = append([]string{first}, remaining...)
		parseAskArgs(&parsedArgs, parsedArgs.Raw)
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--no-open":
			parsedArgs.NoOpen = true
		case "--json":
			parsedArgs.JSON = true
		case "--flags":
			if i+1 < len(args) {
				i++
				parsedArgs.Flags = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--flags=") {
				parsedArgs.Flags = strings.TrimPrefix(arg, "--flags=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs joins the remaining positional arguments into the query.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") || arg == "-" || isFlagToken(arg) {
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
}

// isFlagToken reports whether arg looks like an in-band flag token rather
// than a CLI option, so `triad ask ++-- "question"` keeps the token in the
// prompt text.
func isFlagToken(arg string) bool {
	if len(arg) < 3 || len(arg) > 4 {
		return false
	}
	for _, r := range arg {
		if r != '+' && r != '-' {
			return false
		}
	}
	return true
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}

// parseHistoryArgs parses history command specific arguments.
func parseHistoryArgs(args *Args, remaining []string) {
	var positional []string
	for _, arg := range remaining {
		if arg == "--md" || arg == "--markdown" {
			args.Markdown = true
			continue
		}
		positional = append(positional, arg)
	}
	if len(positional) > 0 {
		args.Subcommand = positional[0]
		args.Query = strings.Join(positional[1:], " ")
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf(`{"version":%q,"git_commit":%q,"build_date":%q}`+"\n",
			Version, GitCommit, BuildDate)
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
