// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the triad CLI.
//
// Handles the "triad chat" command: a REPL that runs every entered prompt
// across the enabled tiers. Line editing, persistent input history, and tab
// completion for /commands and @path attachments come from liner.
//
// Command: chat
// Short:   Start an interactive session
//
// Interactive Commands:
//   /set TOKEN          Persist a new default flag token
//   /flags              Show the current default flag token
//   /config             Show effective configuration (secrets redacted)
//   /reload             Reload configuration from disk
//   /history [n]        List recent runs
//   /help, /h           Show available commands
//   /quit, /q, /exit    Exit chat
//   Ctrl+C              Cancel current run
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/triad/internal/attach"
	"github.com/jeranaias/triad/internal/config"
	"github.com/jeranaias/triad/internal/flagset"
)

// chatCommands lists every slash command for completion and help.
var chatCommands = []string{
	"/config", "/exit", "/flags", "/help", "/history", "/quit", "/reload", "/set",
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history, line editing, and completion for chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	// Get history file path in config directory
	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	line.SetWordCompleter(cli.complete)

	cli.LoadHistory()

	return cli
}

// complete offers /command completions at the start of a line and filesystem
// completions for @path tokens anywhere in it.
func (c *ChatCLI) complete(line string, pos int) (string, []string, string) {
	head, tail := line[:pos], line[pos:]

	start := strings.LastIndexAny(head, " \t") + 1
	prefix, word := head[:start], head[start:]

	switch {
	case strings.HasPrefix(word, "@"):
		var comps []string
		for _, p := range attach.CompletePath(word[1:]) {
			comps = append(comps, "@"+p)
		}
		return prefix, comps, tail

	case prefix == "" && strings.HasPrefix(word, "/"):
		var comps []string
		for _, cmd := range chatCommands {
			if strings.HasPrefix(cmd, word) {
				comps = append(comps, cmd)
			}
		}
		sort.Strings(comps)
		return prefix, comps, tail
	}

	return prefix, nil, tail
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists input history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// 0600: the history may contain prompt text the user considers private
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive session.
type ChatSession struct {
	Runner *runner

	// Tracking
	StartTime time.Time
	RunCount  int

	// Cancel function for the run in flight
	CancelFunc context.CancelFunc

	// Input history handler
	InputCLI *ChatCLI
}

// NewChatSession creates a new chat session.
func NewChatSession(args Args) *ChatSession {
	return &ChatSession{
		Runner:    newRunner(args),
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.SetGlobal(cfg)

	session := NewChatSession(args)
	defer session.InputCLI.Close()
	defer session.Runner.close()

	// Hot reload: swap the global snapshot when the config file changes on
	// disk. Runs in flight keep the snapshot they started with.
	watcher, err := config.NewWatcher(500*time.Millisecond, func(_ *config.Config, err error) {
		if err != nil {
			warnf("config reload failed: %v", err)
			return
		}
		statusf("config reloaded")
	})
	if err == nil {
		if werr := watcher.Watch(); werr == nil {
			defer watcher.Close()
		}
	}

	printWelcome(config.Global())

	// First Ctrl+C cancels the run in flight; at the prompt liner turns it
	// into ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.CancelFunc != nil {
				session.CancelFunc()
				session.CancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.InputCLI.ReadInput(promptStyle.Render("triad> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D): exit gracefully
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		if err := runPrompt(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// runPrompt executes one entered prompt with a cancellable context.
func runPrompt(session *ChatSession, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	session.CancelFunc = cancel
	defer func() {
		session.CancelFunc = nil
		cancel()
	}()

	err := session.Runner.execute(ctx, config.Global(), input)
	if err == nil {
		session.RunCount++
	}
	return err
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, session *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true, nil

	case "/set":
		return true, handleSetFlags(args)

	case "/flags":
		cfg := config.Global()
		_, fs := resolveFlags("", "", cfg.DefaultFlags)
		fmt.Printf("%s %s (%s)\n",
			infoStyle.Render("[Flags]"),
			commandStyle.Render(fs.String()),
			fs.Describe())
		return true, nil

	case "/config":
		fmt.Println(config.Global().String())
		return true, nil

	case "/reload":
		if err := config.ReloadGlobal(); err != nil {
			return true, fmt.Errorf("reload failed, keeping previous config: %w", err)
		}
		fmt.Println(commandStyle.Render("[Config reloaded]"))
		return true, nil

	case "/history":
		return true, handleChatHistory(session, args)

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleSetFlags validates and persists a new default flag token.
func handleSetFlags(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: /set TOKEN (e.g. /set +++-)")
	}

	fs, err := flagset.ParseToken(args[0])
	if err != nil {
		return err
	}

	cfg := config.Global().Clone()
	cfg.DefaultFlags = fs.String()
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	config.SetGlobal(cfg)

	fmt.Printf("%s default flags now %s (%s)\n",
		commandStyle.Render("[OK]"),
		commandStyle.Render(fs.String()),
		fs.Describe())
	return nil
}

// handleChatHistory lists recent runs from the index.
func handleChatHistory(session *ChatSession, args []string) error {
	limit := 10
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	store := session.Runner.historyStore(config.Global())
	if store == nil {
		return fmt.Errorf("history index disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	printRunList(runs)
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(cfg *config.Config) {
	_, fs := resolveFlags("", "", cfg.DefaultFlags)

	fmt.Println()
	fmt.Println(welcomeStyle.Render("triad interactive chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s %s %s\n",
		infoStyle.Render("Tiers:"),
		tierStyle("opus").Render(cfg.Anthropic.Models.Opus),
		tierStyle("sonnet").Render(cfg.Anthropic.Models.Sonnet),
		tierStyle("haiku").Render(cfg.Anthropic.Models.Haiku))
	fmt.Printf("%s %s (%s)\n",
		infoStyle.Render("Flags:"),
		commandStyle.Render(fs.String()),
		fs.Describe())
	if cfg.Ollama.Model != "" {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Critique:"),
			commandStyle.Render(cfg.Ollama.Model))
	} else {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Critique:"),
			warningStyle.Render("disabled (no ollama.model configured)"))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Type a prompt and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printChatHelp prints available slash commands.
func printChatHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/set TOKEN", "Persist a new default flag token"},
		{"/flags", "Show the current default flags"},
		{"/config", "Show effective configuration"},
		{"/reload", "Reload configuration from disk"},
		{"/history [n]", "List recent runs"},
		{"/help, /h", "Show this help"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("A +/- token in any prompt overrides the flags for that run."))
	fmt.Println(infoStyle.Render("@path tokens inline file contents; Tab completes both."))
	fmt.Println()
}

// printExitSummary prints session statistics on exit.
func printExitSummary(session *ChatSession) {
	if session.RunCount == 0 {
		return
	}
	fmt.Println()
	fmt.Println(headerStyle.Render("Session Summary"))
	fmt.Printf("  %s %d\n", infoStyle.Render("Runs:"), session.RunCount)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		time.Since(session.StartTime).Round(time.Second))
	fmt.Println()
}
