// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Config command implementation for triad.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display current configuration
//   set <key> <value>   Set a configuration value
//   path                Show configuration file path
//   init                Write a default config file
//
// Examples:
//   triad config                          Show current config
//   triad config show --json              Config as JSON (secrets redacted)
//   triad config set default_flags +++-
//   triad config set anthropic.max_tokens 4096
//   triad config set ollama.model llama3.1:8b
//   triad config path
//   triad config init

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/triad/internal/config"
)

// secretKeys are redacted in `config show` output.
var secretKeys = map[string]bool{
	"anthropic.api_key": true,
}

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(args)

	case "set":
		return handleConfigSet(args.ConfigKey, args.ConfigVal)

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "init":
		return handleConfigInit()

	default:
		return fmt.Errorf("unknown config subcommand: %s (want show, set, path, or init)", args.Subcommand)
	}
}

// handleConfigShow displays the effective configuration.
func handleConfigShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if args.JSON {
		// String() marshals with the API key redacted.
		fmt.Println(cfg.String())
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("triad configuration"))
	fmt.Println()

	for _, key := range config.GetAllKeys() {
		val, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("  %s %s\n",
			infoStyle.Render(fmt.Sprintf("%-32s", key)),
			commandStyle.Render(formatConfigValue(key, val)))
	}

	path, err := config.ConfigPathTOML()
	if err == nil {
		fmt.Println()
		if _, statErr := os.Stat(path); statErr == nil {
			fmt.Printf("  %s %s\n", infoStyle.Render("file:"), pathStyle.Render(path))
		} else {
			fmt.Printf("  %s %s\n",
				infoStyle.Render("file:"),
				pathStyle.Render(path+" (not written; run `triad config init`)"))
		}
	}
	fmt.Println()
	return nil
}

// formatConfigValue renders one value for display, masking secrets.
func formatConfigValue(key string, val interface{}) string {
	if secretKeys[key] {
		if s, ok := val.(string); ok && s != "" {
			return "[set]"
		}
		return "(not set)"
	}
	if val == nil {
		return "(unset)"
	}
	if s, ok := val.([]string); ok {
		if len(s) == 0 {
			return "(none)"
		}
		return strings.Join(s, ", ")
	}
	return fmt.Sprintf("%v", val)
}

// handleConfigSet sets one configuration value and persists it.
func handleConfigSet(key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("usage: triad config set <key> <value>")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	shown := value
	if secretKeys[key] {
		shown = "[set]"
	}
	fmt.Printf("%s %s = %s\n",
		commandStyle.Render("[OK]"),
		key,
		commandStyle.Render(shown))
	return nil
}

// handleConfigInit writes a default config file, refusing to overwrite.
func handleConfigInit() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	cfg := config.Default()
	cfg.SetDefaults()
	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Printf("%s wrote %s\n", commandStyle.Render("[OK]"), pathStyle.Render(path))
	return nil
}
