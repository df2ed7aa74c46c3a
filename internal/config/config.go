// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for triad.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - $TRIAD_CONFIG (explicit path)
//   - ~/.triad/config.toml
//   - ~/.triad/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/triad/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete triad configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// DefaultFlags is the flag token applied when a prompt carries none.
	// Positions are opus, sonnet, haiku, critique.
	DefaultFlags string `toml:"default_flags" json:"default_flags"`

	// OutputDir is where run artifacts (JSON + HTML) are written.
	OutputDir string `toml:"output_dir" json:"output_dir"`

	// OpenHTML opens the rendered HTML report in a browser after each run.
	OpenHTML bool `toml:"open_html" json:"open_html"`

	// Anthropic (cloud tiers) configuration
	Anthropic AnthropicConfig `toml:"anthropic" json:"anthropic"`

	// Ollama (local critique model) configuration
	Ollama OllamaConfig `toml:"ollama" json:"ollama"`

	// History (run index) configuration
	History HistoryConfig `toml:"history" json:"history"`
}

// ModelsConfig names the model ID behind each tier.
type ModelsConfig struct {
	Opus   string `toml:"opus" json:"opus"`
	Sonnet string `toml:"sonnet" json:"sonnet"`
	Haiku  string `toml:"haiku" json:"haiku"`
}

// AnthropicConfig contains cloud tier configuration. The sampling fields are
// pointers: unset values are omitted from API requests entirely.
type AnthropicConfig struct {
	// APIKey is the API key. Prefer the ANTHROPIC_API_KEY environment
	// variable over storing the key in the config file.
	APIKey string `toml:"api_key" json:"api_key"`
	// MaxTokens caps the response length per tier call.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Temperature, TopP, and TopK are optional sampling parameters.
	Temperature *float64 `toml:"temperature" json:"temperature,omitempty"`
	TopP        *float64 `toml:"top_p" json:"top_p,omitempty"`
	TopK        *int     `toml:"top_k" json:"top_k,omitempty"`
	// System is an optional system prompt sent to every tier.
	System string `toml:"system" json:"system"`
	// StopSequences are optional custom stop sequences.
	StopSequences []string `toml:"stop_sequences" json:"stop_sequences,omitempty"`
	// WebSearch enables the server-side web search tool.
	WebSearch bool `toml:"web_search" json:"web_search"`
	// WebSearchMaxUses caps how many searches one call may issue.
	WebSearchMaxUses int `toml:"web_search_max_uses" json:"web_search_max_uses"`
	// RequestTimeoutSecs bounds one tier call including retries.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// Models maps tiers to model IDs.
	Models ModelsConfig `toml:"models" json:"models"`
}

// OllamaConfig contains local critique model configuration.
type OllamaConfig struct {
	// BaseURL is the URL of the Ollama server
	BaseURL string `toml:"base_url" json:"base_url"`
	// Model is the local model used for the critique stage.
	// Empty disables critique regardless of the flag token.
	Model string `toml:"model" json:"model"`
	// Temperature is an optional sampling override for critique.
	Temperature *float64 `toml:"temperature" json:"temperature,omitempty"`
	// TimeoutSecs bounds one critique call. Local models are slow.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// HistoryConfig contains run index configuration.
type HistoryConfig struct {
	// Enabled controls whether runs are recorded in the index
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxRuns is the retention cap; oldest entries are pruned past it (0 = unlimited)
	MaxRuns int `toml:"max_runs" json:"max_runs"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:      "1.0.0",
		DefaultFlags: "++++",
		OutputDir:    "", // resolved to ~/.triad/runs on load
		OpenHTML:     false,

		Anthropic: AnthropicConfig{
			APIKey:             "",
			MaxTokens:          1024,
			WebSearch:          false,
			WebSearchMaxUses:   3,
			RequestTimeoutSecs: 120,
			Models: ModelsConfig{
				Opus:   "claude-opus-4-1",
				Sonnet: "claude-sonnet-4-5",
				Haiku:  "claude-haiku-4-5",
			},
		},

		Ollama: OllamaConfig{
			BaseURL:     "http://127.0.0.1:11434",
			Model:       "",
			TimeoutSecs: 600,
		},

		History: HistoryConfig{
			Enabled: true,
			MaxRuns: 500,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the triad configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".triad"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultOutputDir returns the default run artifact directory.
func DefaultOutputDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "runs"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// An explicit $TRIAD_CONFIG path wins; otherwise TOML is tried first, then
// JSON, then built-in defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	if explicit := os.Getenv("TRIAD_CONFIG"); explicit != "" {
		return LoadFromPath(explicit)
	}

	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finishLoad applies overrides, defaults, and validation after decoding.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# triad configuration file\n")
	buf.WriteString("# Generated by triad - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# Documentation: https://github.com/jeranaias/triad\n")
	buf.WriteString("\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// validFlagToken reports whether s is a well-formed flag token: three or
// four characters, each '+' or '-'.
func validFlagToken(s string) bool {
	if len(s) != 3 && len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r != '+' && r != '-' {
			return false
		}
	}
	return true
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.DefaultFlags != "" && !validFlagToken(c.DefaultFlags) {
		errs = append(errs, ValidationError{
			Field:   "default_flags",
			Message: fmt.Sprintf("invalid flag token '%s', must be 3-4 characters of + or -", c.DefaultFlags),
		})
	}

	if c.Anthropic.MaxTokens < 1 || c.Anthropic.MaxTokens > 64000 {
		errs = append(errs, ValidationError{
			Field:   "anthropic.max_tokens",
			Message: fmt.Sprintf("must be 1-64000, got %d", c.Anthropic.MaxTokens),
		})
	}

	if t := c.Anthropic.Temperature; t != nil && (*t < 0 || *t > 1) {
		errs = append(errs, ValidationError{
			Field:   "anthropic.temperature",
			Message: "must be between 0.0 and 1.0",
		})
	}
	if p := c.Anthropic.TopP; p != nil && (*p < 0 || *p > 1) {
		errs = append(errs, ValidationError{
			Field:   "anthropic.top_p",
			Message: "must be between 0.0 and 1.0",
		})
	}
	if k := c.Anthropic.TopK; k != nil && *k < 0 {
		errs = append(errs, ValidationError{
			Field:   "anthropic.top_k",
			Message: "must be non-negative",
		})
	}

	if c.Anthropic.WebSearch {
		if c.Anthropic.WebSearchMaxUses < 1 || c.Anthropic.WebSearchMaxUses > 10 {
			errs = append(errs, ValidationError{
				Field:   "anthropic.web_search_max_uses",
				Message: fmt.Sprintf("must be 1-10 when web_search is enabled, got %d", c.Anthropic.WebSearchMaxUses),
			})
		}
	}

	if c.Anthropic.RequestTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "anthropic.request_timeout_secs",
			Message: "must be positive",
		})
	}

	if c.Anthropic.Models.Opus == "" || c.Anthropic.Models.Sonnet == "" || c.Anthropic.Models.Haiku == "" {
		errs = append(errs, ValidationError{
			Field:   "anthropic.models",
			Message: "all three tiers must name a model",
		})
	}

	if c.Ollama.BaseURL != "" {
		if _, err := url.Parse(c.Ollama.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "ollama.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if t := c.Ollama.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, ValidationError{
			Field:   "ollama.temperature",
			Message: "must be between 0.0 and 2.0",
		})
	}
	if c.Ollama.TimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "ollama.timeout_secs",
			Message: "must be positive",
		})
	}

	if c.History.MaxRuns < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.max_runs",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.DefaultFlags == "" {
		c.DefaultFlags = defaults.DefaultFlags
	}
	if c.OutputDir == "" {
		if dir, err := DefaultOutputDir(); err == nil {
			c.OutputDir = dir
		}
	}

	if c.Anthropic.MaxTokens == 0 {
		c.Anthropic.MaxTokens = defaults.Anthropic.MaxTokens
	}
	if c.Anthropic.WebSearchMaxUses == 0 {
		c.Anthropic.WebSearchMaxUses = defaults.Anthropic.WebSearchMaxUses
	}
	if c.Anthropic.RequestTimeoutSecs == 0 {
		c.Anthropic.RequestTimeoutSecs = defaults.Anthropic.RequestTimeoutSecs
	}
	if c.Anthropic.Models.Opus == "" {
		c.Anthropic.Models.Opus = defaults.Anthropic.Models.Opus
	}
	if c.Anthropic.Models.Sonnet == "" {
		c.Anthropic.Models.Sonnet = defaults.Anthropic.Models.Sonnet
	}
	if c.Anthropic.Models.Haiku == "" {
		c.Anthropic.Models.Haiku = defaults.Anthropic.Models.Haiku
	}

	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = defaults.Ollama.BaseURL
	}
	if c.Ollama.TimeoutSecs == 0 {
		c.Ollama.TimeoutSecs = defaults.Ollama.TimeoutSecs
	}

	if c.History.MaxRuns == 0 {
		c.History.MaxRuns = defaults.History.MaxRuns
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - ANTHROPIC_API_KEY: overrides anthropic.api_key
//   - TRIAD_OUTPUT_DIR: overrides output_dir
//   - TRIAD_OLLAMA_URL: overrides ollama.base_url
//   - TRIAD_OLLAMA_MODEL: overrides ollama.model
//   - TRIAD_DEFAULT_FLAGS: overrides default_flags
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Anthropic.APIKey = key
	}

	if dir := os.Getenv("TRIAD_OUTPUT_DIR"); dir != "" {
		c.OutputDir = dir
	}

	if url := os.Getenv("TRIAD_OLLAMA_URL"); url != "" {
		c.Ollama.BaseURL = url
	}

	if model := os.Getenv("TRIAD_OLLAMA_MODEL"); model != "" {
		c.Ollama.Model = model
	}

	if flags := os.Getenv("TRIAD_DEFAULT_FLAGS"); flags != "" {
		c.DefaultFlags = flags
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "anthropic.max_tokens").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, return the value
		if i == len(parts)-1 {
			if field.Kind() == reflect.Ptr {
				if field.IsNil() {
					return nil, nil
				}
				return field.Elem().Interface(), nil
			}
			return field.Interface(), nil
		}

		// Otherwise, navigate into the struct
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "anthropic.max_tokens").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, set the value
		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		// Otherwise, navigate into the struct
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// Handle string input with type conversion
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		case reflect.Ptr:
			// Optional sampling fields (pointer to float64 or int)
			elem := reflect.New(field.Type().Elem())
			if err := setFieldValue(elem.Elem(), strVal); err != nil {
				return err
			}
			field.Set(elem)
			return nil
		}
	}

	// Direct assignment for matching types
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// Type conversion for compatible types
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"default_flags",
		"output_dir",
		"open_html",
		"anthropic.api_key",
		"anthropic.max_tokens",
		"anthropic.temperature",
		"anthropic.top_p",
		"anthropic.top_k",
		"anthropic.system",
		"anthropic.web_search",
		"anthropic.web_search_max_uses",
		"anthropic.request_timeout_secs",
		"anthropic.models.opus",
		"anthropic.models.sonnet",
		"anthropic.models.haiku",
		"ollama.base_url",
		"ollama.model",
		"ollama.temperature",
		"ollama.timeout_secs",
		"history.enabled",
		"history.max_runs",
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	if c.Anthropic.Temperature != nil {
		t := *c.Anthropic.Temperature
		clone.Anthropic.Temperature = &t
	}
	if c.Anthropic.TopP != nil {
		p := *c.Anthropic.TopP
		clone.Anthropic.TopP = &p
	}
	if c.Anthropic.TopK != nil {
		k := *c.Anthropic.TopK
		clone.Anthropic.TopK = &k
	}
	if c.Anthropic.StopSequences != nil {
		clone.Anthropic.StopSequences = append([]string(nil), c.Anthropic.StopSequences...)
	}
	if c.Ollama.Temperature != nil {
		t := *c.Ollama.Temperature
		clone.Ollama.Temperature = &t
	}

	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the API key to prevent accidental exposure in logs,
// error messages, or debug output.
func (c *Config) String() string {
	safe := c.Clone()

	if safe.Anthropic.APIKey != "" {
		safe.Anthropic.APIKey = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigMu.RLock()
	cfg := globalConfig
	globalConfigMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
