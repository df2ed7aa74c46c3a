// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package flagset parses the in-prompt tier-selection token.
//
// A token is a run of three or four '+'/'-' characters appearing as its own
// word anywhere in the prompt. Positions select, in order: opus, sonnet,
// haiku, critique. A three-character token leaves the critique position
// implicit: critique is enabled as long as at least one tier is.
package flagset

import (
	"errors"
	"regexp"
	"strings"
)

// tokenPattern matches a 3-4 character +/- token delimited by whitespace or
// the prompt boundary. Longer runs and runs with other characters never
// match, so malformed tokens fall through to the default silently.
var tokenPattern = regexp.MustCompile(`(?:^|\s)([+\-]{3,4})(?:\s|$)`)

// ErrBadToken is returned by ParseToken for tokens of the wrong length or
// containing characters other than '+' and '-'.
var ErrBadToken = errors.New("flag token must be 3-4 characters of '+' or '-'")

// FlagSet is the parsed enable state for the three hosted tiers plus the
// local critique stage. Values are fixed once parsed.
type FlagSet struct {
	Opus     bool
	Sonnet   bool
	Haiku    bool
	Critique bool
}

// ParseToken parses a bare 3-4 character token.
func ParseToken(tok string) (FlagSet, error) {
	if len(tok) < 3 || len(tok) > 4 {
		return FlagSet{}, ErrBadToken
	}
	for _, r := range tok {
		if r != '+' && r != '-' {
			return FlagSet{}, ErrBadToken
		}
	}

	fs := FlagSet{
		Opus:   tok[0] == '+',
		Sonnet: tok[1] == '+',
		Haiku:  tok[2] == '+',
	}
	if len(tok) == 4 {
		fs.Critique = tok[3] == '+'
	} else {
		// Implicit critique position: on, but only when there is
		// something to critique.
		fs.Critique = fs.TierCount() > 0
	}
	return fs, nil
}

// Resolve locates at most one flag token in raw, removes it, and returns the
// cleaned prompt with the parsed FlagSet. When no token is present the
// default is returned unmodified and found is false.
func Resolve(raw string, def FlagSet) (prompt string, fs FlagSet, found bool) {
	loc := tokenPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw, def, false
	}

	fs, err := ParseToken(raw[loc[2]:loc[3]])
	if err != nil {
		// Unreachable given the pattern, but keep the fallback
		// consistent with the no-token case.
		return raw, def, false
	}

	prompt = strings.TrimSpace(raw[:loc[0]] + " " + raw[loc[1]:])
	return prompt, fs, true
}

// String serializes the canonical four-character token.
func (f FlagSet) String() string {
	var b strings.Builder
	for _, on := range []bool{f.Opus, f.Sonnet, f.Haiku, f.Critique} {
		if on {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// TierCount returns how many hosted tiers are enabled.
func (f FlagSet) TierCount() int {
	n := 0
	for _, on := range []bool{f.Opus, f.Sonnet, f.Haiku} {
		if on {
			n++
		}
	}
	return n
}

// EnabledNames lists the enabled stages in fixed order, critique last.
// Used for status lines ("model flags: ++-+ -> opus, sonnet, critique").
func (f FlagSet) EnabledNames() []string {
	var names []string
	if f.Opus {
		names = append(names, "opus")
	}
	if f.Sonnet {
		names = append(names, "sonnet")
	}
	if f.Haiku {
		names = append(names, "haiku")
	}
	if f.Critique {
		names = append(names, "critique")
	}
	return names
}

// Describe renders the enabled stages as a comma-separated list, or "none".
func (f FlagSet) Describe() string {
	names := f.EnabledNames()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
