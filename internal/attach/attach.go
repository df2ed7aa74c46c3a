// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach expands @path file references inside a prompt.
//
// Each reference is replaced with the file's full text wrapped in FILE
// delimiters naming the source. Expansion is a single pass over the original
// prompt: references inside inlined content are never expanded. Unresolvable
// references are left in place and reported, never fatal.
package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxFileSize bounds how much of a file is inlined. Larger files are
// refused with a problem entry rather than ballooning the request.
const MaxFileSize = 512 * 1024

// refPattern matches an @ sigil immediately followed by a path token.
var refPattern = regexp.MustCompile(`@(\S+)`)

// =============================================================================
// PROBLEM KINDS
// =============================================================================

// ErrKind categorizes why a reference could not be inlined.
type ErrKind int

const (
	ErrNotFound ErrKind = iota
	ErrPermission
	ErrTooLarge
	ErrUnreadable
)

// String returns the kind as a short label for status lines.
func (k ErrKind) String() string {
	switch k {
	case ErrNotFound:
		return "not found"
	case ErrPermission:
		return "permission denied"
	case ErrTooLarge:
		return "too large"
	default:
		return "unreadable"
	}
}

// Problem records one reference that could not be inlined.
type Problem struct {
	Path string
	Kind ErrKind
	Err  error
}

// Attachment records one successfully inlined file.
type Attachment struct {
	Path  string
	Bytes int
}

// Result is the outcome of expanding a prompt.
type Result struct {
	// Expanded is the prompt with every resolvable reference inlined.
	Expanded string

	Attached []Attachment
	Problems []Problem
}

// =============================================================================
// EXPANSION
// =============================================================================

// Expand inlines every @path reference in prompt. The policy for failed
// references is uniform: the marker stays verbatim and a Problem is recorded.
func Expand(prompt string) Result {
	res := Result{}

	res.Expanded = refPattern.ReplaceAllStringFunc(prompt, func(marker string) string {
		path := ExpandHome(marker[1:])

		info, err := os.Stat(path)
		if err != nil {
			res.Problems = append(res.Problems, classify(path, err))
			return marker
		}
		if info.IsDir() {
			res.Problems = append(res.Problems, Problem{
				Path: path,
				Kind: ErrUnreadable,
				Err:  fmt.Errorf("%s is a directory", path),
			})
			return marker
		}
		if info.Size() > MaxFileSize {
			res.Problems = append(res.Problems, Problem{
				Path: path,
				Kind: ErrTooLarge,
				Err:  fmt.Errorf("%s is %d bytes (limit %d)", path, info.Size(), MaxFileSize),
			})
			return marker
		}

		data, err := os.ReadFile(path)
		if err != nil {
			res.Problems = append(res.Problems, classify(path, err))
			return marker
		}

		res.Attached = append(res.Attached, Attachment{Path: path, Bytes: len(data)})
		return fmt.Sprintf("\n--- FILE: %s ---\n%s\n--- END FILE ---\n",
			filepath.Base(path), string(data))
	})

	return res
}

// classify maps an os error to a Problem with the right kind.
func classify(path string, err error) Problem {
	kind := ErrUnreadable
	switch {
	case os.IsNotExist(err):
		kind = ErrNotFound
	case os.IsPermission(err):
		kind = ErrPermission
	}
	return Problem{Path: path, Kind: kind, Err: err}
}

// ExpandHome resolves a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
