// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CompletePath returns filesystem completions for a partial @path token.
// Completions preserve a leading ~ in their display form and append "/" to
// directories so the user can keep typing into them.
func CompletePath(partial string) []string {
	expanded := ExpandHome(partial)

	matches, err := filepath.Glob(expanded + "*")
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	home, _ := os.UserHomeDir()
	results := make([]string, 0, len(matches))
	for _, m := range matches {
		display := m
		if strings.HasPrefix(partial, "~") && home != "" && strings.HasPrefix(m, home) {
			display = "~" + m[len(home):]
		}
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			display += "/"
		}
		results = append(results, display)
	}
	return results
}
