// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Timestamped status lines for run progress.
//
// Status output goes to stderr so piped stdout stays clean. Every line
// carries a [HH:MM:SS] prefix; --quiet suppresses the lot.

package cli

import (
	"fmt"
	"os"
	"time"
)

// statusf prints a timestamped status line to stderr.
func statusf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		timeStyle.Render("["+time.Now().Format("15:04:05")+"]"),
		fmt.Sprintf(format, a...))
}

// warnf prints a timestamped warning line to stderr.
func warnf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		timeStyle.Render("["+time.Now().Format("15:04:05")+"]"),
		warningStyle.Render(fmt.Sprintf(format, a...)))
}

// errorf prints a timestamped error line to stderr.
func errorf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		timeStyle.Render("["+time.Now().Format("15:04:05")+"]"),
		errorStyle.Render(fmt.Sprintf(format, a...)))
}
