// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the shared terminal color palette used by the CLI.
//
// Colors are adaptive: each has a light-terminal and a dark-terminal variant
// and lipgloss picks the right one at render time.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// CORE PALETTE
// =============================================================================

// Purple - Primary accent, banners
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, prompts, commands
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors, failed tiers
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, degraded states
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// TEXT
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - Labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Hints, timestamps, very subtle text
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// TIER COLORS
// =============================================================================

// Tier accent colors keep each model column visually distinct in status
// output: opus purple, sonnet cyan, haiku emerald.
var (
	TierOpus   = Purple
	TierSonnet = Cyan
	TierHaiku  = Emerald
)

// TierColor returns the accent color for a tier name, falling back to the
// secondary text color for unknown names (the critique stage among them).
func TierColor(tier string) lipgloss.AdaptiveColor {
	switch tier {
	case "opus":
		return TierOpus
	case "sonnet":
		return TierSonnet
	case "haiku":
		return TierHaiku
	default:
		return TextSecondary
	}
}
