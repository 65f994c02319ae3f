// Package theme holds the colors and shared lipgloss styles.
package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Color palette. Dark background, one accent per meaning.
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Warning   = lipgloss.Color("#EAB308") // Amber
	Info      = lipgloss.Color("#38BDF8") // Sky
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgDark    = lipgloss.Color("#0F172A") // Deep Navy
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// SeverityColor maps a finding severity to its color.
func SeverityColor(severity string) color.Color {
	switch severity {
	case "critical", "high", "error":
		return Error
	case "medium", "warning":
		return Warning
	case "low", "info":
		return Info
	default:
		return TextDim
	}
}

// ScoreColor maps a 0-100 score to its color. passing is the pass mark.
func ScoreColor(score, passing float64) color.Color {
	switch {
	case score >= passing:
		return Success
	case score >= passing-20:
		return Warning
	default:
		return Error
	}
}
