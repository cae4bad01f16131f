// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(ColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for menu titles and section headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// PromptStyle marks the user's input line.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// SelectedStyle highlights the cursor row in menus.
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82")) // Bright green

	// SuccessStyle is used for success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// InfoStyle is used for informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")) // Blue

	// DimStyle is used for hints and secondary information.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray
)

// =============================================================================
// STATUS LINES
// =============================================================================
// Status lines go to stderr so piped stdout stays clean transcript.

// Successf prints a green "[+]" status line to stderr.
func Successf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, SuccessStyle.Render("[+]")+" "+fmt.Sprintf(format, args...))
}

// Warnf prints an amber "[!]" status line to stderr.
func Warnf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, WarningStyle.Render("[!]")+" "+fmt.Sprintf(format, args...))
}

// Errorf prints a red "[x]" status line to stderr.
func Errorf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("[x]")+" "+fmt.Sprintf(format, args...))
}

// Infof prints a blue "[i]" status line to stderr.
func Infof(format string, args ...any) {
	fmt.Fprintln(os.Stderr, InfoStyle.Render("[i]")+" "+fmt.Sprintf(format, args...))
}
