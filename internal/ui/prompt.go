// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// MULTILINE PROMPT
// =============================================================================

const (
	promptHeight    = 8
	promptPlacehold = "Type your prompt (Enter for a new line, Esc then Enter to send)"
)

type promptModel struct {
	ta        textarea.Model
	armed     bool
	submitted bool
	aborted   bool
}

func newPromptModel(width int) promptModel {
	ta := textarea.New()
	ta.Placeholder = promptPlacehold
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(width)
	ta.SetHeight(promptHeight)
	ta.Focus()
	return promptModel{ta: ta}
}

func (m promptModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements the submit gesture: Enter inserts a newline while
// typing, Esc arms submission, and Enter while armed sends the prompt.
// Alt+Enter sends immediately. Any other key disarms.
func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "ctrl+d":
			m.aborted = true
			return m, tea.Quit

		case "esc":
			m.armed = true
			return m, nil

		case "alt+enter":
			m.submitted = true
			return m, tea.Quit

		case "enter":
			if m.armed {
				m.submitted = true
				return m, tea.Quit
			}

		default:
			m.armed = false
		}
	}

	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.submitted || m.aborted {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.ta.View())
	b.WriteString("\n")
	if m.armed {
		b.WriteString(SelectedStyle.Render("Press Enter to send (any other key to keep editing)"))
	} else {
		b.WriteString(DimStyle.Render("Enter: new line | Esc then Enter: send | Ctrl+C: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// ReadPrompt collects a multiline prompt from the user. On a terminal
// it runs the textarea editor; otherwise it reads stdin to EOF so the
// client still works in a pipeline.
func ReadPrompt() (string, error) {
	if !IsTTY() {
		return readPromptPiped()
	}

	width := TerminalWidth()
	if width > wrapWidth {
		width = wrapWidth
	}

	final, err := tea.NewProgram(newPromptModel(width)).Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	m := final.(promptModel)
	if m.aborted {
		return "", ErrAborted
	}
	return strings.TrimSpace(m.ta.Value()), nil
}

func readPromptPiped() (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrAborted
	}
	return text, nil
}
