// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the user backs out of a menu or prompt
// with Ctrl+C or q.
var ErrAborted = errors.New("ui: aborted by user")

// Option is one selectable menu entry.
type Option struct {
	Label       string
	Description string
}

// =============================================================================
// MENU MODEL
// =============================================================================

type menuModel struct {
	title   string
	options []Option

	cursor int

	// typed collects digits so lists longer than nine entries can be
	// picked by number; enter confirms it.
	typed string

	chosen  int
	aborted bool
}

func newMenuModel(title string, options []Option) menuModel {
	return menuModel{title: title, options: options, chosen: -1}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.aborted = true
		return m, tea.Quit

	case "up", "k":
		m.typed = ""
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		m.typed = ""
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}

	case "backspace":
		if m.typed != "" {
			m.typed = m.typed[:len(m.typed)-1]
		}

	case "enter":
		if m.typed != "" {
			n, err := strconv.Atoi(m.typed)
			if err == nil && n >= 1 && n <= len(m.options) {
				m.chosen = n - 1
				return m, tea.Quit
			}
			// Out of range, start over.
			m.typed = ""
			return m, nil
		}
		m.chosen = m.cursor
		return m, tea.Quit

	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.typed += key.String()
	}

	return m, nil
}

func (m menuModel) View() string {
	if m.chosen >= 0 || m.aborted {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n\n")

	for i, opt := range m.options {
		line := fmt.Sprintf("%d) %s", i+1, opt.Label)
		if opt.Description != "" {
			line += "  " + DimStyle.Render(opt.Description)
		}
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.typed != "" {
		b.WriteString(PromptStyle.Render("Go to: " + m.typed))
		b.WriteString("\n")
	}
	b.WriteString(DimStyle.Render("up/down to move, type a number to jump, enter to select, q to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Select shows a menu and returns the index of the chosen option.
func Select(title string, options []Option) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("ui: no options to select from")
	}

	final, err := tea.NewProgram(newMenuModel(title, options)).Run()
	if err != nil {
		return 0, fmt.Errorf("menu failed: %w", err)
	}

	m := final.(menuModel)
	if m.aborted || m.chosen < 0 {
		return 0, ErrAborted
	}
	return m.chosen, nil
}
