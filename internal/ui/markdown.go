// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// wrapWidth is the glamour word-wrap width. Kept below the common
// 80-column default so rendered output never hits the right edge.
const wrapWidth = 80

// Renderer turns markdown into styled terminal output. On a non-TTY
// stdout it passes text through unchanged so transcripts stay
// greppable.
type Renderer struct {
	tr    *glamour.TermRenderer
	plain bool
}

// NewRenderer builds a markdown renderer matched to the terminal.
func NewRenderer() *Renderer {
	if !IsStdoutTTY() || !ColorsEnabled() {
		return &Renderer{plain: true}
	}

	width := TerminalWidth()
	if width > wrapWidth {
		width = wrapWidth
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Renderer{plain: true}
	}
	return &Renderer{tr: tr}
}

// Render converts markdown to terminal output. Falls back to the raw
// text if rendering fails, so the response is never lost.
func (r *Renderer) Render(markdown string) string {
	if r.plain || r.tr == nil {
		return markdown
	}
	out, err := r.tr.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// Plain reports whether the renderer is in pass-through mode.
func (r *Renderer) Plain() bool {
	return r.plain
}
