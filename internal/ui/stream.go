// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// =============================================================================
// STREAM BUFFER
// =============================================================================

// StreamBuffer batches streamed tokens so the display repaints at a
// capped frame rate instead of once per delta.
//
// PERFORMANCE: Repainting markdown per token means hundreds of frames
// per second on a fast stream. Batching to ~30fps keeps output smooth
// without burning CPU.
//
// Thread-safety: deltas arrive on the streaming goroutine while the
// display loop flushes, so all operations take the mutex.
type StreamBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize    int
	minFlushWait time.Duration
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamBuffer creates a buffer with the default batch size and
// frame rate.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{
		batchSize:    defaultBatchSize,
		minFlushWait: time.Second / defaultMaxFPS,
		lastFlush:    time.Now(),
	}
}

// Write adds one streamed token.
func (sb *StreamBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns buffered content when a threshold is met. Content is
// returned once either the batch size fills or the frame interval has
// elapsed since the last flush.
func (sb *StreamBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlushWait {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush drains the buffer regardless of thresholds. Called when
// the stream ends so no trailing tokens are dropped.
func (sb *StreamBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

// Pending returns the number of buffered tokens.
func (sb *StreamBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamBuffer) takeLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// STREAM DISPLAY
// =============================================================================

// StreamDisplay shows a streaming markdown response. On a TTY it
// repaints the rendered markdown in place as deltas arrive; on
// anything else it writes the raw text straight through.
type StreamDisplay struct {
	out      *termenv.Output
	w        io.Writer
	renderer *Renderer
	buf      *StreamBuffer

	accumulated string
	lines       int
}

// NewStreamDisplay creates a display writing to w.
func NewStreamDisplay(w io.Writer, renderer *Renderer) *StreamDisplay {
	return &StreamDisplay{
		out:      termenv.NewOutput(w),
		w:        w,
		renderer: renderer,
		buf:      NewStreamBuffer(),
	}
}

// Write accepts one streamed delta and repaints if a frame is due.
func (d *StreamDisplay) Write(token string) {
	d.buf.Write(token)
	if content, ok := d.buf.Flush(); ok {
		d.paint(content)
	}
}

// Done flushes remaining tokens and paints the final frame, returning
// the complete response text.
func (d *StreamDisplay) Done() string {
	content, _ := d.buf.ForceFlush()
	d.paint(content)
	return d.accumulated
}

func (d *StreamDisplay) paint(content string) {
	d.accumulated += content

	if d.renderer.Plain() {
		if content != "" {
			fmt.Fprint(d.w, content)
		}
		return
	}

	// Repaint the whole response. Clearing the exact previous line
	// count keeps surrounding output intact.
	if d.lines > 0 {
		d.out.ClearLines(d.lines)
	}
	rendered := d.renderer.Render(d.accumulated)
	fmt.Fprint(d.w, rendered)
	d.lines = strings.Count(rendered, "\n")
}
