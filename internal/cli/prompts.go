// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrgrumpyowl/wilma/internal/models"
)

// welcomeText is printed once at the start of every chat.
const welcomeText = `Welcome to wilma!

Type your prompt over as many lines as you need. Press Enter for a new
line and Esc followed by Enter to send. Type "Upload: <path>" to have a
local file or directory analysed. Type "exit" or "quit" (or press
Ctrl+C) to leave.`

// systemPrompt builds the system message for a chat with the given
// model. The date is regenerated per chat so long-lived sessions
// started on different days stay accurate.
func systemPrompt(modelID string, now time.Time) string {
	friendly := models.FriendlyName(modelID)

	cutoff := "an unknown date"
	if spec, ok := models.Get(modelID); ok && spec.TrainingCutoff != "" {
		cutoff = spec.TrainingCutoff
	}

	return fmt.Sprintf(
		"You are Claude, an AI assistant based on the %s model, created by Anthropic "+
			"and served via Amazon Bedrock. Your training data has a cutoff of %s. "+
			"Today's date is %s. You are talking to the user through a terminal chat "+
			"client. Use British English spelling throughout. You MUST format your "+
			"responses in Markdown, and use \"- \" for bullet points.",
		friendly, cutoff, now.Format("Monday 02 January 2006"))
}

// isExitWord reports whether the input ends the chat.
func isExitWord(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}
