// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses wilma's arguments and drives the chat session.
package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// ModelSelect is set by -m / --model-select. When Model is empty
	// the model menu is shown instead.
	ModelSelect bool
	Model       string

	// WebSearch enables the Perplexity augmentation flow.
	WebSearch bool

	// Debug enables verbose logging to stderr.
	Debug bool
}

const usageText = `wilma - chat with Anthropic's Claude models via Amazon Bedrock

Usage:
  wilma                        Start chatting with the default model
  wilma -m, --model-select     Pick a model from the menu first
  wilma -m <model-id>          Use a specific Bedrock model ID
  wilma -ws, --web-search      Allow live web search via Perplexity
  wilma --debug                Verbose logging to stderr
  wilma -v, --version          Show version
  wilma -h, --help             Show this help

Web search requires the PERPLEXITY_API_KEY environment variable.

In the chat:
  - Type your prompt over as many lines as you like; Enter inserts a
    new line. Press Esc and then Enter to send.
  - Type "Upload: <path>" to analyse a local file or directory.
  - Type "exit" or "quit" (or press Ctrl+C) to leave.

Configuration lives in ~/.wilma/config, for example:
  default_model = "anthropic.claude-3-5-sonnet-20241022-v2:0"

Chat history is saved under ~/.wilma/chat-history/ and the twenty most
recent chats can be resumed from the main menu.`

// Parse interprets the raw arguments (without the program name).
func Parse(argv []string) (Command, Args, error) {
	var args Args

	for i := 0; i < len(argv); i++ {
		switch arg := argv[i]; arg {
		case "-h", "--help", "help":
			return CmdHelp, args, nil

		case "-v", "--version", "version":
			return CmdVersion, args, nil

		case "-m", "--model-select":
			args.ModelSelect = true
			// The model ID is optional; without one the menu opens.
			if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "-") {
				args.Model = argv[i+1]
				i++
			}

		case "-ws", "--web-search":
			args.WebSearch = true

		case "--debug":
			args.Debug = true

		default:
			return CmdHelp, args, fmt.Errorf("unknown argument %q (try --help)", arg)
		}
	}

	return CmdChat, args, nil
}

// Usage returns the help text.
func Usage() string {
	return usageText
}

// VersionString returns the full version line.
func VersionString() string {
	return fmt.Sprintf("wilma %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
