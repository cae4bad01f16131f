// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the catalog of Anthropic models wilma can drive
// through Amazon Bedrock.
//
// The catalog is the source of truth for per-model request parameters:
// the menu shows its friendly names, the config package validates the
// default model against it, and the bedrock client takes max tokens and
// temperature from it. Entries are keyed by Bedrock model ID.
package models

// Spec describes one catalog entry.
type Spec struct {
	// FriendlyName is shown in menus and in the assistant header line.
	FriendlyName string

	// MaxTokens is the response token budget sent with every request.
	MaxTokens int

	// Temperature is the sampling temperature sent with every request.
	Temperature float64

	// TrainingCutoff is quoted in the system prompt so the model can be
	// honest about the age of its knowledge.
	TrainingCutoff string

	// SupportsStreaming selects between InvokeModelWithResponseStream
	// and plain InvokeModel.
	SupportsStreaming bool
}

// DefaultModel is used when neither the config file nor the flags pick
// a model.
const DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// order fixes the menu display order, newest first.
var order = []string{
	"anthropic.claude-opus-4-20250514-v1:0",
	"anthropic.claude-sonnet-4-20250514-v1:0",
	"anthropic.claude-3-7-sonnet-20250219-v1:0",
	"anthropic.claude-3-5-sonnet-20241022-v2:0",
	"anthropic.claude-3-5-haiku-20241022-v1:0",
	"anthropic.claude-3-5-sonnet-20240620-v1:0",
	"anthropic.claude-3-opus-20240229-v1:0",
	"anthropic.claude-3-sonnet-20240229-v1:0",
	"anthropic.claude-3-haiku-20240307-v1:0",
}

var catalog = map[string]Spec{
	"anthropic.claude-opus-4-20250514-v1:0": {
		FriendlyName:      "Claude Opus 4 (Bedrock)",
		MaxTokens:         8192,
		Temperature:       0.5,
		TrainingCutoff:    "March 2025",
		SupportsStreaming: true,
	},
	"anthropic.claude-sonnet-4-20250514-v1:0": {
		FriendlyName:      "Claude Sonnet 4 (Bedrock)",
		MaxTokens:         8192,
		Temperature:       0.5,
		TrainingCutoff:    "March 2025",
		SupportsStreaming: true,
	},
	"anthropic.claude-3-7-sonnet-20250219-v1:0": {
		FriendlyName:      "Claude 3.7 Sonnet (Bedrock)",
		MaxTokens:         8192,
		Temperature:       0.5,
		TrainingCutoff:    "October 2024",
		SupportsStreaming: true,
	},
	"anthropic.claude-3-5-sonnet-20241022-v2:0": {
		FriendlyName:      "Claude 3.5 Sonnet v2 (Bedrock)",
		MaxTokens:         8192,
		Temperature:       0.5,
		TrainingCutoff:    "July 2024",
		SupportsStreaming: true,
	},
	"anthropic.claude-3-5-haiku-20241022-v1:0": {
		FriendlyName:      "Claude 3.5 Haiku (Bedrock)",
		MaxTokens:         8192,
		Temperature:       0.5,
		TrainingCutoff:    "July 2024",
		SupportsStreaming: true,
	},
	"anthropic.claude-3-5-sonnet-20240620-v1:0": {
		FriendlyName:      "Claude 3.5 Sonnet (Bedrock)",
		MaxTokens:         8192,
		Temperature:       0.5,
		TrainingCutoff:    "April 2024",
		SupportsStreaming: true,
	},
	"anthropic.claude-3-opus-20240229-v1:0": {
		FriendlyName:      "Claude 3 Opus (Bedrock)",
		MaxTokens:         4096,
		Temperature:       0.5,
		TrainingCutoff:    "August 2023",
		SupportsStreaming: true,
	},
	"anthropic.claude-3-sonnet-20240229-v1:0": {
		FriendlyName:      "Claude 3 Sonnet (Bedrock)",
		MaxTokens:         8192,
		Temperature:       0.5,
		TrainingCutoff:    "August 2023",
		SupportsStreaming: true,
	},
	"anthropic.claude-3-haiku-20240307-v1:0": {
		FriendlyName:      "Claude 3 Haiku (Bedrock)",
		MaxTokens:         4096,
		Temperature:       0.5,
		TrainingCutoff:    "August 2023",
		SupportsStreaming: true,
	},
}

// List returns all catalog model IDs in display order.
func List() []string {
	ids := make([]string, len(order))
	copy(ids, order)
	return ids
}

// Get looks up a catalog entry by Bedrock model ID.
func Get(id string) (Spec, bool) {
	spec, ok := catalog[id]
	return spec, ok
}

// FriendlyName returns the display name for a model ID, or the ID
// itself for unknown models.
func FriendlyName(id string) string {
	if spec, ok := catalog[id]; ok {
		return spec.FriendlyName
	}
	return id
}
