// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultModelIsInCatalog(t *testing.T) {
	spec, ok := Get(DefaultModel)
	require.True(t, ok)
	assert.Equal(t, "Claude 3.5 Sonnet v2 (Bedrock)", spec.FriendlyName)
	assert.True(t, spec.SupportsStreaming)
}

func TestListMatchesCatalog(t *testing.T) {
	ids := List()
	require.NotEmpty(t, ids)

	seen := make(map[string]bool)
	for _, id := range ids {
		spec, ok := Get(id)
		require.True(t, ok, "listed model %s missing from catalog", id)
		assert.NotEmpty(t, spec.FriendlyName)
		assert.Positive(t, spec.MaxTokens)
		assert.NotEmpty(t, spec.TrainingCutoff)
		assert.False(t, seen[id], "duplicate model %s in list", id)
		seen[id] = true
	}
}

func TestListReturnsCopy(t *testing.T) {
	ids := List()
	ids[0] = "mutated"
	assert.NotEqual(t, "mutated", List()[0])
}

func TestGetUnknown(t *testing.T) {
	_, ok := Get("anthropic.claude-nonexistent")
	assert.False(t, ok)
}

func TestFriendlyName(t *testing.T) {
	assert.Equal(t, "Claude 3 Haiku (Bedrock)", FriendlyName("anthropic.claude-3-haiku-20240307-v1:0"))
	// Unknown IDs fall through unchanged.
	assert.Equal(t, "some.other-model", FriendlyName("some.other-model"))
}
