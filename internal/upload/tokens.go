// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// EstimateTokens returns an approximate token count for content using
// the cl100k_base encoding. Bedrock's Claude tokenizer differs, but the
// estimate only gates upload size, so close is good enough. If the
// encoding is unavailable (no cached BPE data and no network) a
// bytes/4 heuristic is used instead.
func EstimateTokens(content string) int {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			encoder = enc
		}
	})

	if encoder != nil {
		return len(encoder.Encode(content, nil, nil))
	}
	return heuristicTokens(content)
}

// heuristicTokens approximates one token per four bytes.
func heuristicTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + 3) / 4
}
