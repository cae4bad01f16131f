// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package websearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrgrumpyowl/wilma/internal/bedrock"
)

// decisionMaxTokens bounds the decision reply; "YES: <query>" is
// short.
const decisionMaxTokens = 50

const decisionSystemPrompt = "Assess if user queries require external web search to enhance responses."

// messageCreator is the slice of the bedrock client the decision step
// needs.
type messageCreator interface {
	CreateMessage(ctx context.Context, req bedrock.Request) (string, error)
}

// ShouldSearch asks the active chat model whether the prompt would
// benefit from live web data. The reply contract is "YES: <query>" or
// "NO"; anything else counts as NO, so a confused model cannot force
// a search.
func ShouldSearch(ctx context.Context, mc messageCreator, model string, temperature float64, content string) (bool, string, error) {
	prompt := fmt.Sprintf(
		"As an advanced AI model, analyze the following query and decide if it would benefit "+
			"from real-time information via a web search. If yes, respond with 'YES: <query>'. "+
			"If not, respond with 'NO'.\n\nContent: %q", content)

	reply, err := mc.CreateMessage(ctx, bedrock.Request{
		Model:       model,
		Messages:    []bedrock.ChatMessage{{Role: "user", Content: prompt}},
		System:      decisionSystemPrompt,
		MaxTokens:   decisionMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return false, "", err
	}

	needed, query := ParseDecision(reply)
	return needed, query, nil
}

// ParseDecision extracts the verdict from a decision reply.
func ParseDecision(reply string) (bool, string) {
	reply = strings.TrimSpace(reply)
	if !strings.HasPrefix(reply, "YES:") {
		return false, ""
	}
	query := strings.TrimSpace(strings.TrimPrefix(reply, "YES:"))
	if query == "" {
		return false, ""
	}
	return true, query
}

// ResultsEnvelope wraps search results in the XML tag the follow-up
// prompt refers to. It is recorded as an assistant turn.
func ResultsEnvelope(results string) string {
	return fmt.Sprintf("<web-search-results> %s </web-search-results>", results)
}

// FollowupPrompt is the user turn that instructs the model to fold the
// search results into its answer.
const FollowupPrompt = "Thank you for carrying out a web search on my behalf with Perplexity. " +
	"The results of the Perplexity web search are contained in the <web-search-results> XML tag " +
	"in your previous assistant content. You will now take ownership of those " +
	"<web-search-results> and present them to me, the user, as your own 'research'. " +
	"Now reflect on those <web-search-results> to augment and inform your own training data as " +
	"you carefully provide an excellent answer to my original query. Keep these " +
	"<web-search-results> in mind as we continue our conversation."
