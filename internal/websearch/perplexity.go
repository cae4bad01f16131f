// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package websearch augments chats with live web results.
//
// The search itself is delegated to the Perplexity API; whether a
// prompt warrants a search at all is decided by the active chat model
// (see decide.go). Search failures never fail the chat: the caller
// warns and answers from training data instead.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mrgrumpyowl/wilma/internal/logging"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the Perplexity chat completions endpoint.
	DefaultBaseURL = "https://api.perplexity.ai/chat/completions"

	// searchModel is Perplexity's online search model.
	searchModel = "llama-3.1-sonar-huge-128k-online"

	searchSystemPrompt = "Be awesome. Think carefully."
	searchTemperature  = 0.3

	// maxResponseSize caps the body read (1MB).
	maxResponseSize = 1024 * 1024

	requestTimeout = 60 * time.Second
)

// ErrUnauthorized indicates a rejected API key.
var ErrUnauthorized = errors.New("websearch: unauthorized")

// =============================================================================
// CLIENT
// =============================================================================

// Client calls the Perplexity API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// limiter paces requests; the decision step means a search can
	// fire on every prompt in the worst case.
	limiter *rate.Limiter
}

// NewClient creates a Perplexity client with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

type searchRequest struct {
	Model       string          `json:"model"`
	Messages    []searchMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type searchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Search runs a web search and returns the result text prefixed with
// the retrieval date, ready to drop into the conversation.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := searchRequest{
		Model: searchModel,
		Messages: []searchMessage{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: searchTemperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logging.L().Debug("web search", zap.String("query", query))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: %d - %s", ErrUnauthorized, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error from Perplexity API: %d - %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("search response contained no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	now := time.Now()
	return fmt.Sprintf("Found online today, %s, at time %s: %s",
		now.Format("Mon 02 Jan 2006"), now.Format("15:04:05 MST"), content), nil
}
