// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bedrock is wilma's client for the Amazon Bedrock runtime.
//
// It speaks the anthropic messages wire format, retries throttled and
// unavailable requests with exponential backoff and jitter, and
// exposes both a buffered and a streaming call. The credential
// preflight in auth.go runs before any of this so API calls only
// happen with a live session.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mrgrumpyowl/wilma/internal/logging"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// anthropicVersion is the wire format version Bedrock expects for
	// Anthropic models.
	anthropicVersion = "bedrock-2023-05-31"

	// DefaultMaxRetries bounds retry attempts for throttled and
	// unavailable responses.
	DefaultMaxRetries = 6

	// DefaultBaseDelay and DefaultMaxDelay bound the backoff window.
	DefaultBaseDelay = 1 * time.Second
	DefaultMaxDelay  = 20 * time.Second

	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// =============================================================================
// TYPES
// =============================================================================

// ChatMessage is a single conversation turn.
type ChatMessage struct {
	Role    string
	Content string
}

// Request describes one model invocation.
type Request struct {
	Model       string
	Messages    []ChatMessage
	System      string
	MaxTokens   int
	Temperature float64
}

// runtimeAPI is the slice of the Bedrock runtime client this package
// uses. Narrowing to an interface keeps the retry logic testable.
type runtimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// Client invokes Anthropic models on Bedrock with retry and backoff.
type Client struct {
	runtime    runtimeAPI
	region     string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	// sleep and openStream are swappable for tests.
	sleep      func(time.Duration)
	openStream func(ctx context.Context, input *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error)
}

// NewClient builds a client from an authenticated AWS config, as
// returned by CheckAuthentication.
func NewClient(cfg aws.Config) *Client {
	return &Client{
		runtime:    bedrockruntime.NewFromConfig(cfg),
		region:     cfg.Region,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		maxDelay:   DefaultMaxDelay,
		sleep:      time.Sleep,
	}
}

// Region returns the region the client talks to.
func (c *Client) Region() string {
	return c.region
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string        `json:"anthropic_version"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	System           string        `json:"system,omitempty"`
	Messages         []wireMessage `json:"messages"`
}

type invokeResponse struct {
	Content []contentBlock `json:"content"`
}

// buildBody marshals a Request into the anthropic messages body.
// Turns with empty content are dropped; Bedrock rejects them.
func buildBody(req Request) ([]byte, error) {
	body := invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		System:           req.System,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if req.Temperature == 0 {
		body.Temperature = defaultTemperature
	}

	for _, msg := range req.Messages {
		if msg.Content == "" {
			continue
		}
		body.Messages = append(body.Messages, wireMessage{
			Role:    msg.Role,
			Content: []contentBlock{{Type: "text", Text: msg.Content}},
		})
	}
	if len(body.Messages) == 0 {
		return nil, fmt.Errorf("request has no non-empty messages")
	}

	return json.Marshal(body)
}

// =============================================================================
// NON-STREAMING INVOCATION
// =============================================================================

// CreateMessage sends a request and returns the full response text.
// Throttled and unavailable responses are retried with exponential
// backoff and jitter; other errors return immediately.
func (c *Client) CreateMessage(ctx context.Context, req Request) (string, error) {
	body, err := buildBody(req)
	if err != nil {
		return "", err
	}

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt - 1)
			logging.L().Debug("retrying request",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			c.sleep(delay)
		}

		out, err := c.runtime.InvokeModel(ctx, input)
		if err != nil {
			lastErr = mapError(err)
			if isRetryable(lastErr) {
				continue
			}
			return "", lastErr
		}

		var resp invokeResponse
		if err := json.Unmarshal(out.Body, &resp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(resp.Content) == 0 {
			return "", nil
		}
		return resp.Content[0].Text, nil
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, c.maxRetries, lastErr)
}

// =============================================================================
// BACKOFF
// =============================================================================

// calculateBackoff returns the delay before retry n (0-based):
// min(maxDelay, baseDelay * 2^n) plus jitter in [0, 10%] of the
// capped delay.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.baseDelay << uint(attempt)
	if delay > c.maxDelay || delay <= 0 {
		delay = c.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	return delay + jitter
}
