// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/mrgrumpyowl/wilma/internal/logging"
)

// =============================================================================
// STREAMING
// =============================================================================

// StreamCallback receives each text delta as it arrives.
type StreamCallback func(text string)

// streamEvent is the decoded payload of one stream chunk.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// eventStream is the slice of the SDK's response stream the consumer
// needs. The SDK type cannot be constructed outside a live call, so
// mid-stream failure handling is exercised through this seam.
type eventStream interface {
	Events() <-chan types.ResponseStream
	Close() error
	Err() error
}

// CreateMessageStream sends a request and streams the response text
// through cb, returning the complete accumulated text.
//
// RELIABILITY: A stream that dies with a retryable error is reopened
// with backoff, up to the retry budget. Text accumulated before the
// failure is kept; the replacement stream appends to it, so the
// caller's render never goes backwards. Non-retryable mid-stream
// failures return a StreamError carrying the partial text.
func (c *Client) CreateMessageStream(ctx context.Context, req Request, cb StreamCallback) (string, error) {
	body, err := buildBody(req)
	if err != nil {
		return "", err
	}

	input := &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	}

	open := c.openStream
	if open == nil {
		open = c.defaultOpenStream
	}

	var accumulated string
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt - 1)
			logging.L().Debug("retrying stream",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return accumulated, &StreamError{Partial: accumulated, Err: ctx.Err()}
			default:
			}
			c.sleep(delay)
		}

		stream, err := open(ctx, input)
		if err != nil {
			lastErr = mapError(err)
			if isRetryable(lastErr) {
				continue
			}
			return accumulated, &StreamError{Partial: accumulated, Err: lastErr}
		}

		text, err := c.consumeStream(ctx, stream, &accumulated, cb)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return accumulated, &StreamError{Partial: accumulated, Err: err}
		}
	}

	return accumulated, &StreamError{
		Partial: accumulated,
		Err:     fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, c.maxRetries, lastErr),
	}
}

// defaultOpenStream opens a real response stream on the runtime.
func (c *Client) defaultOpenStream(ctx context.Context, input *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
	out, err := c.runtime.InvokeModelWithResponseStream(ctx, input)
	if err != nil {
		return nil, err
	}
	return out.GetStream(), nil
}

// consumeStream drains one response stream, appending deltas to
// accumulated and forwarding them to cb.
func (c *Client) consumeStream(ctx context.Context, stream eventStream, accumulated *string, cb StreamCallback) (string, error) {
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return *accumulated, ctx.Err()
		case event, ok := <-stream.Events():
			if !ok {
				if err := stream.Err(); err != nil {
					return *accumulated, mapError(err)
				}
				return *accumulated, nil
			}

			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}

			text, stop, err := decodeStreamEvent(chunk.Value.Bytes)
			if err != nil {
				return *accumulated, err
			}
			if stop {
				return *accumulated, nil
			}
			if text != "" {
				*accumulated += text
				if cb != nil {
					cb(text)
				}
			}
		}
	}
}

// decodeStreamEvent extracts the text delta from one chunk payload.
// stop is true on message_stop.
func decodeStreamEvent(payload []byte) (text string, stop bool, err error) {
	var event streamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", false, fmt.Errorf("failed to decode stream event: %w", err)
	}

	switch event.Type {
	case "message_stop":
		return "", true, nil
	case "content_block_delta":
		return event.Delta.Text, false, nil
	default:
		return "", false, nil
	}
}
