// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuntime scripts InvokeModel responses for the retry tests.
type fakeRuntime struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	body string
	err  error
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	resp := f.responses[idx]
	if resp.err != nil {
		return nil, resp.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(resp.body)}, nil
}

func (f *fakeRuntime) InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	resp := f.responses[idx]
	return nil, resp.err
}

func newTestClient(rt runtimeAPI) *Client {
	return &Client{
		runtime:    rt,
		region:     "eu-west-1",
		maxRetries: 3,
		baseDelay:  time.Millisecond,
		maxDelay:   8 * time.Millisecond,
		sleep:      func(time.Duration) {},
	}
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code + " happened"}
}

// =============================================================================
// REQUEST BODY
// =============================================================================

func TestBuildBody(t *testing.T) {
	body, err := buildBody(Request{
		Model:  "anthropic.claude-3-haiku-20240307-v1:0",
		System: "be brief",
		Messages: []ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: ""},
			{Role: "user", Content: "again"},
		},
		MaxTokens:   1024,
		Temperature: 0.5,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "bedrock-2023-05-31", decoded["anthropic_version"])
	assert.Equal(t, float64(1024), decoded["max_tokens"])
	assert.Equal(t, 0.5, decoded["temperature"])
	assert.Equal(t, "be brief", decoded["system"])

	msgs := decoded["messages"].([]any)
	// Empty turns are dropped.
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	content := first["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", content["type"])
	assert.Equal(t, "hello", content["text"])
}

func TestBuildBodyDefaults(t *testing.T) {
	body, err := buildBody(Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, float64(defaultMaxTokens), decoded["max_tokens"])
	assert.Equal(t, defaultTemperature, decoded["temperature"])
	_, hasSystem := decoded["system"]
	assert.False(t, hasSystem)
}

func TestBuildBodyAllEmpty(t *testing.T) {
	_, err := buildBody(Request{Messages: []ChatMessage{{Role: "user", Content: ""}}})
	require.Error(t, err)
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

func TestMapError(t *testing.T) {
	tests := []struct {
		code     string
		sentinel error
	}{
		{"ThrottlingException", ErrThrottled},
		{"TooManyRequestsException", ErrThrottled},
		{"ServiceUnavailableException", ErrUnavailable},
		{"ModelNotReadyException", ErrUnavailable},
		{"ExpiredTokenException", ErrAuthExpired},
		{"UnrecognizedClientException", ErrAuthExpired},
		{"AccessDeniedException", ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			mapped := mapError(apiError(tt.code))
			assert.ErrorIs(t, mapped, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, mapped, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestMapErrorUnknownCodePassesThrough(t *testing.T) {
	mapped := mapError(apiError("ValidationException"))
	assert.NotErrorIs(t, mapped, ErrThrottled)
	assert.NotErrorIs(t, mapped, ErrUnavailable)

	var apiErr *APIError
	require.ErrorAs(t, mapped, &apiErr)
	assert.Equal(t, "ValidationException", apiErr.Code)
}

func TestMapErrorUntypedMessages(t *testing.T) {
	assert.ErrorIs(t, mapError(errors.New("modelstreamerror: ServiceUnavailableException")), ErrUnavailable)
	assert.ErrorIs(t, mapError(errors.New("request was throttled")), ErrThrottled)
	assert.ErrorIs(t, mapError(errors.New("The security token has expired")), ErrAuthExpired)

	plain := errors.New("something else")
	assert.Equal(t, plain, mapError(plain))
	assert.NoError(t, mapError(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(mapError(apiError("ThrottlingException"))))
	assert.True(t, isRetryable(mapError(apiError("ServiceUnavailableException"))))
	assert.False(t, isRetryable(mapError(apiError("AccessDeniedException"))))
	assert.False(t, isRetryable(errors.New("other")))
}

// =============================================================================
// BACKOFF
// =============================================================================

func TestCalculateBackoff(t *testing.T) {
	c := &Client{baseDelay: time.Second, maxDelay: 20 * time.Second}

	for attempt := 0; attempt < 10; attempt++ {
		delay := c.calculateBackoff(attempt)
		exp := time.Second << uint(attempt)
		if exp > 20*time.Second || exp <= 0 {
			exp = 20 * time.Second
		}
		assert.GreaterOrEqual(t, delay, exp, "attempt %d", attempt)
		// Jitter adds at most 10%.
		assert.LessOrEqual(t, delay, exp+exp/10, "attempt %d", attempt)
	}
}

// =============================================================================
// RETRY LOOP
// =============================================================================

const okBody = `{"content":[{"type":"text","text":"The answer."}]}`

func TestCreateMessageSuccess(t *testing.T) {
	rt := &fakeRuntime{responses: []fakeResponse{{body: okBody}}}
	c := newTestClient(rt)

	text, err := c.CreateMessage(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer.", text)
	assert.Equal(t, 1, rt.calls)
}

func TestCreateMessageRetriesThenSucceeds(t *testing.T) {
	rt := &fakeRuntime{responses: []fakeResponse{
		{err: apiError("ServiceUnavailableException")},
		{err: apiError("ThrottlingException")},
		{body: okBody},
	}}
	c := newTestClient(rt)

	text, err := c.CreateMessage(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer.", text)
	assert.Equal(t, 3, rt.calls)
}

func TestCreateMessageDoesNotRetryAuthErrors(t *testing.T) {
	rt := &fakeRuntime{responses: []fakeResponse{{err: apiError("ExpiredTokenException")}}}
	c := newTestClient(rt)

	_, err := c.CreateMessage(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Equal(t, 1, rt.calls)
}

func TestCreateMessageExhaustsRetries(t *testing.T) {
	rt := &fakeRuntime{responses: []fakeResponse{{err: apiError("ServiceUnavailableException")}}}
	c := newTestClient(rt)

	_, err := c.CreateMessage(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, c.maxRetries+1, rt.calls)
}

func TestCreateMessageStreamOpenFailureNotRetryable(t *testing.T) {
	rt := &fakeRuntime{responses: []fakeResponse{{err: apiError("AccessDeniedException")}}}
	c := newTestClient(rt)

	_, err := c.CreateMessageStream(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, nil)
	require.Error(t, err)

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, 1, rt.calls)
}

func TestCreateMessageStreamOpenFailureExhaustsRetries(t *testing.T) {
	rt := &fakeRuntime{responses: []fakeResponse{{err: apiError("ThrottlingException")}}}
	c := newTestClient(rt)

	_, err := c.CreateMessageStream(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, c.maxRetries+1, rt.calls)
}

// =============================================================================
// MID-STREAM FAILURES
// =============================================================================

// fakeStream scripts one response stream: buffered events, then an
// optional terminal error once the channel drains.
type fakeStream struct {
	events chan types.ResponseStream
	err    error
}

func (f *fakeStream) Events() <-chan types.ResponseStream { return f.events }
func (f *fakeStream) Close() error                        { return nil }
func (f *fakeStream) Err() error                          { return f.err }

func newFakeStream(err error, payloads ...string) *fakeStream {
	s := &fakeStream{events: make(chan types.ResponseStream, len(payloads)), err: err}
	for _, p := range payloads {
		s.events <- &types.ResponseStreamMemberChunk{Value: types.PayloadPart{Bytes: []byte(p)}}
	}
	close(s.events)
	return s
}

const (
	deltaHello = `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello, "}}`
	deltaWorld = `{"type":"content_block_delta","delta":{"type":"text_delta","text":"world."}}`
	stopEvent  = `{"type":"message_stop"}`
)

func TestCreateMessageStreamResumesAfterMidStreamFailure(t *testing.T) {
	c := newTestClient(&fakeRuntime{})
	opens := 0
	c.openStream = func(ctx context.Context, input *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
		opens++
		if opens == 1 {
			// First stream dies partway through with a retryable error.
			return newFakeStream(apiError("ServiceUnavailableException"), deltaHello), nil
		}
		return newFakeStream(nil, deltaWorld, stopEvent), nil
	}

	var deltas []string
	text, err := c.CreateMessageStream(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	// Text from before the failure is kept; the reopened stream appends.
	assert.Equal(t, "Hello, world.", text)
	assert.Equal(t, []string{"Hello, ", "world."}, deltas)
	assert.Equal(t, 2, opens)
}

func TestCreateMessageStreamMidStreamFailureKeepsPartial(t *testing.T) {
	c := newTestClient(&fakeRuntime{})
	opens := 0
	c.openStream = func(ctx context.Context, input *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
		opens++
		return newFakeStream(apiError("AccessDeniedException"), deltaHello), nil
	}

	partial, err := c.CreateMessageStream(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "Hello, ", partial)

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "Hello, ", streamErr.Partial)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, 1, opens)
}

func TestCreateMessageStreamMidStreamFailuresExhaustRetries(t *testing.T) {
	c := newTestClient(&fakeRuntime{})
	opens := 0
	c.openStream = func(ctx context.Context, input *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
		opens++
		return newFakeStream(apiError("ThrottlingException"), deltaHello), nil
	}

	partial, err := c.CreateMessageStream(context.Background(), Request{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, c.maxRetries+1, opens)

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	// Every attempt delivered its delta before dying.
	assert.Equal(t, "Hello, Hello, Hello, Hello, ", partial)
	assert.Equal(t, partial, streamErr.Partial)
}

// =============================================================================
// STREAM EVENT DECODING
// =============================================================================

func TestDecodeStreamEvent(t *testing.T) {
	text, stop, err := decodeStreamEvent([]byte(`{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}`))
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Equal(t, "Hel", text)

	_, stop, err = decodeStreamEvent([]byte(`{"type":"message_stop"}`))
	require.NoError(t, err)
	assert.True(t, stop)

	text, stop, err = decodeStreamEvent([]byte(`{"type":"message_start","message":{}}`))
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Empty(t, text)

	_, _, err = decodeStreamEvent([]byte(`{broken`))
	require.Error(t, err)
}
