// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bedrock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Sentinel errors for the failure classes callers branch on.
var (
	// ErrThrottled indicates the request was throttled. Retryable.
	ErrThrottled = errors.New("bedrock: request throttled")

	// ErrUnavailable indicates the service was unavailable. Retryable.
	ErrUnavailable = errors.New("bedrock: service unavailable")

	// ErrAuthExpired indicates expired or invalid AWS credentials.
	// Not retryable; the session must be refreshed out of band.
	ErrAuthExpired = errors.New("bedrock: credentials expired or invalid")

	// ErrAccessDenied indicates missing Bedrock permissions or model
	// access. Not retryable.
	ErrAccessDenied = errors.New("bedrock: access denied")

	// ErrMaxRetries indicates the retry budget was exhausted.
	ErrMaxRetries = errors.New("bedrock: maximum retries exceeded")
)

// APIError carries the service error code alongside the mapped
// sentinel so callers can both branch and report.
type APIError struct {
	Code    string
	Message string
	wrapped error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("bedrock API error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("bedrock API error %s", e.Code)
}

func (e *APIError) Unwrap() error {
	return e.wrapped
}

// StreamError wraps a mid-stream failure together with the partial
// text accumulated before it, so callers never lose tokens that were
// already rendered.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// mapError classifies an SDK error into the package's error taxonomy.
// Unrecognized errors pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		mapped := &APIError{
			Code:    code,
			Message: apiErr.ErrorMessage(),
			wrapped: sentinelFor(code),
		}
		if mapped.wrapped != nil {
			return mapped
		}
		return &APIError{Code: code, Message: apiErr.ErrorMessage(), wrapped: err}
	}

	// Event stream errors sometimes surface without a typed API error.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "serviceunavailable"):
		return &APIError{Code: "ServiceUnavailableException", wrapped: ErrUnavailable}
	case strings.Contains(msg, "throttl"):
		return &APIError{Code: "ThrottlingException", wrapped: ErrThrottled}
	case strings.Contains(msg, "expiredtoken"), strings.Contains(msg, "token has expired"):
		return &APIError{Code: "ExpiredTokenException", wrapped: ErrAuthExpired}
	}
	return err
}

func sentinelFor(code string) error {
	switch code {
	case "ThrottlingException", "TooManyRequestsException":
		return ErrThrottled
	case "ServiceUnavailableException", "ServiceQuotaExceededException", "ModelNotReadyException":
		return ErrUnavailable
	case "ExpiredTokenException", "ExpiredToken", "UnrecognizedClientException", "InvalidSignatureException":
		return ErrAuthExpired
	case "AccessDeniedException":
		return ErrAccessDenied
	default:
		return nil
	}
}

// isRetryable reports whether a request may be reissued after backoff.
func isRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable)
}
