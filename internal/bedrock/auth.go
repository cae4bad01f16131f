// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bedrock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	bedrocksvc "github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/mrgrumpyowl/wilma/internal/logging"
	"github.com/mrgrumpyowl/wilma/internal/models"
)

// =============================================================================
// AUTH PREFLIGHT
// =============================================================================

// AuthResult describes a verified AWS session.
type AuthResult struct {
	Cfg     aws.Config
	Region  string
	Account string
	Arn     string
}

// Session-refresh guidance shown when credentials are missing or
// stale. wilma's users typically broker sessions through Leapp or
// saml2aws, so the message names both.
const (
	msgSessionGuidance = "Please start a new AWS session using Leapp or saml2aws (etc).\n" +
		"e.g. If using Leapp, run 'leapp session start' to start a new session."

	msgExpired = "AWS session has expired.\n" +
		"Please refresh your session using Leapp or saml2aws (etc).\n" +
		"e.g. If using Leapp, run 'leapp session start' to start a new session."

	msgNoCredentials = "No AWS credentials found. Please run 'aws configure' to set up your credentials."

	msgNoRegion = "No AWS region configured. Please run 'aws configure' to set up your region."

	msgNotAuthorized = "Your AWS credentials don't have the required permissions.\n" +
		"Please ensure you have the necessary IAM permissions for Bedrock."
)

// CheckAuthentication verifies there is a live AWS session with a
// region configured, by resolving credentials and calling STS
// GetCallerIdentity. The error text is ready for display.
func CheckAuthentication(ctx context.Context) (*AuthResult, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s\n%w", credentialGuidance(), err)
	}

	if cfg.Region == "" {
		return nil, errors.New(msgNoRegion)
	}

	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("%s\n%w", credentialGuidance(), err)
	}

	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		mapped := mapError(err)
		switch {
		case errors.Is(mapped, ErrAuthExpired):
			return nil, fmt.Errorf("%s\n%w", msgExpired, mapped)
		case errors.Is(mapped, ErrAccessDenied):
			return nil, fmt.Errorf("%s\n%w", msgNotAuthorized, mapped)
		default:
			return nil, fmt.Errorf("AWS authentication error: %w", mapped)
		}
	}

	result := &AuthResult{
		Cfg:     cfg,
		Region:  cfg.Region,
		Account: aws.ToString(identity.Account),
		Arn:     aws.ToString(identity.Arn),
	}
	logging.L().Debug("authenticated with AWS",
		zap.String("region", result.Region),
		zap.String("arn", result.Arn))
	return result, nil
}

// credentialGuidance distinguishes "credentials exist but no session"
// from "never configured".
func credentialGuidance() string {
	home, err := os.UserHomeDir()
	if err == nil {
		if _, statErr := os.Stat(filepath.Join(home, ".aws", "credentials")); statErr == nil {
			return "Found AWS credentials but no active session.\n" + msgSessionGuidance
		}
	}
	return msgNoCredentials
}

// =============================================================================
// MODEL AVAILABILITY
// =============================================================================

// ListAvailableModels returns the catalog models that Bedrock reports
// as available in the authenticated region, in catalog display order.
// If the listing call fails the full catalog is returned so the menu
// still works; actual access problems surface on first invoke.
func ListAvailableModels(ctx context.Context, cfg aws.Config) []string {
	svc := bedrocksvc.NewFromConfig(cfg)
	out, err := svc.ListFoundationModels(ctx, &bedrocksvc.ListFoundationModelsInput{
		ByProvider: aws.String("Anthropic"),
	})
	if err != nil {
		logging.L().Debug("failed to list foundation models, using full catalog", zap.Error(err))
		return models.List()
	}

	available := make(map[string]bool, len(out.ModelSummaries))
	for _, summary := range out.ModelSummaries {
		available[aws.ToString(summary.ModelId)] = true
	}

	var result []string
	for _, id := range models.List() {
		if available[id] {
			result = append(result, id)
		}
	}
	if len(result) == 0 {
		// Region listing and catalog disagree completely; trust the
		// catalog rather than presenting an empty menu.
		return models.List()
	}
	return result
}

// CheckModelAccess probes a model with a one-token request. Throttled
// or unavailable responses still count as accessible.
func (c *Client) CheckModelAccess(ctx context.Context, modelID string) bool {
	_, err := c.CreateMessage(ctx, Request{
		Model:     modelID,
		Messages:  []ChatMessage{{Role: "user", Content: "Hi"}},
		MaxTokens: 1,
	})
	if err == nil {
		return true
	}
	if errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMaxRetries) {
		return true
	}
	logging.L().Debug("model access check failed",
		zap.String("model", modelID), zap.Error(err))
	return false
}
