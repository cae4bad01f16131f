// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/peterh/liner"

	"github.com/mrgrumpyowl/wilma/internal/bedrock"
	"github.com/mrgrumpyowl/wilma/internal/config"
	"github.com/mrgrumpyowl/wilma/internal/models"
	"github.com/mrgrumpyowl/wilma/internal/ui"
)

// =============================================================================
// MODEL SELECTION
// =============================================================================

// selectModel shows the model menu, restricted to what the region
// actually offers, and returns the chosen model ID.
func selectModel(ctx context.Context, awsCfg aws.Config) (string, error) {
	available := bedrock.ListAvailableModels(ctx, awsCfg)

	options := make([]ui.Option, len(available))
	for i, id := range available {
		options[i] = ui.Option{
			Label:       models.FriendlyName(id),
			Description: id,
		}
	}

	idx, err := ui.Select("Select a model", options)
	if err != nil {
		return "", err
	}
	return available[idx], nil
}

// resolveModel decides which model the chat uses, in order of
// precedence: an explicit -m value, the -m menu, then the configured
// default. An unknown flag value or an inaccessible default falls
// back to the menu rather than failing the session.
func resolveModel(ctx context.Context, client *bedrock.Client, awsCfg aws.Config, args Args, cfg *config.Config) (string, error) {
	if args.Model != "" {
		if _, ok := models.Get(args.Model); ok {
			return args.Model, nil
		}
		ui.Warnf("Unknown model %q, choose one from the menu instead.", args.Model)
		return selectModel(ctx, awsCfg)
	}

	if args.ModelSelect {
		return selectModel(ctx, awsCfg)
	}

	modelID := cfg.DefaultModel
	if modelID == "" {
		modelID = models.DefaultModel
	}

	if !client.CheckModelAccess(ctx, modelID) {
		ui.Warnf("No access to %s in this region.", models.FriendlyName(modelID))
		return selectModel(ctx, awsCfg)
	}
	return modelID, nil
}

// offerDefaultModel runs on first use, when no config file exists yet.
// It offers to persist the chosen model so the menu is not needed
// every time.
func offerDefaultModel(modelID string) {
	path, err := config.Path()
	if err != nil {
		return
	}
	if _, err := os.Stat(path); err == nil {
		return
	}

	question := "Save " + models.FriendlyName(modelID) + " as your default model?"
	if !promptYesNo(question) {
		return
	}

	if err := config.Save(modelID); err != nil {
		ui.Warnf("Could not save config: %v", err)
		return
	}
	ui.Successf("Default model saved to %s", path)
}

// promptYesNo asks a single-line y/n question. Defaults to no on a
// non-terminal stdin or an aborted prompt.
func promptYesNo(question string) bool {
	if !ui.IsTTY() {
		return false
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	answer, err := line.Prompt(question + " [y/N]: ")
	if err != nil {
		// Ctrl+C during the prompt counts as no.
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
