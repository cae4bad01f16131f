// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles wilma's configuration.
//
// Configuration comes from three layers, lowest precedence first:
//
//  1. Built-in defaults (the catalog default model)
//  2. The config file ~/.wilma/config (TOML, one known key)
//  3. Environment variables (WILMA_DEFAULT_MODEL, PERPLEXITY_API_KEY),
//     optionally fed from a .env file in the working directory or
//     ~/.wilma/.env
//
// The config file is deliberately tiny:
//
//	default_model = "anthropic.claude-3-5-sonnet-20241022-v2:0"
//
// A malformed or suspicious file is never fatal: wilma warns and falls
// back to the built-in default, so a bad edit cannot lock the user out
// of their chat client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/mrgrumpyowl/wilma/internal/models"
	"github.com/mrgrumpyowl/wilma/internal/util"
)

// MaxConfigSize guards against reading a file that is clearly not a
// wilma config (the real file is one line).
const MaxConfigSize = 1024

// Config holds the resolved configuration.
type Config struct {
	// DefaultModel is the Bedrock model ID used when no -m flag is
	// given. Empty means "use the catalog default".
	DefaultModel string `toml:"default_model" env:"WILMA_DEFAULT_MODEL"`

	// PerplexityAPIKey enables the web search feature when set.
	// Never written to the config file.
	PerplexityAPIKey string `toml:"-" env:"PERPLEXITY_API_KEY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultModel: models.DefaultModel,
	}
}

// Dir returns wilma's config directory (~/.wilma).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".wilma"), nil
}

// Path returns the config file path (~/.wilma/config).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// Load resolves the configuration from all layers. Warnings describe
// anything ignored along the way; the returned config is always usable.
func Load() (*Config, []string, error) {
	path, err := Path()
	if err != nil {
		return nil, nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, []string, error) {
	cfg := Default()
	var warnings []string

	// .env files are optional; missing files are not an error.
	loadDotenv()

	if w := loadFile(cfg, path); w != nil {
		warnings = append(warnings, w...)
	}

	// Environment overrides file values.
	if err := env.Parse(cfg); err != nil {
		return nil, warnings, fmt.Errorf("failed to parse environment: %w", err)
	}

	if w := validateModel(cfg); w != "" {
		warnings = append(warnings, w)
		cfg.DefaultModel = models.DefaultModel
	}

	return cfg, warnings, nil
}

// Save persists the default model choice atomically. The file's whole
// contract is this one key, so the write replaces the file.
func Save(defaultModel string) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, defaultModel)
}

// SaveTo is Save with an explicit config file path.
func SaveTo(path, defaultModel string) error {
	if _, ok := models.Get(defaultModel); !ok {
		return fmt.Errorf("unknown model: %s", defaultModel)
	}
	content := fmt.Sprintf("default_model = %q\n", defaultModel)
	return util.AtomicWriteFile(path, []byte(content), 0600)
}

// loadDotenv pulls in .env from the working directory and from
// ~/.wilma/.env. The working directory wins because godotenv never
// overrides variables that are already set.
func loadDotenv() {
	_ = godotenv.Load()
	if dir, err := Dir(); err == nil {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}
}

// loadFile decodes the config file into cfg. Every failure mode is a
// warning, not an error.
func loadFile(cfg *Config, path string) []string {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("config file %s is not readable: %v", path, err)}
	}

	if info.Size() > MaxConfigSize {
		return []string{fmt.Sprintf("config file %s is suspiciously large (%d bytes), ignoring it", path, info.Size())}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return []string{fmt.Sprintf("config file %s is not valid: %v", path, err)}
	}

	return nil
}

// validateModel checks the configured default model and returns a
// warning when it must be discarded. An empty model is valid and means
// the catalog default.
func validateModel(cfg *Config) string {
	model := strings.TrimSpace(cfg.DefaultModel)
	if model == "" {
		cfg.DefaultModel = models.DefaultModel
		return ""
	}

	if !strings.HasPrefix(model, "anthropic.") {
		return fmt.Sprintf("invalid model name format in config: %s", model)
	}

	// SECURITY: The configured value ends up in API requests and log
	// lines; reject anything that looks like injection noise.
	if strings.ContainsAny(model, ";&|$<>{}[]\\") {
		return fmt.Sprintf("suspicious characters in configured model name: %s", model)
	}

	if _, ok := models.Get(model); !ok {
		return fmt.Sprintf("unknown model in config: %s", model)
	}

	cfg.DefaultModel = model
	return ""
}
