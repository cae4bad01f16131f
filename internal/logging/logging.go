// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the diagnostic logger for wilma.
//
// User-facing output goes to styled stderr lines in the cli package;
// this logger carries the detail behind it (request metadata, retry
// decisions, config watcher events). It is a nop unless --debug is set,
// so normal sessions produce no diagnostic noise.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// Init configures the package logger. With debug enabled it logs at
// debug level to stderr in console format; otherwise logging is a nop.
func Init(debug bool) error {
	if !debug {
		logger = zap.NewNop()
		return nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// L returns the package logger.
func L() *zap.Logger {
	return logger
}

// Sync flushes any buffered log entries. Safe to call on the nop logger.
func Sync() {
	_ = logger.Sync()
}
