// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for wilma.
//
// It contains the crash-safe file writer used by the config and chat
// history packages, and rune- and width-aware string truncation used by
// the menu and history previews.
package util
