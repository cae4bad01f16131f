// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload turns local files and directories into chat content.
//
// A prompt starting with "Upload: <path>" asks wilma to read that path
// and hand it to the model: a single UTF-8 file is wrapped in a fenced
// block, a directory is rendered to one markdown document (tree plus
// per-file sections). Binary files and anything matching the ignore
// patterns are skipped, and both forms are capped by estimated token
// count so an oversized upload is refused before it hits the API.
package upload

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Token caps for upload content, estimated with the tokenizer in this
// package.
const (
	MaxFileTokens = 64000
	MaxDirTokens  = 100000
)

// requestPrefix marks an upload request in the user's prompt.
const requestPrefix = "Upload:"

// Request describes a detected upload request.
type Request struct {
	Path  string
	IsDir bool
}

// DetectRequest reports whether the prompt is an upload request. The
// path has ~ expanded and surrounding quotes stripped.
func DetectRequest(content string) (Request, bool) {
	if !strings.HasPrefix(content, requestPrefix) {
		return Request{}, false
	}

	path := strings.TrimSpace(strings.TrimPrefix(content, requestPrefix))
	path = strings.Trim(path, `"'`)
	path = expandHome(path)
	if path == "" {
		return Request{}, false
	}

	info, err := os.Stat(path)
	isDir := err == nil && info.IsDir()
	return Request{Path: path, IsDir: isDir}, true
}

// FileResult is the outcome of reading a single uploaded file.
type FileResult struct {
	Name    string
	Content string
	Tokens  int
	TooBig  bool
	Empty   bool
}

// ReadFile reads one file for upload. Content over MaxFileTokens is
// refused with TooBig set; an unreadable file returns an error.
func ReadFile(path string) (FileResult, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Name: name}, fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return FileResult{Name: name, Empty: true}, nil
	}

	content := string(data)
	tokens := EstimateTokens(content)
	if tokens > MaxFileTokens {
		return FileResult{Name: name, Tokens: tokens, TooBig: true}, nil
	}

	return FileResult{Name: name, Content: content, Tokens: tokens}, nil
}

// IsBinary sniffs the first KB of a file for a NUL byte. Unreadable
// files count as binary so they are skipped rather than crashing a
// directory walk.
func IsBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return true
	}
	return bytes.IndexByte(buf[:n], 0x00) >= 0
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
