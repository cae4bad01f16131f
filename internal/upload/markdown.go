// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// DirResult is the outcome of rendering a directory upload.
type DirResult struct {
	Markdown string
	Tokens   int
	TooBig   bool
	Files    int
}

// GenerateDirectoryMarkdown walks root and renders it as one markdown
// document: a directory tree, then a fenced section per readable text
// file. Ignored and binary files are skipped. If the estimated token
// count passes MaxDirTokens the render is abandoned with TooBig set.
func GenerateDirectoryMarkdown(root string) (DirResult, error) {
	var b strings.Builder

	tree, err := directoryTree(root)
	if err != nil {
		return DirResult{}, fmt.Errorf("failed to read directory: %w", err)
	}

	fmt.Fprintf(&b, "# Directory Analysis for %s\n\n", root)
	b.WriteString("## Directory Structure\n\n")
	fmt.Fprintf(&b, "```\n%s\n```\n\n", tree)

	files := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && ShouldIgnore(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if ShouldIgnore(path) || IsBinary(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			// Unreadable files are skipped, same as binary ones.
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		writeFileSection(&b, rel, string(data))
		files++

		if EstimateTokens(b.String()) > MaxDirTokens {
			return errDirTooBig
		}
		return nil
	})

	tokens := EstimateTokens(b.String())
	if walkErr == errDirTooBig {
		return DirResult{Tokens: tokens, TooBig: true, Files: files}, nil
	}
	if walkErr != nil {
		return DirResult{}, fmt.Errorf("failed to walk directory: %w", walkErr)
	}

	if files == 0 {
		return DirResult{}, nil
	}
	return DirResult{Markdown: b.String(), Tokens: tokens, Files: files}, nil
}

var errDirTooBig = fmt.Errorf("directory exceeds token cap")

// writeFileSection renders one file as a heading plus fenced content.
// Markdown files use a quote enclosure instead of a code fence so
// their own fences survive; everything else gets a fence labeled with
// the language chroma detects from the file name.
func writeFileSection(b *strings.Builder, relPath, content string) {
	fmt.Fprintf(b, "## %s\n\n", relPath)
	if strings.HasSuffix(relPath, ".md") {
		fmt.Fprintf(b, "\"\"\"\n%s\n\"\"\"\n\n", content)
		return
	}
	fmt.Fprintf(b, "```%s\n%s\n```\n\n", FenceLanguage(relPath), content)
}

// FenceLanguage returns the code fence language tag for a file name,
// or the empty string when chroma has no lexer for it.
func FenceLanguage(filename string) string {
	lexer := lexers.Match(filepath.Base(filename))
	if lexer == nil {
		return ""
	}
	cfg := lexer.Config()
	if cfg == nil || len(cfg.Aliases) == 0 {
		return ""
	}
	return cfg.Aliases[0]
}

// directoryTree renders the non-ignored directory hierarchy under root
// in the style of tree(1).
func directoryTree(root string) (string, error) {
	if _, err := os.Stat(root); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(root)
	if err := writeTreeLevel(&b, root, ""); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeTreeLevel(b *strings.Builder, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var subdirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if ShouldIgnore(full) {
			continue
		}
		subdirs = append(subdirs, entry.Name())
	}
	sort.Strings(subdirs)

	for i, name := range subdirs {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(subdirs)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		fmt.Fprintf(b, "\n%s%s%s", prefix, connector, name)
		if err := writeTreeLevel(b, filepath.Join(dir, name), childPrefix); err != nil {
			return err
		}
	}
	return nil
}
