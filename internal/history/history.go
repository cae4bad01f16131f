// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat transcripts to disk.
//
// Layout mirrors what wilma has always written:
//
//	~/.wilma/chat-history/anthropic/YYYY-MM-DD/YYYYMMDD-HHMMSS.json
//
// Each file is one chat. New files carry a small metadata envelope
// (id, model, timestamps) around the message list; files that are a
// bare JSON array of messages load fine too, so old history remains
// resumable.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrgrumpyowl/wilma/internal/logging"
	"github.com/mrgrumpyowl/wilma/internal/util"
)

// =============================================================================
// TYPES
// =============================================================================

// Message roles as they appear on the wire and on disk.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat is one conversation, in memory and on disk.
type Chat struct {
	ID        string    `json:"id"`
	Model     string    `json:"model,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`

	// path is set once the chat has been saved or loaded, so later
	// saves go to the same file.
	path string
}

// Entry describes a saved chat for the resume menu.
type Entry struct {
	Path    string
	Name    string // file stem, e.g. 20250114-093042
	ModTime time.Time
	Preview string // first user message, truncated
}

// ErrChatNotFound indicates the requested chat file does not exist.
var ErrChatNotFound = errors.New("chat not found")

// PreviewWidth bounds the resume menu preview column.
const PreviewWidth = 60

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes chat files under a base directory.
type Store struct {
	BaseDir string
}

// NewStore returns a store rooted at the default history directory.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}
	return &Store{
		BaseDir: filepath.Join(home, ".wilma", "chat-history", "anthropic"),
	}, nil
}

// NewChat starts a fresh chat for the given model.
func (s *Store) NewChat(model string) *Chat {
	now := time.Now()
	return &Chat{
		ID:        uuid.NewString(),
		Model:     model,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a turn to the chat.
func (c *Chat) Append(role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
	c.UpdatedAt = time.Now()
}

// Save writes the chat to disk atomically. The first save fixes the
// file name from the chat's start time; later saves overwrite the same
// file, exactly as the session progresses.
func (s *Store) Save(chat *Chat) error {
	if len(chat.Messages) == 0 {
		return nil
	}

	if chat.path == "" {
		day := chat.StartedAt.Format("2006-01-02")
		stamp := chat.StartedAt.Format("20060102-150405")
		chat.path = filepath.Join(s.BaseDir, day, stamp+".json")
	}

	data, err := json.MarshalIndent(chat, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	if err := util.AtomicWriteFile(chat.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}

	logging.L().Debug("chat saved",
		zap.String("path", chat.path),
		zap.Int("messages", len(chat.Messages)))
	return nil
}

// Load reads a chat file. Both the enveloped format and the legacy
// bare message array are accepted.
func (s *Store) Load(path string) (*Chat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrChatNotFound, path)
		}
		return nil, fmt.Errorf("failed to read chat file: %w", err)
	}

	chat, err := decodeChat(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat file %s: %w", path, err)
	}
	chat.path = path
	return chat, nil
}

// List returns up to limit saved chats, newest first. Files that do
// not parse are skipped rather than breaking the menu.
func (s *Store) List(limit int) ([]Entry, error) {
	var paths []string
	err := filepath.WalkDir(s.BaseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan chat history: %w", err)
	}

	// File names are timestamps, so lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		entry, err := s.describe(path)
		if err != nil {
			logging.L().Debug("skipping unreadable chat file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Store) describe(path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}

	chat, err := s.Load(path)
	if err != nil {
		return Entry{}, err
	}

	preview := ""
	for _, msg := range chat.Messages {
		if msg.Role == RoleUser && strings.TrimSpace(msg.Content) != "" {
			preview = util.TruncateWidth(firstLine(msg.Content), PreviewWidth)
			break
		}
	}

	return Entry{
		Path:    path,
		Name:    strings.TrimSuffix(filepath.Base(path), ".json"),
		ModTime: info.ModTime(),
		Preview: preview,
	}, nil
}

// decodeChat handles both on-disk formats.
func decodeChat(data []byte) (*Chat, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var messages []Message
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, err
		}
		return &Chat{ID: uuid.NewString(), Messages: messages}, nil
	}

	var chat Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, err
	}
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	return &chat, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
