// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return &Store{BaseDir: t.TempDir()}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	chat := store.NewChat("anthropic.claude-3-5-sonnet-20241022-v2:0")
	chat.Append(RoleUser, "What is the capital of France?")
	chat.Append(RoleAssistant, "The capital of France is **Paris**.")

	require.NoError(t, store.Save(chat))
	require.NotEmpty(t, chat.path)

	loaded, err := store.Load(chat.path)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, loaded.ID)
	assert.Equal(t, chat.Model, loaded.Model)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, "The capital of France is **Paris**.", loaded.Messages[1].Content)
}

func TestSaveUsesDatedLayout(t *testing.T) {
	store := newTestStore(t)

	chat := store.NewChat("")
	chat.StartedAt = time.Date(2025, 1, 14, 9, 30, 42, 0, time.Local)
	chat.Append(RoleUser, "hello")
	require.NoError(t, store.Save(chat))

	want := filepath.Join(store.BaseDir, "2025-01-14", "20250114-093042.json")
	_, err := os.Stat(want)
	require.NoError(t, err)
}

func TestSaveEmptyChatIsNoop(t *testing.T) {
	store := newTestStore(t)
	chat := store.NewChat("")
	require.NoError(t, store.Save(chat))
	assert.Empty(t, chat.path)
}

func TestSaveOverwritesSameFile(t *testing.T) {
	store := newTestStore(t)

	chat := store.NewChat("")
	chat.Append(RoleUser, "first")
	require.NoError(t, store.Save(chat))
	first := chat.path

	chat.Append(RoleAssistant, "reply")
	require.NoError(t, store.Save(chat))
	assert.Equal(t, first, chat.path)

	loaded, err := store.Load(first)
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 2)
}

func TestLoadLegacyBareArray(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.BaseDir, "2024-06-01", "20240601-120000.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	legacy := `[
    {"role": "user", "content": "old question"},
    {"role": "assistant", "content": "old answer"}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0600))

	chat, err := store.Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "old question", chat.Messages[0].Content)
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(filepath.Join(store.BaseDir, "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	stamps := []time.Time{
		time.Date(2025, 1, 10, 8, 0, 0, 0, time.Local),
		time.Date(2025, 1, 12, 9, 0, 0, 0, time.Local),
		time.Date(2025, 1, 11, 10, 0, 0, 0, time.Local),
	}
	for i, ts := range stamps {
		chat := store.NewChat("")
		chat.StartedAt = ts
		chat.Append(RoleUser, "question "+string(rune('a'+i)))
		require.NoError(t, store.Save(chat))
	}

	entries, err := store.List(20)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "20250112-090000", entries[0].Name)
	assert.Equal(t, "20250111-100000", entries[1].Name)
	assert.Equal(t, "20250110-080000", entries[2].Name)
}

func TestListHonorsLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local)
	for i := 0; i < 25; i++ {
		chat := store.NewChat("")
		chat.StartedAt = base.Add(time.Duration(i) * time.Minute)
		chat.Append(RoleUser, "q")
		require.NoError(t, store.Save(chat))
	}

	entries, err := store.List(20)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestListSkipsCorruptFiles(t *testing.T) {
	store := newTestStore(t)

	chat := store.NewChat("")
	chat.Append(RoleUser, "valid")
	require.NoError(t, store.Save(chat))

	bad := filepath.Join(store.BaseDir, "2025-01-01", "20250101-000000.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(bad), 0755))
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0600))

	entries, err := store.List(20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "valid", entries[0].Preview)
}

func TestListEmptyBaseDir(t *testing.T) {
	store := &Store{BaseDir: filepath.Join(t.TempDir(), "does-not-exist")}
	entries, err := store.List(20)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreviewTruncation(t *testing.T) {
	store := newTestStore(t)

	chat := store.NewChat("")
	chat.Append(RoleUser, strings.Repeat("long prompt ", 30))
	require.NoError(t, store.Save(chat))

	entries, err := store.List(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.LessOrEqual(t, len([]rune(entries[0].Preview)), PreviewWidth)
	assert.True(t, strings.HasSuffix(entries[0].Preview, "..."))
}
