// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mrgrumpyowl/wilma/internal/logging"
)

// Watcher reloads the default model when the config file changes during
// a session. Invalid edits are logged and ignored; the session keeps
// its current model until a valid value appears.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	onModel func(model string)
	done    chan struct{}
}

// NewWatcher watches the config file at path and calls onModel with the
// new default model after each valid change.
func NewWatcher(path string, onModel func(model string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory, not the file: editors and AtomicWriteFile
	// replace the file by rename, which drops a watch on the file
	// itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		fsw:     fsw,
		onModel: onModel,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.L().Debug("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg := Default()
	if warnings := loadFile(cfg, w.path); len(warnings) > 0 {
		for _, warning := range warnings {
			logging.L().Debug("config reload skipped", zap.String("warning", warning))
		}
		return
	}
	if warning := validateModel(cfg); warning != "" {
		logging.L().Debug("config reload skipped", zap.String("warning", warning))
		return
	}
	logging.L().Debug("config reloaded", zap.String("default_model", cfg.DefaultModel))
	if w.onModel != nil {
		w.onModel(cfg.DefaultModel)
	}
}
