// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher reloads the session document when its file changes
// outside the daemon.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/metrics"
)

// Reloader is the part of the session store the watcher drives.
type Reloader interface {
	Path() string
	// Reload drops cached state unless the file holds the store's own last
	// write, and reports whether it did.
	Reload() bool
}

// SessionWatcher watches the session file's directory. Writes are atomic
// renames, so the file itself cannot be watched directly.
type SessionWatcher struct {
	store     Reloader
	bus       events.Bus
	path      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	log       *slog.Logger

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewSessionWatcher starts watching the store's file. bus may be nil.
func NewSessionWatcher(store Reloader, bus events.Bus, debounce time.Duration) (*SessionWatcher, error) {
	path, err := filepath.Abs(store.Path())
	if err != nil {
		return nil, fmt.Errorf("resolve session path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &SessionWatcher{
		store:     store,
		bus:       bus,
		path:      path,
		watcher:   fsw,
		debouncer: NewDebouncer(debounce),
		log:       slog.Default().With("component", "watcher"),
		closeCh:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

// Close stops watching. Pending reloads are dropped.
func (w *SessionWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.debouncer.Stop()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *SessionWatcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *SessionWatcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.debouncer.Debounce(w.path, w.reload)
}

func (w *SessionWatcher) reload() {
	if !w.store.Reload() {
		return
	}
	metrics.SessionReloadsTotal.Inc()
	w.log.Info("session file changed on disk", "path", w.path)
	if w.bus == nil {
		return
	}
	err := w.bus.Publish(context.Background(), events.Event{
		Type:    events.SessionReloaded,
		Payload: map[string]any{"path": w.path},
	})
	if err != nil {
		w.log.Debug("publish failed", "error", err)
	}
}
