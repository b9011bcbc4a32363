// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/wingedpig/arbor/internal/metrics"
)

// DefaultPath returns the per-user session file location (~/.arbor/config.json).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".arbor", "config.json"), nil
}

// Store owns the session file. Load never fails: a missing file is created
// with an empty document and an unreadable one is replaced in memory by an
// empty document. Writes go to a temp file that is renamed over the target,
// so readers never see a partial file.
//
// Reads are served from the last document written or loaded; Invalidate
// forces the next Load to go back to disk.
type Store struct {
	mu       sync.RWMutex
	path     string
	snapshot *Document
	written  []byte // bytes of the last successful write
	log      *slog.Logger
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		log:  slog.Default().With("component", "store"),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns a private copy of the current document.
func (s *Store) Load() *Document {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		s.snapshot = s.readLocked()
	}
	return s.snapshot.Clone()
}

// readLocked reads and migrates the file. Callers hold s.mu.
func (s *Store) readLocked() *Document {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		doc := NewDocument()
		if err := s.writeLocked(doc); err != nil {
			s.log.Warn("failed to create session file", "path", s.path, "error", err)
		} else {
			s.log.Info("created session file", "path", s.path)
		}
		return doc
	}
	if err != nil {
		s.log.Warn("failed to read session file, using empty session", "path", s.path, "error", err)
		return NewDocument()
	}
	if len(data) == 0 {
		return NewDocument()
	}

	doc, res, err := Decode(data)
	if err != nil {
		s.log.Warn("corrupt session file, using empty session", "path", s.path, "error", err)
		return NewDocument()
	}
	switch {
	case res.AppliedTo != "":
		s.log.Info("migrated global selection", "workspace", res.AppliedTo)
	case res.Skipped != "":
		s.log.Info("dropped global selection", "reason", res.Skipped)
	}
	return doc
}

// Save writes doc and reports whether it succeeded. Failures are logged.
func (s *Store) Save(doc *Document) bool {
	if err := s.Write(doc); err != nil {
		s.log.Warn("failed to write session file", "path", s.path, "error", err)
		return false
	}
	return true
}

// Write is Save with the failure cause returned.
func (s *Store) Write(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(doc); err != nil {
		metrics.SessionWritesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.SessionWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Store) writeLocked(doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename tmp to session file: %w", err)
	}

	snap := doc.Clone()
	snap.Normalize()
	s.snapshot = snap
	s.written = data
	return nil
}

// Reload drops the cached document if the file no longer holds what this
// store last wrote, and reports whether it did.
func (s *Store) Reload() bool {
	data, err := os.ReadFile(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && s.written != nil && bytes.Equal(data, s.written) {
		return false
	}
	s.snapshot = nil
	s.written = nil
	return true
}

// Invalidate drops the cached document so the next Load rereads the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}
