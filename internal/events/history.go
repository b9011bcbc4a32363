// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sort"
	"sync"
	"time"
)

// Retention defaults.
const (
	DefaultHistoryMaxEvents = 10000
	DefaultHistoryMaxAge    = time.Hour
)

// HistoryConfig bounds retained events.
type HistoryConfig struct {
	MaxEvents int
	MaxAge    time.Duration
}

// History keeps recent events for replay to late subscribers.
type History struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
	maxAge    time.Duration
	now       func() time.Time
}

// NewHistory creates a history, applying defaults for zero limits.
func NewHistory(cfg HistoryConfig) *History {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultHistoryMaxEvents
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultHistoryMaxAge
	}
	return &History{
		maxEvents: cfg.MaxEvents,
		maxAge:    cfg.MaxAge,
		now:       time.Now,
	}
}

// Add appends an event, discarding the oldest beyond MaxEvents.
func (h *History) Add(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if over := len(h.events) - h.maxEvents; over > 0 {
		h.events = append(h.events[:0:0], h.events[over:]...)
	}
}

// Query returns matching events, oldest first.
func (h *History) Query(filter Filter) []Event {
	h.mu.RLock()
	result := make([]Event, 0)
	for _, ev := range h.events {
		if matches(ev, filter) {
			result = append(result, ev)
		}
	}
	h.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}
	return result
}

// Len returns the number of retained events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

func matches(ev Event, f Filter) bool {
	if !MatchAny(ev.Type, f.Types) {
		return false
	}
	if f.Worktree != "" && ev.Worktree != f.Worktree {
		return false
	}
	if !f.Since.IsZero() && ev.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && ev.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Prune drops events older than MaxAge.
func (h *History) Prune() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-h.maxAge)
	kept := h.events[:0]
	for _, ev := range h.events {
		if ev.Timestamp.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	clear(h.events[len(kept):])
	h.events = kept
}

// Reset discards all events.
func (h *History) Reset() {
	h.mu.Lock()
	h.events = nil
	h.mu.Unlock()
}
