// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process notification bus used for port,
// terminal and session changes.
package events

import (
	"context"
	"time"
)

// Event is an immutable notification record.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Worktree  string         `json:"worktree,omitempty"`
	Payload   map[string]any `json:"payload"`
}

// Handler processes a delivered event.
type Handler func(ctx context.Context, event Event) error

// SubscriptionID identifies a subscription.
type SubscriptionID string

// Filter selects events from history.
type Filter struct {
	Types    []string  // patterns, wildcards allowed
	Worktree string    // worktree id
	Since    time.Time // inclusive lower bound
	Until    time.Time // inclusive upper bound
	Limit    int       // keep the newest N
}

// Bus is a publish/subscribe channel.
//
// Synchronous handlers run on the publisher's goroutine, in subscription
// order, before Publish returns. A synchronous handler must not call back
// into code that waits for the publisher (for example stopping a port
// monitor from inside a port event); use SubscribeAsync for that.
//
// Asynchronous handlers receive events in publish order on a dedicated
// goroutine. When a subscriber's buffer is full the event is dropped for
// that subscriber only.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(pattern string, handler Handler) (SubscriptionID, error)
	SubscribeAsync(pattern string, handler Handler, bufferSize int) (SubscriptionID, error)
	Unsubscribe(id SubscriptionID) error
	History(filter Filter) ([]Event, error)
	Close() error
}

// Event types.
const (
	PortDetected = "port.detected"
	PortClosed   = "port.closed"

	WorkspaceChanged = "workspace.changed"
	SessionReloaded  = "session.reloaded"

	TerminalStarted = "terminal.started"
	TerminalExited  = "terminal.exited"
)
