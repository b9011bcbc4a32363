// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ports attributes listening TCP ports to monitored terminal
// processes and keeps a per-worktree view of them.
package ports

import (
	"context"
	"time"
)

// DetectedPort is a listening port owned by a monitored terminal's process
// tree.
type DetectedPort struct {
	Port       int       `json:"port"`
	Service    string    `json:"service,omitempty"`
	TerminalID string    `json:"terminalId"`
	DetectedAt time.Time `json:"detectedAt"`
}

// ProcessHandle identifies the root process of a terminal.
type ProcessHandle interface {
	Pid() int
}

// PID is a ProcessHandle for a known process id.
type PID int

func (p PID) Pid() int { return int(p) }

// Prober finds the TCP ports in LISTEN state held by a process and its
// descendants. "No ports" is not an error; an error means the query could
// not be run.
type Prober interface {
	ListeningPorts(ctx context.Context, pid int) ([]int, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, pid int) ([]int, error)

func (f ProberFunc) ListeningPorts(ctx context.Context, pid int) ([]int, error) {
	return f(ctx, pid)
}
