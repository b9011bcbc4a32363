// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/ports"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/terminal"
	"github.com/wingedpig/arbor/internal/workspace"
)

// Wire types shared with the daemon.
type (
	Workspace    = session.Workspace
	Worktree     = session.Worktree
	TabGroup     = session.TabGroup
	Tab          = session.Tab
	TabType      = session.TabType
	Selection    = session.Selection
	OpenResult   = workspace.OpenResult
	DetectedPort = ports.DetectedPort
	Event        = events.Event
	TerminalSpec = terminal.Spec
	Terminal     = terminal.Info
)

// Tab types.
const (
	TabTerminal = session.TabTerminal
	TabEditor   = session.TabEditor
	TabBrowser  = session.TabBrowser
	TabPreview  = session.TabPreview
)
