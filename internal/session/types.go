// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session holds the persisted workspace document and the store that
// reads, migrates and rewrites it.
package session

import (
	"encoding/json"
	"maps"
	"time"
)

// TabType is the kind of content a tab displays.
type TabType string

const (
	TabTerminal TabType = "terminal"
	TabEditor   TabType = "editor"
	TabBrowser  TabType = "browser"
	TabPreview  TabType = "preview"
)

// Valid reports whether t is a known tab type.
func (t TabType) Valid() bool {
	switch t {
	case TabTerminal, TabEditor, TabBrowser, TabPreview:
		return true
	}
	return false
}

// Tab is one pane in a tab group grid.
// Row and Col are derived from Order and the owning group's Cols.
type Tab struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      TabType   `json:"type"`
	Command   *string   `json:"command,omitempty"`
	Cwd       string    `json:"cwd,omitempty"`
	Order     int       `json:"order"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	RowSpan   int       `json:"rowSpan,omitempty"`
	ColSpan   int       `json:"colSpan,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TabGroup is a named grid of tabs.
type TabGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tabs      []Tab     `json:"tabs"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	CreatedAt time.Time `json:"createdAt"`
}

// Worktree is one checked-out branch of a workspace's repository.
type Worktree struct {
	ID        string     `json:"id"`
	Branch    string     `json:"branch"`
	Path      string     `json:"path"`
	TabGroups []TabGroup `json:"tabGroups"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Workspace is a tracked repository and its worktrees.
type Workspace struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	RepoPath  string     `json:"repoPath"`
	Branch    string     `json:"branch"`
	Worktrees []Worktree `json:"worktrees"`

	// Active selection for this workspace. Nil means nothing selected.
	ActiveWorktreeID *string `json:"activeWorktreeId"`
	ActiveTabGroupID *string `json:"activeTabGroupId"`
	ActiveTabID      *string `json:"activeTabId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Selection is the focused worktree, tab group and tab of a workspace.
type Selection struct {
	WorktreeID *string `json:"worktreeId"`
	TabGroupID *string `json:"tabGroupId"`
	TabID      *string `json:"tabId"`
}

// Selection returns the workspace's active selection triple.
func (w *Workspace) Selection() Selection {
	return Selection{
		WorktreeID: cloneString(w.ActiveWorktreeID),
		TabGroupID: cloneString(w.ActiveTabGroupID),
		TabID:      cloneString(w.ActiveTabID),
	}
}

// SetSelection replaces the workspace's active selection triple.
func (w *Workspace) SetSelection(sel Selection) {
	w.ActiveWorktreeID = cloneString(sel.WorktreeID)
	w.ActiveTabGroupID = cloneString(sel.TabGroupID)
	w.ActiveTabID = cloneString(sel.TabID)
}

// Document is the root of the persisted session file.
type Document struct {
	Workspaces            []Workspace `json:"workspaces"`
	LastOpenedWorkspaceID *string     `json:"lastOpenedWorkspaceId"`
	ActiveWorkspaceID     *string     `json:"activeWorkspaceId"`

	// UnmigratedSelection holds root-level selection values that are not
	// strings, keyed by field name. They are written back unchanged.
	UnmigratedSelection map[string]json.RawMessage `json:"-"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Workspaces: []Workspace{}}
}

// Workspace returns the workspace with the given id, or nil.
func (d *Document) Workspace(id string) *Workspace {
	for i := range d.Workspaces {
		if d.Workspaces[i].ID == id {
			return &d.Workspaces[i]
		}
	}
	return nil
}

// WorkspaceByRepo returns the workspace tracking repoPath, or nil.
func (d *Document) WorkspaceByRepo(repoPath string) *Workspace {
	for i := range d.Workspaces {
		if d.Workspaces[i].RepoPath == repoPath {
			return &d.Workspaces[i]
		}
	}
	return nil
}

// Worktree returns the worktree with the given id, or nil.
func (w *Workspace) Worktree(id string) *Worktree {
	for i := range w.Worktrees {
		if w.Worktrees[i].ID == id {
			return &w.Worktrees[i]
		}
	}
	return nil
}

// TabGroup returns the tab group with the given id, or nil.
func (wt *Worktree) TabGroup(id string) *TabGroup {
	for i := range wt.TabGroups {
		if wt.TabGroups[i].ID == id {
			return &wt.TabGroups[i]
		}
	}
	return nil
}

// TabIndex returns the index of the tab with the given id, or -1.
func (g *TabGroup) TabIndex(id string) int {
	for i := range g.Tabs {
		if g.Tabs[i].ID == id {
			return i
		}
	}
	return -1
}

// Tab returns the tab with the given id, or nil.
func (g *TabGroup) Tab(id string) *Tab {
	if i := g.TabIndex(id); i >= 0 {
		return &g.Tabs[i]
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Workspaces:            make([]Workspace, len(d.Workspaces)),
		LastOpenedWorkspaceID: cloneString(d.LastOpenedWorkspaceID),
		ActiveWorkspaceID:     cloneString(d.ActiveWorkspaceID),
		UnmigratedSelection:   maps.Clone(d.UnmigratedSelection),
	}
	for i, ws := range d.Workspaces {
		out.Workspaces[i] = ws.Clone()
	}
	return out
}

// Clone returns a deep copy of the workspace.
func (w Workspace) Clone() Workspace {
	out := w
	out.ActiveWorktreeID = cloneString(w.ActiveWorktreeID)
	out.ActiveTabGroupID = cloneString(w.ActiveTabGroupID)
	out.ActiveTabID = cloneString(w.ActiveTabID)
	out.Worktrees = make([]Worktree, len(w.Worktrees))
	for i, wt := range w.Worktrees {
		out.Worktrees[i] = wt.Clone()
	}
	return out
}

// Clone returns a deep copy of the worktree.
func (wt Worktree) Clone() Worktree {
	out := wt
	out.TabGroups = make([]TabGroup, len(wt.TabGroups))
	for i, g := range wt.TabGroups {
		out.TabGroups[i] = g.Clone()
	}
	return out
}

// Clone returns a deep copy of the tab group.
func (g TabGroup) Clone() TabGroup {
	out := g
	out.Tabs = make([]Tab, len(g.Tabs))
	for i, t := range g.Tabs {
		t.Command = cloneString(t.Command)
		out.Tabs[i] = t
	}
	return out
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
