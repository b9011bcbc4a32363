// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"strings"

	"github.com/wingedpig/arbor/internal/session"
)

// WorktreeRef addresses a worktree.
type WorktreeRef struct {
	WorkspaceID string `json:"workspaceId"`
	WorktreeID  string `json:"worktreeId"`
}

// TabGroupRef addresses a tab group.
type TabGroupRef struct {
	WorkspaceID string `json:"workspaceId"`
	WorktreeID  string `json:"worktreeId"`
	TabGroupID  string `json:"tabGroupId"`
}

// TabRef addresses a tab.
type TabRef struct {
	WorkspaceID string `json:"workspaceId"`
	WorktreeID  string `json:"worktreeId"`
	TabGroupID  string `json:"tabGroupId"`
	TabID       string `json:"tabId"`
}

func (r TabRef) group() TabGroupRef {
	return TabGroupRef{WorkspaceID: r.WorkspaceID, WorktreeID: r.WorktreeID, TabGroupID: r.TabGroupID}
}

func findWorktree(op string, doc *session.Document, ref WorktreeRef) (*session.Workspace, *session.Worktree, error) {
	ws, err := findWorkspace(op, doc, ref.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}
	wt := ws.Worktree(ref.WorktreeID)
	if wt == nil {
		return nil, nil, notFound(op, "worktree", ref.WorktreeID)
	}
	return ws, wt, nil
}

func findTabGroup(op string, doc *session.Document, ref TabGroupRef) (*session.Workspace, *session.TabGroup, error) {
	ws, wt, err := findWorktree(op, doc, WorktreeRef{ref.WorkspaceID, ref.WorktreeID})
	if err != nil {
		return nil, nil, err
	}
	g := wt.TabGroup(ref.TabGroupID)
	if g == nil {
		return nil, nil, notFound(op, "tab group", ref.TabGroupID)
	}
	return ws, g, nil
}

// CreateTabGroupInput holds the fields of a new tab group.
type CreateTabGroupInput struct {
	WorkspaceID string `json:"workspaceId"`
	WorktreeID  string `json:"worktreeId"`
	Name        string `json:"name"`
}

// CreateTabGroup appends an empty 1x1 tab group to a worktree.
func (m *Manager) CreateTabGroup(ctx context.Context, in CreateTabGroupInput) (*session.TabGroup, error) {
	const op = "createTabGroup"
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid(op, "name is required")
	}
	var created session.TabGroup
	err := m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, wt, err := findWorktree(op, doc, WorktreeRef{in.WorkspaceID, in.WorktreeID})
		if err != nil {
			return change{}, err
		}
		created = session.TabGroup{
			ID:        m.newID(),
			Name:      in.Name,
			Tabs:      []session.Tab{},
			Rows:      1,
			Cols:      1,
			CreatedAt: m.now(),
		}
		wt.TabGroups = append(wt.TabGroups, created)
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: wt.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateTabInput holds the fields of a new tab.
type CreateTabInput struct {
	WorkspaceID string          `json:"workspaceId"`
	WorktreeID  string          `json:"worktreeId"`
	TabGroupID  string          `json:"tabGroupId"`
	Name        string          `json:"name"`
	Type        session.TabType `json:"type,omitempty"`
	Command     *string         `json:"command,omitempty"`
	Row         int             `json:"row"`
	Col         int             `json:"col"`
	RowSpan     int             `json:"rowSpan,omitempty"`
	ColSpan     int             `json:"colSpan,omitempty"`
}

// CreateTab places a new tab at (Row, Col), growing the grid when the cell is
// outside it. If another tab already holds that cell the new tab takes the
// next free position. Type defaults to terminal.
func (m *Manager) CreateTab(ctx context.Context, in CreateTabInput) (*session.Tab, error) {
	const op = "createTab"
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid(op, "name is required")
	}
	if in.Row < 0 || in.Col < 0 {
		return nil, invalid(op, "row and col must not be negative")
	}
	if in.RowSpan < 0 || in.ColSpan < 0 {
		return nil, invalid(op, "spans must not be negative")
	}
	if in.Type == "" {
		in.Type = session.TabTerminal
	}
	if !in.Type.Valid() {
		return nil, invalid(op, "unknown tab type %q", in.Type)
	}

	var created session.Tab
	err := m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, g, err := findTabGroup(op, doc, TabGroupRef{in.WorkspaceID, in.WorktreeID, in.TabGroupID})
		if err != nil {
			return change{}, err
		}
		g.Grow(in.Row, in.Col)
		tab := session.Tab{
			ID:        m.newID(),
			Name:      in.Name,
			Type:      in.Type,
			Command:   in.Command,
			Order:     g.FreeOrder(session.OrderAt(in.Row, in.Col, g.Cols)),
			RowSpan:   in.RowSpan,
			ColSpan:   in.ColSpan,
			CreatedAt: m.now(),
		}
		g.Tabs = append(g.Tabs, tab)
		g.Layout()
		created = g.Tabs[len(g.Tabs)-1]
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: in.WorktreeID}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ReorderTabs assigns order 0..n-1 to the group's tabs following tabIDs,
// which must name every tab in the group exactly once.
func (m *Manager) ReorderTabs(ctx context.Context, ref TabGroupRef, tabIDs []string) error {
	const op = "reorderTabs"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, g, err := findTabGroup(op, doc, ref)
		if err != nil {
			return change{}, err
		}
		ids := make([]string, len(g.Tabs))
		for i, t := range g.Tabs {
			ids[i] = t.ID
		}
		perm, err := permutation(op, "tab", ids, tabIDs)
		if err != nil {
			return change{}, err
		}
		tabs := make([]session.Tab, len(perm))
		for i, j := range perm {
			tabs[i] = g.Tabs[j]
			tabs[i].Order = i
		}
		g.Tabs = tabs
		g.Fit(len(tabs))
		g.Layout()
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: ref.WorktreeID}, nil
	})
}

// ReorderTabGroups reorders a worktree's tab groups to follow tabGroupIDs,
// which must name every group exactly once.
func (m *Manager) ReorderTabGroups(ctx context.Context, ref WorktreeRef, tabGroupIDs []string) error {
	const op = "reorderTabGroups"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, wt, err := findWorktree(op, doc, ref)
		if err != nil {
			return change{}, err
		}
		ids := make([]string, len(wt.TabGroups))
		for i, g := range wt.TabGroups {
			ids[i] = g.ID
		}
		perm, err := permutation(op, "tab group", ids, tabGroupIDs)
		if err != nil {
			return change{}, err
		}
		groups := make([]session.TabGroup, len(perm))
		for i, j := range perm {
			groups[i] = wt.TabGroups[j]
		}
		wt.TabGroups = groups
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: wt.ID}, nil
	})
}

// permutation maps each of want to its index in have. It fails unless want
// is exactly a rearrangement of have.
func permutation(op, what string, have, want []string) ([]int, error) {
	if len(have) != len(want) {
		return nil, invalid(op, "expected %d %s ids, got %d", len(have), what, len(want))
	}
	index := make(map[string]int, len(have))
	for i, id := range have {
		index[id] = i
	}
	perm := make([]int, len(want))
	seen := make(map[string]bool, len(want))
	for i, id := range want {
		j, ok := index[id]
		if !ok {
			return nil, invalid(op, "%s %q is not in the container", what, id)
		}
		if seen[id] {
			return nil, invalid(op, "%s %q listed twice", what, id)
		}
		seen[id] = true
		perm[i] = j
	}
	return perm, nil
}

// MoveTabInput describes a move of a tab between tab groups of one worktree.
type MoveTabInput struct {
	WorkspaceID      string `json:"workspaceId"`
	WorktreeID       string `json:"worktreeId"`
	TabID            string `json:"tabId"`
	SourceTabGroupID string `json:"sourceTabGroupId"`
	TargetTabGroupID string `json:"targetTabGroupId"`
	TargetIndex      int    `json:"targetIndex"`
}

// MoveTabToGroup removes a tab from its source group and inserts it into the
// target group at TargetIndex (clamped to the group's bounds). Both groups
// are renumbered densely in array order. If the moved tab was the active tab,
// the active tab group follows it.
func (m *Manager) MoveTabToGroup(ctx context.Context, in MoveTabInput) error {
	const op = "moveTabToGroup"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, src, err := findTabGroup(op, doc, TabGroupRef{in.WorkspaceID, in.WorktreeID, in.SourceTabGroupID})
		if err != nil {
			return change{}, err
		}
		_, dst, err := findTabGroup(op, doc, TabGroupRef{in.WorkspaceID, in.WorktreeID, in.TargetTabGroupID})
		if err != nil {
			return change{}, err
		}
		i := src.TabIndex(in.TabID)
		if i < 0 {
			return change{}, notFound(op, "tab", in.TabID)
		}

		tab := src.Tabs[i]
		src.Tabs = append(src.Tabs[:i], src.Tabs[i+1:]...)
		idx := min(max(in.TargetIndex, 0), len(dst.Tabs))
		dst.Tabs = append(dst.Tabs[:idx], append([]session.Tab{tab}, dst.Tabs[idx:]...)...)

		src.Densify()
		dst.Densify()

		if session.StringValue(ws.ActiveTabID) == in.TabID &&
			session.StringValue(ws.ActiveTabGroupID) == in.SourceTabGroupID {
			ws.ActiveTabGroupID = session.StringPtr(in.TargetTabGroupID)
		}
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: in.WorktreeID}, nil
	})
}

// UpdateTerminalCwd records the working directory of a terminal tab.
func (m *Manager) UpdateTerminalCwd(ctx context.Context, ref TabRef, cwd string) error {
	const op = "updateTerminalCwd"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, g, err := findTabGroup(op, doc, ref.group())
		if err != nil {
			return change{}, err
		}
		tab := g.Tab(ref.TabID)
		if tab == nil {
			return change{}, notFound(op, "tab", ref.TabID)
		}
		tab.Cwd = cwd
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: ref.WorktreeID}, nil
	})
}

// DeleteWorktree removes a worktree record and its tab groups. The checkout
// on disk is left alone. If it was the active worktree the whole selection
// is cleared.
func (m *Manager) DeleteWorktree(ctx context.Context, ref WorktreeRef) error {
	const op = "deleteWorktree"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, err := findWorkspace(op, doc, ref.WorkspaceID)
		if err != nil {
			return change{}, err
		}
		i := indexOf(len(ws.Worktrees), func(i int) bool { return ws.Worktrees[i].ID == ref.WorktreeID })
		if i < 0 {
			return change{}, notFound(op, "worktree", ref.WorktreeID)
		}
		ws.Worktrees = append(ws.Worktrees[:i], ws.Worktrees[i+1:]...)
		if session.StringValue(ws.ActiveWorktreeID) == ref.WorktreeID {
			ws.SetSelection(session.Selection{})
		}
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: ref.WorktreeID}, nil
	})
}

// DeleteTabGroup removes a tab group and its tabs. If it was the active
// group, the active group and tab are cleared.
func (m *Manager) DeleteTabGroup(ctx context.Context, ref TabGroupRef) error {
	const op = "deleteTabGroup"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, wt, err := findWorktree(op, doc, WorktreeRef{ref.WorkspaceID, ref.WorktreeID})
		if err != nil {
			return change{}, err
		}
		i := indexOf(len(wt.TabGroups), func(i int) bool { return wt.TabGroups[i].ID == ref.TabGroupID })
		if i < 0 {
			return change{}, notFound(op, "tab group", ref.TabGroupID)
		}
		wt.TabGroups = append(wt.TabGroups[:i], wt.TabGroups[i+1:]...)
		if session.StringValue(ws.ActiveTabGroupID) == ref.TabGroupID {
			ws.ActiveTabGroupID = nil
			ws.ActiveTabID = nil
		}
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: wt.ID}, nil
	})
}

// DeleteTab removes a tab. Remaining tabs keep their positions. If it was
// the active tab, the active tab is cleared.
func (m *Manager) DeleteTab(ctx context.Context, ref TabRef) error {
	const op = "deleteTab"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, g, err := findTabGroup(op, doc, ref.group())
		if err != nil {
			return change{}, err
		}
		i := g.TabIndex(ref.TabID)
		if i < 0 {
			return change{}, notFound(op, "tab", ref.TabID)
		}
		g.Tabs = append(g.Tabs[:i], g.Tabs[i+1:]...)
		if session.StringValue(ws.ActiveTabID) == ref.TabID {
			ws.ActiveTabID = nil
		}
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: ref.WorktreeID}, nil
	})
}

func indexOf(n int, match func(int) bool) int {
	for i := 0; i < n; i++ {
		if match(i) {
			return i
		}
	}
	return -1
}
