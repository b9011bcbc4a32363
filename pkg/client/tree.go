// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/http"
	"net/url"
)

func wtPath(wsID, wtID string) string {
	return wsPath(wsID) + "/worktrees/" + url.PathEscape(wtID)
}

func tgPath(wsID, wtID, tgID string) string {
	return wtPath(wsID, wtID) + "/tab-groups/" + url.PathEscape(tgID)
}

func tabPath(wsID, wtID, tgID, tabID string) string {
	return tgPath(wsID, wtID, tgID) + "/tabs/" + url.PathEscape(tabID)
}

// CreateWorktree records a worktree for branch, creating the branch when
// createBranch is set.
func (w *WorkspaceClient) CreateWorktree(ctx context.Context, wsID, branch string, createBranch bool) (*Worktree, error) {
	var out Worktree
	body := map[string]any{"branch": branch, "createBranch": createBranch}
	if err := w.c.send(ctx, http.MethodPost, wsPath(wsID)+"/worktrees", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWorktree removes a worktree record.
func (w *WorkspaceClient) DeleteWorktree(ctx context.Context, wsID, wtID string) error {
	return w.c.send(ctx, http.MethodDelete, wtPath(wsID, wtID), nil, nil)
}

// CreateTabGroup appends an empty tab group.
func (w *WorkspaceClient) CreateTabGroup(ctx context.Context, wsID, wtID, name string) (*TabGroup, error) {
	var out TabGroup
	if err := w.c.send(ctx, http.MethodPost, wtPath(wsID, wtID)+"/tab-groups", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReorderTabGroups sets the tab group order; ids must be a permutation of
// the worktree's tab groups.
func (w *WorkspaceClient) ReorderTabGroups(ctx context.Context, wsID, wtID string, ids []string) error {
	return w.c.send(ctx, http.MethodPut, wtPath(wsID, wtID)+"/tab-groups/order", map[string][]string{"ids": ids}, nil)
}

// DeleteTabGroup removes a tab group.
func (w *WorkspaceClient) DeleteTabGroup(ctx context.Context, wsID, wtID, tgID string) error {
	return w.c.send(ctx, http.MethodDelete, tgPath(wsID, wtID, tgID), nil, nil)
}

// NewTab describes a tab to create.
type NewTab struct {
	Name    string  `json:"name"`
	Type    TabType `json:"type,omitempty"`
	Command *string `json:"command,omitempty"`
	Row     int     `json:"row"`
	Col     int     `json:"col"`
	RowSpan int     `json:"rowSpan,omitempty"`
	ColSpan int     `json:"colSpan,omitempty"`
}

// CreateTab adds a tab to a tab group.
func (w *WorkspaceClient) CreateTab(ctx context.Context, wsID, wtID, tgID string, tab NewTab) (*Tab, error) {
	var out Tab
	if err := w.c.send(ctx, http.MethodPost, tgPath(wsID, wtID, tgID)+"/tabs", tab, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReorderTabs sets the tab order of a group.
func (w *WorkspaceClient) ReorderTabs(ctx context.Context, wsID, wtID, tgID string, ids []string) error {
	return w.c.send(ctx, http.MethodPut, tgPath(wsID, wtID, tgID)+"/tabs/order", map[string][]string{"ids": ids}, nil)
}

// MoveTab moves a tab to index in another group of the same worktree.
func (w *WorkspaceClient) MoveTab(ctx context.Context, wsID, wtID, fromTG, tabID, toTG string, index int) error {
	body := map[string]any{"targetTabGroupId": toTG, "targetIndex": index}
	return w.c.send(ctx, http.MethodPost, tabPath(wsID, wtID, fromTG, tabID)+"/move", body, nil)
}

// SetCwd records a terminal tab's working directory.
func (w *WorkspaceClient) SetCwd(ctx context.Context, wsID, wtID, tgID, tabID, cwd string) error {
	return w.c.send(ctx, http.MethodPut, tabPath(wsID, wtID, tgID, tabID)+"/cwd", map[string]string{"cwd": cwd}, nil)
}

// DeleteTab removes a tab.
func (w *WorkspaceClient) DeleteTab(ctx context.Context, wsID, wtID, tgID, tabID string) error {
	return w.c.send(ctx, http.MethodDelete, tabPath(wsID, wtID, tgID, tabID), nil, nil)
}
