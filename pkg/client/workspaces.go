// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/http"
	"net/url"
)

// WorkspaceClient manages workspaces and their nested worktrees, tab groups
// and tabs.
type WorkspaceClient struct {
	c *Client
}

func wsPath(id string) string {
	return "/api/v1/workspaces/" + url.PathEscape(id)
}

// List returns every workspace.
func (w *WorkspaceClient) List(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	err := w.c.get(ctx, "/api/v1/workspaces", &out)
	return out, err
}

// Create adds a workspace for repoPath.
func (w *WorkspaceClient) Create(ctx context.Context, name, repoPath, branch string) (*Workspace, error) {
	var out Workspace
	body := map[string]string{"name": name, "repoPath": repoPath, "branch": branch}
	if err := w.c.send(ctx, http.MethodPost, "/api/v1/workspaces", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one workspace.
func (w *WorkspaceClient) Get(ctx context.Context, id string) (*Workspace, error) {
	var out Workspace
	if err := w.c.get(ctx, wsPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rename changes a workspace's name.
func (w *WorkspaceClient) Rename(ctx context.Context, id, name string) (*Workspace, error) {
	var out Workspace
	if err := w.c.send(ctx, http.MethodPatch, wsPath(id), map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a workspace, and its git worktrees when removeWorktrees is
// set.
func (w *WorkspaceClient) Delete(ctx context.Context, id string, removeWorktrees bool) error {
	path := wsPath(id)
	if removeWorktrees {
		path += "?removeWorktrees=true"
	}
	return w.c.send(ctx, http.MethodDelete, path, nil, nil)
}

// LastOpened returns the last opened workspace, or nil.
func (w *WorkspaceClient) LastOpened(ctx context.Context) (*Workspace, error) {
	var out *Workspace
	err := w.c.get(ctx, "/api/v1/workspaces/last-opened", &out)
	return out, err
}

// Open opens the git repository at path, creating its workspace if needed.
func (w *WorkspaceClient) Open(ctx context.Context, path string) (*OpenResult, error) {
	var out OpenResult
	if err := w.c.send(ctx, http.MethodPost, "/api/v1/workspaces/open", map[string]string{"path": path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan imports worktrees git reports for the workspace's repository.
func (w *WorkspaceClient) Scan(ctx context.Context, id string) ([]Worktree, error) {
	var out []Worktree
	err := w.c.send(ctx, http.MethodPost, wsPath(id)+"/scan", nil, &out)
	return out, err
}

// Selection returns a workspace's active selection.
func (w *WorkspaceClient) Selection(ctx context.Context, id string) (*Selection, error) {
	var out Selection
	if err := w.c.get(ctx, wsPath(id)+"/selection", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetSelection replaces a workspace's active selection.
func (w *WorkspaceClient) SetSelection(ctx context.Context, id string, sel Selection) error {
	return w.c.send(ctx, http.MethodPut, wsPath(id)+"/selection", sel, nil)
}

type idBody struct {
	ID *string `json:"id"`
}

// Active returns the active workspace id, or nil.
func (w *WorkspaceClient) Active(ctx context.Context) (*string, error) {
	var out idBody
	err := w.c.get(ctx, "/api/v1/active-workspace", &out)
	return out.ID, err
}

// SetActive sets the active workspace; nil clears it.
func (w *WorkspaceClient) SetActive(ctx context.Context, id *string) error {
	return w.c.send(ctx, http.MethodPut, "/api/v1/active-workspace", idBody{ID: id}, nil)
}

// SetLastOpened sets the last opened workspace; nil clears it.
func (w *WorkspaceClient) SetLastOpened(ctx context.Context, id *string) error {
	return w.c.send(ctx, http.MethodPut, "/api/v1/last-opened", idBody{ID: id}, nil)
}
