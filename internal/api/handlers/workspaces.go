// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/workspace"
)

// WorkspaceHandler serves workspaces, worktrees, tab groups and tabs.
type WorkspaceHandler struct {
	mgr *workspace.Manager
}

// NewWorkspaceHandler creates a workspace handler.
func NewWorkspaceHandler(mgr *workspace.Manager) *WorkspaceHandler {
	return &WorkspaceHandler{mgr: mgr}
}

// List returns every workspace.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.mgr.ListWorkspaces())
}

// Create adds a workspace.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in workspace.CreateWorkspaceInput
	if !decodeOrFail(w, r, &in) {
		return
	}
	ws, err := h.mgr.CreateWorkspace(r.Context(), in)
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ws)
}

// Get returns one workspace.
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, err := h.mgr.GetWorkspace(mux.Vars(r)["id"])
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// Update renames a workspace.
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name *string `json:"name"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	ws, err := h.mgr.UpdateWorkspace(r.Context(), workspace.UpdateWorkspaceInput{ID: mux.Vars(r)["id"], Name: body.Name})
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// Delete removes a workspace. ?removeWorktrees=true also removes its git
// worktrees from disk.
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	remove, _ := strconv.ParseBool(r.URL.Query().Get("removeWorktrees"))
	if err := h.mgr.DeleteWorkspace(r.Context(), mux.Vars(r)["id"], remove); err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LastOpened returns the last opened workspace, or null.
func (h *WorkspaceHandler) LastOpened(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.mgr.GetLastOpened())
}

// Open opens the repository at {"path": ...}.
func (h *WorkspaceHandler) Open(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	if body.Path == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "path is required")
		return
	}
	res, err := h.mgr.OpenRepository(r.Context(), body.Path)
	if err != nil {
		WriteFailure(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, res)
}

// Scan imports worktrees git knows about but the workspace does not.
func (h *WorkspaceHandler) Scan(w http.ResponseWriter, r *http.Request) {
	imported, err := h.mgr.ScanAndImportWorktrees(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, imported)
}

// GetSelection returns a workspace's active selection.
func (h *WorkspaceHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := h.mgr.GetActiveSelection(mux.Vars(r)["id"])
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sel)
}

// SetSelection replaces a workspace's active selection.
func (h *WorkspaceHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var sel session.Selection
	if !decodeOrFail(w, r, &sel) {
		return
	}
	if err := h.mgr.SetActiveSelection(r.Context(), mux.Vars(r)["id"], sel); err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sel)
}

type idBody struct {
	ID *string `json:"id"`
}

// GetActiveWorkspace returns {"id": ...} of the active workspace.
func (h *WorkspaceHandler) GetActiveWorkspace(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, idBody{ID: h.mgr.GetActiveWorkspaceID()})
}

// SetActiveWorkspace sets or clears (null) the active workspace.
func (h *WorkspaceHandler) SetActiveWorkspace(w http.ResponseWriter, r *http.Request) {
	var body idBody
	if !decodeOrFail(w, r, &body) {
		return
	}
	if err := h.mgr.SetActiveWorkspaceID(r.Context(), body.ID); err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, body)
}

// SetLastOpened sets or clears (null) the last opened workspace.
func (h *WorkspaceHandler) SetLastOpened(w http.ResponseWriter, r *http.Request) {
	var body idBody
	if !decodeOrFail(w, r, &body) {
		return
	}
	if err := h.mgr.SetLastOpened(r.Context(), body.ID); err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, body)
}
