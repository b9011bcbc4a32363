// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/workspace"
)

func worktreeRef(r *http.Request) workspace.WorktreeRef {
	v := mux.Vars(r)
	return workspace.WorktreeRef{WorkspaceID: v["id"], WorktreeID: v["wt"]}
}

func tabGroupRef(r *http.Request) workspace.TabGroupRef {
	v := mux.Vars(r)
	return workspace.TabGroupRef{WorkspaceID: v["id"], WorktreeID: v["wt"], TabGroupID: v["tg"]}
}

func tabRef(r *http.Request) workspace.TabRef {
	v := mux.Vars(r)
	return workspace.TabRef{WorkspaceID: v["id"], WorktreeID: v["wt"], TabGroupID: v["tg"], TabID: v["tab"]}
}

// CreateWorktree adds a worktree for a branch.
func (h *WorkspaceHandler) CreateWorktree(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Branch       string `json:"branch"`
		CreateBranch bool   `json:"createBranch"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	wt, err := h.mgr.CreateWorktree(r.Context(), workspace.CreateWorktreeInput{
		WorkspaceID:  mux.Vars(r)["id"],
		Branch:       body.Branch,
		CreateBranch: body.CreateBranch,
	})
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, wt)
}

// DeleteWorktree removes a worktree record.
func (h *WorkspaceHandler) DeleteWorktree(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.DeleteWorktree(r.Context(), worktreeRef(r)); err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTabGroup appends a tab group to a worktree.
func (h *WorkspaceHandler) CreateTabGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	ref := worktreeRef(r)
	tg, err := h.mgr.CreateTabGroup(r.Context(), workspace.CreateTabGroupInput{
		WorkspaceID: ref.WorkspaceID,
		WorktreeID:  ref.WorktreeID,
		Name:        body.Name,
	})
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, tg)
}

type orderBody struct {
	IDs []string `json:"ids"`
}

// ReorderTabGroups sets the order of a worktree's tab groups.
func (h *WorkspaceHandler) ReorderTabGroups(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if !decodeOrFail(w, r, &body) {
		return
	}
	if err := h.mgr.ReorderTabGroups(r.Context(), worktreeRef(r), body.IDs); err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTabGroup removes a tab group and its tabs.
func (h *WorkspaceHandler) DeleteTabGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.DeleteTabGroup(r.Context(), tabGroupRef(r)); err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTab adds a tab at a grid cell.
func (h *WorkspaceHandler) CreateTab(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string          `json:"name"`
		Type    session.TabType `json:"type"`
		Command *string         `json:"command"`
		Row     int             `json:"row"`
		Col     int             `json:"col"`
		RowSpan int             `json:"rowSpan"`
		ColSpan int             `json:"colSpan"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	ref := tabGroupRef(r)
	tab, err := h.mgr.CreateTab(r.Context(), workspace.CreateTabInput{
		WorkspaceID: ref.WorkspaceID,
		WorktreeID:  ref.WorktreeID,
		TabGroupID:  ref.TabGroupID,
		Name:        body.Name,
		Type:        body.Type,
		Command:     body.Command,
		Row:         body.Row,
		Col:         body.Col,
		RowSpan:     body.RowSpan,
		ColSpan:     body.ColSpan,
	})
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, tab)
}

// ReorderTabs sets the order of a group's tabs.
func (h *WorkspaceHandler) ReorderTabs(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if !decodeOrFail(w, r, &body) {
		return
	}
	if err := h.mgr.ReorderTabs(r.Context(), tabGroupRef(r), body.IDs); err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveTab moves a tab into another group of the same worktree.
func (h *WorkspaceHandler) MoveTab(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetTabGroupID string `json:"targetTabGroupId"`
		TargetIndex      int    `json:"targetIndex"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	ref := tabRef(r)
	err := h.mgr.MoveTabToGroup(r.Context(), workspace.MoveTabInput{
		WorkspaceID:      ref.WorkspaceID,
		WorktreeID:       ref.WorktreeID,
		TabID:            ref.TabID,
		SourceTabGroupID: ref.TabGroupID,
		TargetTabGroupID: body.TargetTabGroupID,
		TargetIndex:      body.TargetIndex,
	})
	if err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCwd records a terminal tab's working directory.
func (h *WorkspaceHandler) UpdateCwd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cwd string `json:"cwd"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	if err := h.mgr.UpdateTerminalCwd(r.Context(), tabRef(r), body.Cwd); err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTab removes a tab.
func (h *WorkspaceHandler) DeleteTab(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.DeleteTab(r.Context(), tabRef(r)); err != nil {
		WriteFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
