// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/worktree"
)

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// CreateWorktreeInput holds the fields of a new worktree.
type CreateWorktreeInput struct {
	WorkspaceID  string `json:"workspaceId"`
	Branch       string `json:"branch"`
	CreateBranch bool   `json:"createBranch,omitempty"`
}

// CreateWorktree records a worktree for Branch in the workspace.
//
// With CreateBranch set, a new branch is created and checked out in a new
// worktree next to the repository. Otherwise an existing checkout of the
// branch is reused when git knows of one, and a new worktree is added for it
// when not.
func (m *Manager) CreateWorktree(ctx context.Context, in CreateWorktreeInput) (*session.Worktree, error) {
	const op = "createWorktree"
	branch := strings.TrimSpace(in.Branch)
	if branch == "" {
		return nil, invalid(op, "branch is required")
	}

	var created session.Worktree
	err := m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, err := findWorkspace(op, doc, in.WorkspaceID)
		if err != nil {
			return change{}, err
		}
		for _, wt := range ws.Worktrees {
			if wt.Branch == branch {
				return change{}, &Error{Kind: Conflict, Op: op, Msg: "branch " + branch + " already has worktree " + wt.ID}
			}
		}

		path, err := m.checkout(ctx, op, ws, branch, in.CreateBranch)
		if err != nil {
			return change{}, err
		}
		created = session.Worktree{
			ID:        m.newID(),
			Branch:    branch,
			Path:      path,
			TabGroups: []session.TabGroup{},
			CreatedAt: m.now(),
		}
		ws.Worktrees = append(ws.Worktrees, created)
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: created.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// checkout returns the path of a checkout of branch, creating one if needed.
func (m *Manager) checkout(ctx context.Context, op string, ws *session.Workspace, branch string, createBranch bool) (string, error) {
	path := worktree.WorktreePath(ws.RepoPath, branch)
	if createBranch {
		if err := m.git.AddWorktree(ctx, ws.RepoPath, path, branch, true); err != nil {
			return "", &Error{Kind: ExternalTool, Op: op, Msg: "could not create branch " + branch, Err: err}
		}
		return path, nil
	}

	existing, err := m.git.WorktreeList(ctx, ws.RepoPath)
	if err != nil {
		return "", &Error{Kind: ExternalTool, Op: op, Msg: "could not list worktrees", Err: err}
	}
	for _, info := range existing {
		if info.Branch == branch && !info.IsBare {
			return info.Path, nil
		}
	}
	if err := m.git.AddWorktree(ctx, ws.RepoPath, path, branch, false); err != nil {
		return "", &Error{Kind: ExternalTool, Op: op, Msg: "could not check out branch " + branch, Err: err}
	}
	return path, nil
}

// ScanAndImportWorktrees adds a record for every worktree git reports for
// the workspace's repository that is not already tracked. Existing records
// are never removed. Bare and detached checkouts are skipped.
func (m *Manager) ScanAndImportWorktrees(ctx context.Context, workspaceID string) ([]session.Worktree, error) {
	const op = "scanAndImportWorktrees"
	var imported []session.Worktree
	err := m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, err := findWorkspace(op, doc, workspaceID)
		if err != nil {
			return change{}, err
		}
		infos, err := m.git.WorktreeList(ctx, ws.RepoPath)
		if err != nil {
			return change{}, &Error{Kind: ExternalTool, Op: op, Msg: "could not list worktrees", Err: err}
		}

		for _, info := range infos {
			if info.IsBare || info.Detached || info.Branch == "" || tracked(ws, info.Path) {
				continue
			}
			wt := session.Worktree{
				ID:        m.newID(),
				Branch:    info.Branch,
				Path:      info.Path,
				TabGroups: []session.TabGroup{},
				CreatedAt: m.now(),
			}
			ws.Worktrees = append(ws.Worktrees, wt)
			imported = append(imported, wt)
		}
		if len(imported) > 0 {
			m.touch(ws)
		}
		return change{workspaceID: ws.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	if imported == nil {
		imported = []session.Worktree{}
	}
	return imported, nil
}

func tracked(ws *session.Workspace, path string) bool {
	for _, wt := range ws.Worktrees {
		if samePath(wt.Path, path) {
			return true
		}
	}
	return false
}

// OpenResult is the outcome of OpenRepository.
type OpenResult struct {
	Workspace session.Workspace `json:"workspace"`
	Created   bool              `json:"created"`
}

// OpenRepository opens the repository at path: it must be a git working tree
// on a branch. The workspace tracking it is reused, or a new one named after
// the directory is created. The workspace becomes the last opened and the
// active one.
func (m *Manager) OpenRepository(ctx context.Context, path string) (*OpenResult, error) {
	const op = "openRepository"
	if strings.TrimSpace(path) == "" {
		return nil, invalid(op, "path is required")
	}
	repoPath := filepath.Clean(path)

	if !m.git.IsRepo(ctx, repoPath) {
		return nil, &Error{Kind: ExternalTool, Op: op, Msg: "not a git repository: " + repoPath}
	}
	branch, err := worktree.CurrentBranch(ctx, m.git, repoPath)
	if err != nil {
		msg := "could not determine current branch"
		if errors.Is(err, worktree.ErrDetached) {
			msg += " (HEAD is detached)"
		}
		return nil, &Error{Kind: ExternalTool, Op: op, Msg: msg, Err: err}
	}

	var res OpenResult
	err = m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws := doc.WorkspaceByRepo(repoPath)
		if ws == nil {
			name := filepath.Base(repoPath)
			if name == "" || name == "." || name == string(filepath.Separator) {
				name = "Repository"
			}
			doc.Workspaces = append(doc.Workspaces, m.newWorkspace(CreateWorkspaceInput{
				Name:     name,
				RepoPath: repoPath,
				Branch:   branch,
			}))
			ws = &doc.Workspaces[len(doc.Workspaces)-1]
			res.Created = true
		}
		doc.LastOpenedWorkspaceID = session.StringPtr(ws.ID)
		doc.ActiveWorkspaceID = session.StringPtr(ws.ID)
		res.Workspace = *ws
		return change{workspaceID: ws.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
