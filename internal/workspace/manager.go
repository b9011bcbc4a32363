// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package workspace implements the operations over the session document:
// workspaces, worktrees, tab groups, tabs and the active selection.
package workspace

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/worktree"
)

// DocumentStore loads and persists the session document.
type DocumentStore interface {
	Load() *session.Document
	Write(doc *session.Document) error
}

// Manager applies mutations to the session document. Every mutation is a
// load, modify, write cycle; cycles are serialized so that concurrent callers
// never lose each other's changes. Reads use the store's snapshot and do not
// wait for writers.
type Manager struct {
	mu    sync.Mutex
	store DocumentStore
	git   worktree.GitExecutor
	bus   events.Bus
	log   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewManager creates a manager. bus may be nil.
func NewManager(store DocumentStore, git worktree.GitExecutor, bus events.Bus) *Manager {
	return &Manager{
		store: store,
		git:   git,
		bus:   bus,
		log:   slog.Default().With("component", "workspace"),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// change describes a committed mutation for the workspace.changed event.
type change struct {
	workspaceID string
	worktreeID  string
}

// update runs fn against a fresh copy of the document and writes the result.
// Nothing is written when fn fails.
func (m *Manager) update(ctx context.Context, op string, fn func(doc *session.Document) (change, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := m.store.Load()
	c, err := fn(doc)
	if err != nil {
		return err
	}
	if err := m.store.Write(doc); err != nil {
		return &Error{Kind: IO, Op: op, Msg: "save session", Err: err}
	}
	m.publish(ctx, op, c)
	return nil
}

func (m *Manager) publish(ctx context.Context, op string, c change) {
	if m.bus == nil {
		return
	}
	err := m.bus.Publish(ctx, events.Event{
		Type:     events.WorkspaceChanged,
		Worktree: c.worktreeID,
		Payload: map[string]any{
			"op":          op,
			"workspaceId": c.workspaceID,
		},
	})
	if err != nil {
		m.log.Debug("publish failed", "op", op, "error", err)
	}
}

// touch bumps the workspace's UpdatedAt.
func (m *Manager) touch(ws *session.Workspace) {
	ws.UpdatedAt = m.now()
}

func findWorkspace(op string, doc *session.Document, id string) (*session.Workspace, error) {
	ws := doc.Workspace(id)
	if ws == nil {
		return nil, notFound(op, "workspace", id)
	}
	return ws, nil
}

// CreateWorkspaceInput holds the fields of a new workspace.
type CreateWorkspaceInput struct {
	Name     string `json:"name"`
	RepoPath string `json:"repoPath"`
	Branch   string `json:"branch"`
}

// CreateWorkspace adds a workspace with no worktrees and an empty selection.
// A repository can be tracked by only one workspace.
func (m *Manager) CreateWorkspace(ctx context.Context, in CreateWorkspaceInput) (*session.Workspace, error) {
	const op = "createWorkspace"
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid(op, "name is required")
	}
	if strings.TrimSpace(in.RepoPath) == "" {
		return nil, invalid(op, "repoPath is required")
	}

	var created session.Workspace
	err := m.update(ctx, op, func(doc *session.Document) (change, error) {
		if existing := doc.WorkspaceByRepo(in.RepoPath); existing != nil {
			return change{}, &Error{Kind: Conflict, Op: op, Msg: "repository " + in.RepoPath + " already has workspace " + existing.ID}
		}
		created = m.newWorkspace(in)
		doc.Workspaces = append(doc.Workspaces, created)
		return change{workspaceID: created.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (m *Manager) newWorkspace(in CreateWorkspaceInput) session.Workspace {
	now := m.now()
	return session.Workspace{
		ID:        m.newID(),
		Name:      in.Name,
		RepoPath:  in.RepoPath,
		Branch:    in.Branch,
		Worktrees: []session.Worktree{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ListWorkspaces returns every workspace.
func (m *Manager) ListWorkspaces() []session.Workspace {
	return m.store.Load().Workspaces
}

// GetWorkspace returns the workspace with the given id.
func (m *Manager) GetWorkspace(id string) (*session.Workspace, error) {
	return findWorkspace("getWorkspace", m.store.Load(), id)
}

// GetLastOpened returns the last opened workspace, or nil.
func (m *Manager) GetLastOpened() *session.Workspace {
	doc := m.store.Load()
	if doc.LastOpenedWorkspaceID == nil {
		return nil
	}
	return doc.Workspace(*doc.LastOpenedWorkspaceID)
}

// UpdateWorkspaceInput holds the editable fields of a workspace. Nil fields
// are left unchanged.
type UpdateWorkspaceInput struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
}

// UpdateWorkspace renames a workspace.
func (m *Manager) UpdateWorkspace(ctx context.Context, in UpdateWorkspaceInput) (*session.Workspace, error) {
	const op = "updateWorkspace"
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, invalid(op, "name cannot be empty")
	}
	var updated session.Workspace
	err := m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, err := findWorkspace(op, doc, in.ID)
		if err != nil {
			return change{}, err
		}
		if in.Name != nil {
			ws.Name = *in.Name
		}
		m.touch(ws)
		updated = *ws
		return change{workspaceID: ws.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteWorkspace removes a workspace and everything it owns. With
// removeWorktrees set, each worktree checkout other than the repository
// itself is removed from disk first; git failures are logged and do not stop
// the deletion.
func (m *Manager) DeleteWorkspace(ctx context.Context, id string, removeWorktrees bool) error {
	const op = "deleteWorkspace"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		idx := -1
		for i := range doc.Workspaces {
			if doc.Workspaces[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return change{}, notFound(op, "workspace", id)
		}

		ws := doc.Workspaces[idx]
		if removeWorktrees {
			for _, wt := range ws.Worktrees {
				if samePath(wt.Path, ws.RepoPath) {
					continue
				}
				if err := m.git.RemoveWorktree(ctx, ws.RepoPath, wt.Path); err != nil {
					m.log.Warn("failed to remove worktree", "workspace", id, "path", wt.Path, "error", err)
				}
			}
		}

		doc.Workspaces = append(doc.Workspaces[:idx], doc.Workspaces[idx+1:]...)
		if session.StringValue(doc.LastOpenedWorkspaceID) == id {
			doc.LastOpenedWorkspaceID = nil
		}
		if session.StringValue(doc.ActiveWorkspaceID) == id {
			doc.ActiveWorkspaceID = nil
		}
		return change{workspaceID: id}, nil
	})
}

// GetActiveSelection returns the workspace's active selection.
func (m *Manager) GetActiveSelection(workspaceID string) (session.Selection, error) {
	ws, err := findWorkspace("getActiveSelection", m.store.Load(), workspaceID)
	if err != nil {
		return session.Selection{}, err
	}
	return ws.Selection(), nil
}

// SetActiveSelection replaces the workspace's active selection. The ids are
// stored as given; they are not checked against the workspace's tree.
func (m *Manager) SetActiveSelection(ctx context.Context, workspaceID string, sel session.Selection) error {
	const op = "setActiveSelection"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		ws, err := findWorkspace(op, doc, workspaceID)
		if err != nil {
			return change{}, err
		}
		ws.SetSelection(sel)
		m.touch(ws)
		return change{workspaceID: ws.ID, worktreeID: session.StringValue(sel.WorktreeID)}, nil
	})
}

// GetLastOpenedID returns lastOpenedWorkspaceId.
func (m *Manager) GetLastOpenedID() *string {
	return m.store.Load().LastOpenedWorkspaceID
}

// SetLastOpened sets lastOpenedWorkspaceId. Nil clears it; otherwise the
// workspace must exist.
func (m *Manager) SetLastOpened(ctx context.Context, id *string) error {
	const op = "setLastOpened"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		if err := checkWorkspaceRef(op, doc, id); err != nil {
			return change{}, err
		}
		doc.LastOpenedWorkspaceID = session.StringPtr(session.StringValue(id))
		return change{workspaceID: session.StringValue(id)}, nil
	})
}

// GetActiveWorkspaceID returns activeWorkspaceId.
func (m *Manager) GetActiveWorkspaceID() *string {
	return m.store.Load().ActiveWorkspaceID
}

// SetActiveWorkspaceID sets activeWorkspaceId. Nil clears it; otherwise the
// workspace must exist.
func (m *Manager) SetActiveWorkspaceID(ctx context.Context, id *string) error {
	const op = "setActiveWorkspaceId"
	return m.update(ctx, op, func(doc *session.Document) (change, error) {
		if err := checkWorkspaceRef(op, doc, id); err != nil {
			return change{}, err
		}
		doc.ActiveWorkspaceID = session.StringPtr(session.StringValue(id))
		return change{workspaceID: session.StringValue(id)}, nil
	})
}

func checkWorkspaceRef(op string, doc *session.Document, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	_, err := findWorkspace(op, doc, *id)
	return err
}
