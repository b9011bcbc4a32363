// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/session"
	"github.com/wingedpig/arbor/internal/worktree"
)

// fakeGit is an in-memory worktree provider.
type fakeGit struct {
	mu        sync.Mutex
	repos     map[string]bool
	branch    worktree.BranchInfo
	branchErr error
	worktrees []worktree.WorktreeInfo
	listErr   error
	addErr    error
	removeErr error
	added     []string
	removed   []string
}

func (g *fakeGit) IsRepo(ctx context.Context, path string) bool {
	return g.repos[path]
}

func (g *fakeGit) BranchInfo(ctx context.Context, path string) (worktree.BranchInfo, error) {
	return g.branch, g.branchErr
}

func (g *fakeGit) WorktreeList(ctx context.Context, dir string) ([]worktree.WorktreeInfo, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]worktree.WorktreeInfo(nil), g.worktrees...), nil
}

func (g *fakeGit) AddWorktree(ctx context.Context, repoDir, path, branch string, createBranch bool) error {
	if g.addErr != nil {
		return g.addErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.added = append(g.added, fmt.Sprintf("%s@%s new=%v", branch, path, createBranch))
	return nil
}

func (g *fakeGit) RemoveWorktree(ctx context.Context, repoDir, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removed = append(g.removed, path)
	return g.removeErr
}

type failingStore struct {
	doc *session.Document
}

func (s *failingStore) Load() *session.Document { return s.doc.Clone() }
func (s *failingStore) Write(*session.Document) error {
	return errors.New("disk full")
}

type fixture struct {
	mgr   *Manager
	store *session.Store
	git   *fakeGit
	bus   *events.MemoryBus
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := session.NewStore(filepath.Join(t.TempDir(), "config.json"))
	git := &fakeGit{
		repos:  map[string]bool{"/src/repo": true},
		branch: worktree.BranchInfo{Name: "main"},
	}
	bus := events.NewMemoryBus(events.MemoryBusConfig{})
	t.Cleanup(func() { bus.Close() })

	mgr := NewManager(store, git, bus)
	n := 0
	mgr.newID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return &fixture{mgr: mgr, store: store, git: git, bus: bus, ctx: context.Background()}
}

// checkInvariants verifies selection references, document references and
// order uniqueness over the stored document.
func checkInvariants(t *testing.T, doc *session.Document) {
	t.Helper()
	if id := doc.LastOpenedWorkspaceID; id != nil {
		assert.NotNil(t, doc.Workspace(*id), "lastOpenedWorkspaceId dangles")
	}
	if id := doc.ActiveWorkspaceID; id != nil {
		assert.NotNil(t, doc.Workspace(*id), "activeWorkspaceId dangles")
	}
	for _, ws := range doc.Workspaces {
		for _, wt := range ws.Worktrees {
			for _, g := range wt.TabGroups {
				seen := map[int]bool{}
				for _, tab := range g.Tabs {
					assert.False(t, seen[tab.Order], "duplicate order %d in group %s", tab.Order, g.ID)
					seen[tab.Order] = true
					row, col := session.Cell(tab.Order, g.Cols)
					assert.Equal(t, row, tab.Row)
					assert.Equal(t, col, tab.Col)
					assert.Less(t, tab.Row, g.Rows)
					assert.Less(t, tab.Col, g.Cols)
				}
			}
		}
	}
}

// seed creates workspace id1 with worktree id2, groups and tabs:
//
//	group "left"  (id3): tabs a, b
//	group "right" (id6): tab c
func (f *fixture) seed(t *testing.T) (ws *session.Workspace, wt *session.Worktree, left, right *session.TabGroup, tabs []*session.Tab) {
	t.Helper()
	var err error
	ws, err = f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "repo", RepoPath: "/src/repo", Branch: "main"})
	require.NoError(t, err)
	f.git.worktrees = []worktree.WorktreeInfo{{Path: "/src/repo", Branch: "main"}}
	wt, err = f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID, Branch: "main"})
	require.NoError(t, err)

	left, err = f.mgr.CreateTabGroup(f.ctx, CreateTabGroupInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, Name: "left"})
	require.NoError(t, err)
	for i, name := range []string{"a", "b"} {
		tab, err := f.mgr.CreateTab(f.ctx, CreateTabInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: left.ID, Name: name, Row: 0, Col: i})
		require.NoError(t, err)
		tabs = append(tabs, tab)
	}
	right, err = f.mgr.CreateTabGroup(f.ctx, CreateTabGroupInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, Name: "right"})
	require.NoError(t, err)
	tab, err := f.mgr.CreateTab(f.ctx, CreateTabInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: right.ID, Name: "c"})
	require.NoError(t, err)
	tabs = append(tabs, tab)

	checkInvariants(t, f.store.Load())
	return ws, wt, left, right, tabs
}

func (f *fixture) group(t *testing.T, wsID, wtID, groupID string) session.TabGroup {
	t.Helper()
	doc := f.store.Load()
	g := doc.Workspace(wsID).Worktree(wtID).TabGroup(groupID)
	require.NotNil(t, g)
	return *g
}

func tabNames(g session.TabGroup) []string {
	names := make([]string, len(g.Tabs))
	for i, tab := range g.Tabs {
		names[i] = tab.Name
	}
	return names
}

func TestCreateWorkspace(t *testing.T) {
	f := newFixture(t)

	ws, err := f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "repo", RepoPath: "/src/repo", Branch: "main"})
	require.NoError(t, err)
	assert.Equal(t, "id1", ws.ID)
	assert.Empty(t, ws.Worktrees)
	assert.Nil(t, ws.ActiveWorktreeID)
	assert.Nil(t, ws.ActiveTabGroupID)
	assert.Nil(t, ws.ActiveTabID)
	assert.False(t, ws.CreatedAt.IsZero())

	_, err = f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "dup", RepoPath: "/src/repo"})
	assert.Equal(t, Conflict, KindOf(err))

	_, err = f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{RepoPath: "/x"})
	assert.Equal(t, Validation, KindOf(err))

	assert.Len(t, f.mgr.ListWorkspaces(), 1)
	got, err := f.mgr.GetWorkspace("id1")
	require.NoError(t, err)
	assert.Equal(t, "repo", got.Name)

	_, err = f.mgr.GetWorkspace("missing")
	assert.True(t, IsNotFound(err))
}

func TestUpdateWorkspace(t *testing.T) {
	f := newFixture(t)
	ws, err := f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "repo", RepoPath: "/src/repo"})
	require.NoError(t, err)

	name := "renamed"
	updated, err := f.mgr.UpdateWorkspace(f.ctx, UpdateWorkspaceInput{ID: ws.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.True(t, updated.UpdatedAt.After(ws.UpdatedAt))

	empty := " "
	_, err = f.mgr.UpdateWorkspace(f.ctx, UpdateWorkspaceInput{ID: ws.ID, Name: &empty})
	assert.Equal(t, Validation, KindOf(err))

	_, err = f.mgr.UpdateWorkspace(f.ctx, UpdateWorkspaceInput{ID: "nope", Name: &name})
	assert.Equal(t, NotFound, KindOf(err))
}

func TestCreateWorktree(t *testing.T) {
	f := newFixture(t)
	ws, err := f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "repo", RepoPath: "/src/repo", Branch: "main"})
	require.NoError(t, err)

	t.Run("existing checkout is reused", func(t *testing.T) {
		f.git.worktrees = []worktree.WorktreeInfo{{Path: "/src/repo", Branch: "main"}}
		wt, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID, Branch: "main"})
		require.NoError(t, err)
		assert.Equal(t, "/src/repo", wt.Path)
		assert.NotNil(t, wt.TabGroups)
		assert.Empty(t, f.git.added)
	})

	t.Run("new branch", func(t *testing.T) {
		wt, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID, Branch: "feature/x", CreateBranch: true})
		require.NoError(t, err)
		assert.Equal(t, "/src/repo-worktrees/feature-x", wt.Path)
		assert.Equal(t, []string{"feature/x@/src/repo-worktrees/feature-x new=true"}, f.git.added)
	})

	t.Run("existing branch without checkout", func(t *testing.T) {
		f.git.added = nil
		wt, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID, Branch: "release"})
		require.NoError(t, err)
		assert.Equal(t, "/src/repo-worktrees/release", wt.Path)
		assert.Equal(t, []string{"release@/src/repo-worktrees/release new=false"}, f.git.added)
	})

	t.Run("duplicate branch", func(t *testing.T) {
		_, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID, Branch: "main"})
		assert.Equal(t, Conflict, KindOf(err))
	})

	t.Run("git failure", func(t *testing.T) {
		f.git.addErr = errors.New("fatal: invalid reference")
		defer func() { f.git.addErr = nil }()
		_, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID, Branch: "broken", CreateBranch: true})
		assert.Equal(t, ExternalTool, KindOf(err))
	})

	t.Run("missing workspace", func(t *testing.T) {
		_, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: "nope", Branch: "x"})
		assert.Equal(t, NotFound, KindOf(err))
	})

	t.Run("empty branch", func(t *testing.T) {
		_, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID})
		assert.Equal(t, Validation, KindOf(err))
	})

	got, err := f.mgr.GetWorkspace(ws.ID)
	require.NoError(t, err)
	assert.Len(t, got.Worktrees, 3)
}

func TestCreateTab_GridPlacement(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, _, tabs := f.seed(t)

	assert.Equal(t, session.TabTerminal, tabs[0].Type, "type defaults to terminal")
	g := f.group(t, ws.ID, wt.ID, left.ID)
	assert.Equal(t, 2, g.Cols, "grid grows to fit col 1")
	assert.Equal(t, 1, g.Rows)

	// Outside the grid: both dimensions grow.
	tab, err := f.mgr.CreateTab(f.ctx, CreateTabInput{
		WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: left.ID,
		Name: "d", Type: session.TabEditor, Row: 1, Col: 2,
	})
	require.NoError(t, err)
	g = f.group(t, ws.ID, wt.ID, left.ID)
	assert.Equal(t, 3, g.Cols)
	assert.Equal(t, 2, g.Rows)
	assert.Equal(t, 5, tab.Order)
	assert.Equal(t, 1, tab.Row)
	assert.Equal(t, 2, tab.Col)

	// Occupied cell: next free order.
	tab, err = f.mgr.CreateTab(f.ctx, CreateTabInput{
		WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: left.ID, Name: "e", Row: 0, Col: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tab.Order)
	checkInvariants(t, f.store.Load())

	// Widening the grid leaves existing tabs in their cells.
	grid, err := f.mgr.CreateTabGroup(f.ctx, CreateTabGroupInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, Name: "grid"})
	require.NoError(t, err)
	for _, in := range []struct {
		name     string
		row, col int
	}{{"A", 0, 0}, {"B", 1, 0}, {"C", 0, 1}} {
		_, err := f.mgr.CreateTab(f.ctx, CreateTabInput{
			WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: grid.ID, Name: in.name, Row: in.row, Col: in.col,
		})
		require.NoError(t, err)
	}
	g = f.group(t, ws.ID, wt.ID, grid.ID)
	require.Len(t, g.Tabs, 3)
	assert.Equal(t, 2, g.Cols)
	assert.Equal(t, 2, g.Rows)
	for i, want := range []struct{ order, row, col int }{{0, 0, 0}, {2, 1, 0}, {1, 0, 1}} {
		assert.Equal(t, want.order, g.Tabs[i].Order, g.Tabs[i].Name)
		assert.Equal(t, want.row, g.Tabs[i].Row, g.Tabs[i].Name)
		assert.Equal(t, want.col, g.Tabs[i].Col, g.Tabs[i].Name)
	}
	checkInvariants(t, f.store.Load())

	_, err = f.mgr.CreateTab(f.ctx, CreateTabInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: left.ID, Name: "x", Type: "widget"})
	assert.Equal(t, Validation, KindOf(err))
	_, err = f.mgr.CreateTab(f.ctx, CreateTabInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: left.ID, Name: "x", Row: -1})
	assert.Equal(t, Validation, KindOf(err))
	_, err = f.mgr.CreateTab(f.ctx, CreateTabInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: "nope", Name: "x"})
	assert.Equal(t, NotFound, KindOf(err))
}

func TestReorderTabs(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, _, tabs := f.seed(t)
	ref := TabGroupRef{ws.ID, wt.ID, left.ID}

	require.NoError(t, f.mgr.ReorderTabs(f.ctx, ref, []string{tabs[1].ID, tabs[0].ID}))
	g := f.group(t, ws.ID, wt.ID, left.ID)
	assert.Equal(t, []string{"b", "a"}, tabNames(g))
	assert.Equal(t, 0, g.Tabs[0].Order)
	assert.Equal(t, 1, g.Tabs[1].Order)
	assert.Equal(t, 1, g.Tabs[1].Col)

	before := f.store.Load()
	for _, ids := range [][]string{
		{tabs[0].ID},
		{tabs[0].ID, tabs[0].ID},
		{tabs[0].ID, "stranger"},
		{tabs[0].ID, tabs[1].ID, tabs[2].ID},
	} {
		err := f.mgr.ReorderTabs(f.ctx, ref, ids)
		assert.Equal(t, Validation, KindOf(err), "ids %v", ids)
	}
	assert.Equal(t, before, f.store.Load(), "failed reorder leaves document unchanged")
}

func TestReorderTabGroups(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, right, _ := f.seed(t)
	ref := WorktreeRef{ws.ID, wt.ID}

	require.NoError(t, f.mgr.ReorderTabGroups(f.ctx, ref, []string{right.ID, left.ID}))
	doc := f.store.Load()
	groups := doc.Workspace(ws.ID).Worktree(wt.ID).TabGroups
	assert.Equal(t, "right", groups[0].Name)
	assert.Equal(t, "left", groups[1].Name)

	before := f.store.Load()
	err := f.mgr.ReorderTabGroups(f.ctx, ref, []string{left.ID})
	assert.Equal(t, Validation, KindOf(err))
	assert.Equal(t, before, f.store.Load())
}

func TestMoveTabToGroup(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, right, tabs := f.seed(t)
	require.NoError(t, f.mgr.SetActiveSelection(f.ctx, ws.ID, session.Selection{
		WorktreeID: &wt.ID, TabGroupID: &left.ID, TabID: &tabs[0].ID,
	}))

	require.NoError(t, f.mgr.MoveTabToGroup(f.ctx, MoveTabInput{
		WorkspaceID: ws.ID, WorktreeID: wt.ID, TabID: tabs[0].ID,
		SourceTabGroupID: left.ID, TargetTabGroupID: right.ID, TargetIndex: 0,
	}))
	checkInvariants(t, f.store.Load())

	src := f.group(t, ws.ID, wt.ID, left.ID)
	dst := f.group(t, ws.ID, wt.ID, right.ID)
	assert.Equal(t, []string{"b"}, tabNames(src))
	assert.Equal(t, []string{"a", "c"}, tabNames(dst))
	assert.Equal(t, 0, src.Tabs[0].Order)
	assert.Equal(t, 1, dst.Tabs[1].Order)

	sel, err := f.mgr.GetActiveSelection(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, right.ID, session.StringValue(sel.TabGroupID), "active group follows the active tab")

	// Out-of-range index is clamped to the end.
	require.NoError(t, f.mgr.MoveTabToGroup(f.ctx, MoveTabInput{
		WorkspaceID: ws.ID, WorktreeID: wt.ID, TabID: tabs[1].ID,
		SourceTabGroupID: left.ID, TargetTabGroupID: right.ID, TargetIndex: 99,
	}))
	assert.Equal(t, []string{"a", "c", "b"}, tabNames(f.group(t, ws.ID, wt.ID, right.ID)))
	assert.Empty(t, f.group(t, ws.ID, wt.ID, left.ID).Tabs)
	checkInvariants(t, f.store.Load())

	err = f.mgr.MoveTabToGroup(f.ctx, MoveTabInput{
		WorkspaceID: ws.ID, WorktreeID: wt.ID, TabID: tabs[1].ID,
		SourceTabGroupID: left.ID, TargetTabGroupID: right.ID,
	})
	assert.Equal(t, NotFound, KindOf(err))
}

func TestMoveTabToGroup_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, right, tabs := f.seed(t)

	before := f.store.Load()
	move := func(from, to string, index int) {
		require.NoError(t, f.mgr.MoveTabToGroup(f.ctx, MoveTabInput{
			WorkspaceID: ws.ID, WorktreeID: wt.ID, TabID: tabs[1].ID,
			SourceTabGroupID: from, TargetTabGroupID: to, TargetIndex: index,
		}))
	}
	move(left.ID, right.ID, 1)
	move(right.ID, left.ID, 1)

	after := f.store.Load()
	for i := range after.Workspaces {
		after.Workspaces[i].UpdatedAt = before.Workspaces[i].UpdatedAt
	}
	assert.Equal(t, before, after)
}

func TestMoveTabToGroup_RoundTripSparseGroup(t *testing.T) {
	f := newFixture(t)
	ws, wt, _, right, _ := f.seed(t)

	sparse, err := f.mgr.CreateTabGroup(f.ctx, CreateTabGroupInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, Name: "sparse"})
	require.NoError(t, err)
	tab, err := f.mgr.CreateTab(f.ctx, CreateTabInput{
		WorkspaceID: ws.ID, WorktreeID: wt.ID, TabGroupID: sparse.ID, Name: "corner", Row: 1, Col: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 3, tab.Order)

	roundTrip := func() {
		for _, hop := range [][2]string{{sparse.ID, right.ID}, {right.ID, sparse.ID}} {
			require.NoError(t, f.mgr.MoveTabToGroup(f.ctx, MoveTabInput{
				WorkspaceID: ws.ID, WorktreeID: wt.ID, TabID: tab.ID,
				SourceTabGroupID: hop[0], TargetTabGroupID: hop[1],
			}))
		}
	}

	// The first trip renumbers the sparse group densely.
	roundTrip()
	g := f.group(t, ws.ID, wt.ID, sparse.ID)
	require.Len(t, g.Tabs, 1)
	assert.Equal(t, 0, g.Tabs[0].Order)
	assert.Equal(t, 0, g.Tabs[0].Row)
	assert.Equal(t, 0, g.Tabs[0].Col)
	assert.Equal(t, 2, g.Cols)
	assert.Equal(t, 1, g.Rows)

	// From then on the trip changes nothing.
	before := f.store.Load()
	roundTrip()
	after := f.store.Load()
	for i := range after.Workspaces {
		after.Workspaces[i].UpdatedAt = before.Workspaces[i].UpdatedAt
	}
	assert.Equal(t, before, after)
	checkInvariants(t, after)
}

func TestMoveTabToGroup_SameGroup(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, _, tabs := f.seed(t)

	require.NoError(t, f.mgr.MoveTabToGroup(f.ctx, MoveTabInput{
		WorkspaceID: ws.ID, WorktreeID: wt.ID, TabID: tabs[0].ID,
		SourceTabGroupID: left.ID, TargetTabGroupID: left.ID, TargetIndex: 1,
	}))
	assert.Equal(t, []string{"b", "a"}, tabNames(f.group(t, ws.ID, wt.ID, left.ID)))
}

func TestUpdateTerminalCwd(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, _, tabs := f.seed(t)

	ref := TabRef{ws.ID, wt.ID, left.ID, tabs[0].ID}
	require.NoError(t, f.mgr.UpdateTerminalCwd(f.ctx, ref, "/src/repo/apps/web"))
	assert.Equal(t, "/src/repo/apps/web", f.group(t, ws.ID, wt.ID, left.ID).Tabs[0].Cwd)

	ref.TabID = "missing"
	assert.Equal(t, NotFound, KindOf(f.mgr.UpdateTerminalCwd(f.ctx, ref, "/x")))
}

func TestDeleteWorktree_ClearsSelection(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, _, tabs := f.seed(t)
	require.NoError(t, f.mgr.SetActiveSelection(f.ctx, ws.ID, session.Selection{
		WorktreeID: &wt.ID, TabGroupID: &left.ID, TabID: &tabs[0].ID,
	}))

	require.NoError(t, f.mgr.DeleteWorktree(f.ctx, WorktreeRef{ws.ID, wt.ID}))
	sel, err := f.mgr.GetActiveSelection(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Selection{}, sel)

	got, err := f.mgr.GetWorkspace(ws.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Worktrees)
	assert.Empty(t, f.git.removed, "record deletion leaves the checkout")

	assert.Equal(t, NotFound, KindOf(f.mgr.DeleteWorktree(f.ctx, WorktreeRef{ws.ID, wt.ID})))
}

func TestDeleteTabGroupAndTab_ClearSelection(t *testing.T) {
	f := newFixture(t)
	ws, wt, left, right, tabs := f.seed(t)
	require.NoError(t, f.mgr.SetActiveSelection(f.ctx, ws.ID, session.Selection{
		WorktreeID: &wt.ID, TabGroupID: &right.ID, TabID: &tabs[2].ID,
	}))

	require.NoError(t, f.mgr.DeleteTab(f.ctx, TabRef{ws.ID, wt.ID, right.ID, tabs[2].ID}))
	sel, _ := f.mgr.GetActiveSelection(ws.ID)
	assert.Equal(t, right.ID, session.StringValue(sel.TabGroupID))
	assert.Nil(t, sel.TabID)

	require.NoError(t, f.mgr.DeleteTabGroup(f.ctx, TabGroupRef{ws.ID, wt.ID, right.ID}))
	sel, _ = f.mgr.GetActiveSelection(ws.ID)
	assert.Equal(t, wt.ID, session.StringValue(sel.WorktreeID))
	assert.Nil(t, sel.TabGroupID)
	assert.Nil(t, sel.TabID)

	// Deleting a non-active tab keeps the others in place.
	require.NoError(t, f.mgr.DeleteTab(f.ctx, TabRef{ws.ID, wt.ID, left.ID, tabs[0].ID}))
	g := f.group(t, ws.ID, wt.ID, left.ID)
	require.Len(t, g.Tabs, 1)
	assert.Equal(t, 1, g.Tabs[0].Order)

	assert.Equal(t, NotFound, KindOf(f.mgr.DeleteTabGroup(f.ctx, TabGroupRef{ws.ID, wt.ID, right.ID})))
	assert.Equal(t, NotFound, KindOf(f.mgr.DeleteTab(f.ctx, TabRef{ws.ID, wt.ID, left.ID, tabs[0].ID})))
	checkInvariants(t, f.store.Load())
}

func TestDeleteWorkspace(t *testing.T) {
	f := newFixture(t)
	ws, _, _, _, _ := f.seed(t)
	_, err := f.mgr.CreateWorktree(f.ctx, CreateWorktreeInput{WorkspaceID: ws.ID, Branch: "feat", CreateBranch: true})
	require.NoError(t, err)
	require.NoError(t, f.mgr.SetLastOpened(f.ctx, &ws.ID))
	require.NoError(t, f.mgr.SetActiveWorkspaceID(f.ctx, &ws.ID))

	f.git.removeErr = errors.New("locked")
	require.NoError(t, f.mgr.DeleteWorkspace(f.ctx, ws.ID, true))

	assert.Equal(t, []string{"/src/repo-worktrees/feat"}, f.git.removed, "repository checkout itself is kept")
	assert.Empty(t, f.mgr.ListWorkspaces())
	assert.Nil(t, f.mgr.GetLastOpenedID())
	assert.Nil(t, f.mgr.GetActiveWorkspaceID())
	assert.Nil(t, f.mgr.GetLastOpened())
	checkInvariants(t, f.store.Load())

	assert.Equal(t, NotFound, KindOf(f.mgr.DeleteWorkspace(f.ctx, ws.ID, false)))
}

func TestSelectionAndDocumentFields(t *testing.T) {
	f := newFixture(t)
	ws, err := f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "repo", RepoPath: "/src/repo"})
	require.NoError(t, err)

	// Permissive: ids are not checked against the tree.
	ghost := "ghost"
	require.NoError(t, f.mgr.SetActiveSelection(f.ctx, ws.ID, session.Selection{WorktreeID: &ghost}))
	sel, err := f.mgr.GetActiveSelection(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "ghost", session.StringValue(sel.WorktreeID))

	assert.Equal(t, NotFound, KindOf(f.mgr.SetActiveSelection(f.ctx, "nope", session.Selection{})))
	_, err = f.mgr.GetActiveSelection("nope")
	assert.Equal(t, NotFound, KindOf(err))

	require.NoError(t, f.mgr.SetLastOpened(f.ctx, &ws.ID))
	assert.Equal(t, ws.ID, session.StringValue(f.mgr.GetLastOpenedID()))
	assert.Equal(t, ws.ID, f.mgr.GetLastOpened().ID)
	assert.Equal(t, NotFound, KindOf(f.mgr.SetLastOpened(f.ctx, &ghost)))
	require.NoError(t, f.mgr.SetLastOpened(f.ctx, nil))
	assert.Nil(t, f.mgr.GetLastOpenedID())

	require.NoError(t, f.mgr.SetActiveWorkspaceID(f.ctx, &ws.ID))
	assert.Equal(t, ws.ID, session.StringValue(f.mgr.GetActiveWorkspaceID()))
	assert.Equal(t, NotFound, KindOf(f.mgr.SetActiveWorkspaceID(f.ctx, &ghost)))
}

func TestScanAndImportWorktrees(t *testing.T) {
	f := newFixture(t)
	ws, _, _, _, _ := f.seed(t)
	f.git.worktrees = []worktree.WorktreeInfo{
		{Path: "/src/repo", Branch: "main"},
		{Path: "/src/repo-worktrees/feat", Branch: "feat"},
		{Path: "/src/repo.git", IsBare: true},
		{Path: "/tmp/detached", Detached: true, Commit: "abc"},
	}

	imported, err := f.mgr.ScanAndImportWorktrees(f.ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "feat", imported[0].Branch)

	imported, err = f.mgr.ScanAndImportWorktrees(f.ctx, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, imported, "second scan finds nothing new")

	got, _ := f.mgr.GetWorkspace(ws.ID)
	assert.Len(t, got.Worktrees, 2)

	f.git.listErr = errors.New("not a git repository")
	_, err = f.mgr.ScanAndImportWorktrees(f.ctx, ws.ID)
	assert.Equal(t, ExternalTool, KindOf(err))

	_, err = f.mgr.ScanAndImportWorktrees(f.ctx, "nope")
	assert.Equal(t, NotFound, KindOf(err))
}

func TestOpenRepository(t *testing.T) {
	f := newFixture(t)

	res, err := f.mgr.OpenRepository(f.ctx, "/src/repo/")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "repo", res.Workspace.Name)
	assert.Equal(t, "/src/repo", res.Workspace.RepoPath)
	assert.Equal(t, "main", res.Workspace.Branch)
	assert.Equal(t, res.Workspace.ID, session.StringValue(f.mgr.GetLastOpenedID()))
	assert.Equal(t, res.Workspace.ID, session.StringValue(f.mgr.GetActiveWorkspaceID()))

	again, err := f.mgr.OpenRepository(f.ctx, "/src/repo")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.Workspace.ID, again.Workspace.ID)
	assert.Len(t, f.mgr.ListWorkspaces(), 1)

	_, err = f.mgr.OpenRepository(f.ctx, "/not/a/repo")
	assert.Equal(t, ExternalTool, KindOf(err))
	assert.Contains(t, err.Error(), "not a git repository")

	f.git.branch = worktree.BranchInfo{Detached: true, Commit: "abc"}
	_, err = f.mgr.OpenRepository(f.ctx, "/src/repo")
	assert.Equal(t, ExternalTool, KindOf(err))
	assert.Contains(t, err.Error(), "could not determine current branch")
}

func TestWriteFailureIsIO(t *testing.T) {
	store := &failingStore{doc: session.NewDocument()}
	mgr := NewManager(store, &fakeGit{}, nil)

	_, err := mgr.CreateWorkspace(context.Background(), CreateWorkspaceInput{Name: "r", RepoPath: "/r"})
	assert.Equal(t, IO, KindOf(err))
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, mgr.ListWorkspaces())
}

func TestMutationsPublishEvents(t *testing.T) {
	f := newFixture(t)
	var got []events.Event
	_, err := f.bus.Subscribe(events.WorkspaceChanged, func(ctx context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	ws, err := f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "repo", RepoPath: "/src/repo"})
	require.NoError(t, err)
	_, err = f.mgr.CreateWorkspace(f.ctx, CreateWorkspaceInput{Name: "repo", RepoPath: "/src/repo"})
	require.Error(t, err)

	require.Len(t, got, 1, "failed mutations publish nothing")
	assert.Equal(t, "createWorkspace", got[0].Payload["op"])
	assert.Equal(t, ws.ID, got[0].Payload["workspaceId"])
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	f := newFixture(t)
	f.mgr.newID = func() string { return events.NewID() }
	ws, wt, _, _, _ := f.seed(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.mgr.CreateTabGroup(f.ctx, CreateTabGroupInput{WorkspaceID: ws.ID, WorktreeID: wt.ID, Name: fmt.Sprintf("g%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.mgr.GetWorkspace(ws.ID)
	require.NoError(t, err)
	assert.Len(t, got.Worktrees[0].TabGroups, n+2, "no mutation is lost")

	fresh := session.NewStore(f.store.Path()).Load()
	assert.Len(t, fresh.Workspace(ws.ID).Worktree(wt.ID).TabGroups, n+2)
}
