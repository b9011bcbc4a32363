// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCell(t *testing.T) {
	tests := []struct {
		order, cols int
		row, col    int
	}{
		{0, 1, 0, 0},
		{3, 1, 3, 0},
		{0, 2, 0, 0},
		{1, 2, 0, 1},
		{2, 2, 1, 0},
		{5, 3, 1, 2},
		{4, 0, 4, 0}, // zero cols treated as one column
	}
	for _, tt := range tests {
		row, col := Cell(tt.order, tt.cols)
		assert.Equal(t, tt.row, row, "order=%d cols=%d", tt.order, tt.cols)
		assert.Equal(t, tt.col, col, "order=%d cols=%d", tt.order, tt.cols)
		assert.Equal(t, tt.order, OrderAt(row, col, max(tt.cols, 1)))
	}
}

func TestTabGroup_Layout(t *testing.T) {
	g := TabGroup{Cols: 2, Rows: 1, Tabs: []Tab{
		{ID: "a", Order: 0, Row: 9, Col: 9},
		{ID: "b", Order: 3},
	}}
	g.Layout()

	assert.Equal(t, 0, g.Tabs[0].Row)
	assert.Equal(t, 0, g.Tabs[0].Col)
	assert.Equal(t, 1, g.Tabs[1].Row)
	assert.Equal(t, 1, g.Tabs[1].Col)
	assert.Equal(t, 2, g.Rows)
}

func TestTabGroup_Grow(t *testing.T) {
	g := TabGroup{Cols: 1, Rows: 2, Tabs: []Tab{{ID: "a", Order: 0}, {ID: "b", Order: 1}}}
	g.Grow(0, 2)

	assert.Equal(t, 3, g.Cols)
	assert.Equal(t, 2, g.Rows)
	// Cells are kept, order follows the new width.
	assert.Equal(t, 0, g.Tabs[0].Order)
	assert.Equal(t, 3, g.Tabs[1].Order)
	assert.Equal(t, 1, g.Tabs[1].Row)
	assert.Equal(t, 0, g.Tabs[1].Col)

	// Growing rows only leaves orders alone.
	g.Grow(4, 0)
	assert.Equal(t, 5, g.Rows)
	assert.Equal(t, 3, g.Tabs[1].Order)
}

func TestTabGroup_Densify(t *testing.T) {
	g := TabGroup{Cols: 2, Rows: 1, Tabs: []Tab{
		{ID: "a", Order: 7},
		{ID: "b", Order: 2},
		{ID: "c", Order: 4},
	}}
	g.Densify()

	for i, tab := range g.Tabs {
		assert.Equal(t, i, tab.Order)
	}
	assert.Equal(t, 2, g.Rows)
	assert.Equal(t, 1, g.Tabs[2].Row)
	assert.Equal(t, 0, g.Tabs[2].Col)
}

func TestTabGroup_DensifyShrinksRows(t *testing.T) {
	g := TabGroup{Cols: 2, Rows: 4, Tabs: []Tab{{ID: "a", Order: 6}}}
	g.Densify()
	assert.Equal(t, 1, g.Rows)
	assert.Equal(t, 0, g.Tabs[0].Order)

	empty := TabGroup{Cols: 3, Rows: 2}
	empty.Densify()
	assert.Equal(t, 1, empty.Rows)
	assert.NotNil(t, empty.Tabs)
}

func TestTabGroup_FreeOrder(t *testing.T) {
	g := TabGroup{Tabs: []Tab{{Order: 0}, {Order: 1}, {Order: 3}}}
	assert.Equal(t, 2, g.FreeOrder(0))
	assert.Equal(t, 2, g.FreeOrder(2))
	assert.Equal(t, 4, g.FreeOrder(3))
	assert.Equal(t, 2, g.FreeOrder(-5))
}

func TestDocument_Normalize(t *testing.T) {
	doc := &Document{Workspaces: []Workspace{{
		ID: "w",
		Worktrees: []Worktree{{
			ID:        "wt",
			TabGroups: []TabGroup{{ID: "g", Cols: 0, Rows: 0}},
		}, {ID: "wt2"}},
	}}}
	doc.Normalize()

	g := doc.Workspaces[0].Worktrees[0].TabGroups[0]
	assert.Equal(t, 1, g.Cols)
	assert.Equal(t, 1, g.Rows)
	assert.NotNil(t, g.Tabs)
	assert.NotNil(t, doc.Workspaces[0].Worktrees[1].TabGroups)
}

func TestDocument_Clone(t *testing.T) {
	cmd := "npm run dev"
	doc := &Document{
		Workspaces: []Workspace{{
			ID:               "w",
			ActiveWorktreeID: StringPtr("wt"),
			Worktrees: []Worktree{{ID: "wt", TabGroups: []TabGroup{{
				ID: "g", Tabs: []Tab{{ID: "t", Command: &cmd}},
			}}}},
		}},
		ActiveWorkspaceID: StringPtr("w"),
	}
	clone := doc.Clone()
	assert.Equal(t, doc, clone)

	*clone.Workspaces[0].ActiveWorktreeID = "changed"
	clone.Workspaces[0].Worktrees[0].TabGroups[0].Tabs[0].Name = "changed"
	*clone.Workspaces[0].Worktrees[0].TabGroups[0].Tabs[0].Command = "changed"

	assert.Equal(t, "wt", *doc.Workspaces[0].ActiveWorktreeID)
	assert.Empty(t, doc.Workspaces[0].Worktrees[0].TabGroups[0].Tabs[0].Name)
	assert.Equal(t, "npm run dev", cmd)
}
