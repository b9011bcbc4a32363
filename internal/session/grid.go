// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

// Cell returns the grid row and column for an order in a grid with cols columns.
func Cell(order, cols int) (row, col int) {
	if cols < 1 {
		cols = 1
	}
	return order / cols, order % cols
}

// OrderAt returns the order value for a grid cell.
func OrderAt(row, col, cols int) int {
	if cols < 1 {
		cols = 1
	}
	return row*cols + col
}

// Layout recomputes Row and Col of every tab from its Order and grows Rows
// so that every tab fits inside the grid.
func (g *TabGroup) Layout() {
	if g.Cols < 1 {
		g.Cols = 1
	}
	if g.Rows < 1 {
		g.Rows = 1
	}
	if g.Tabs == nil {
		g.Tabs = []Tab{}
	}
	for i := range g.Tabs {
		t := &g.Tabs[i]
		t.Row, t.Col = Cell(t.Order, g.Cols)
		if t.Row+1 > g.Rows {
			g.Rows = t.Row + 1
		}
	}
}

// Densify assigns each tab an order equal to its position in Tabs and
// shrinks or grows Rows to the fewest that hold every tab.
func (g *TabGroup) Densify() {
	for i := range g.Tabs {
		g.Tabs[i].Order = i
	}
	g.Rows = 0
	g.Fit(len(g.Tabs))
	g.Layout()
}

// Fit grows the grid until it has room for n cells. Columns are kept and
// rows are added.
func (g *TabGroup) Fit(n int) {
	if g.Cols < 1 {
		g.Cols = 1
	}
	if g.Rows < 1 {
		g.Rows = 1
	}
	for g.Rows*g.Cols < n {
		g.Rows++
	}
}

// Grow widens the grid so that (row, col) is a valid cell. Existing tabs keep
// their cells; when the width changes their Order is renumbered to match.
func (g *TabGroup) Grow(row, col int) {
	if col+1 > g.Cols {
		oldCols := g.Cols
		g.Cols = col + 1
		for i := range g.Tabs {
			r, c := Cell(g.Tabs[i].Order, oldCols)
			g.Tabs[i].Order = OrderAt(r, c, g.Cols)
		}
	}
	if row+1 > g.Rows {
		g.Rows = row + 1
	}
	g.Layout()
}

// FreeOrder returns the first order >= from that no tab in the group uses.
func (g *TabGroup) FreeOrder(from int) int {
	used := make(map[int]bool, len(g.Tabs))
	for _, t := range g.Tabs {
		used[t.Order] = true
	}
	order := from
	if order < 0 {
		order = 0
	}
	for used[order] {
		order++
	}
	return order
}

// Normalize fills absent collections and recomputes derived grid positions.
// Every document leaving the store has been normalized.
func (d *Document) Normalize() {
	if d.Workspaces == nil {
		d.Workspaces = []Workspace{}
	}
	for i := range d.Workspaces {
		ws := &d.Workspaces[i]
		if ws.Worktrees == nil {
			ws.Worktrees = []Worktree{}
		}
		for j := range ws.Worktrees {
			wt := &ws.Worktrees[j]
			if wt.TabGroups == nil {
				wt.TabGroups = []TabGroup{}
			}
			for k := range wt.TabGroups {
				wt.TabGroups[k].Layout()
			}
		}
	}
}
