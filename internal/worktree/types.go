// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package worktree talks to git about repositories and their worktrees.
package worktree

import (
	"context"
	"path/filepath"
)

// WorktreeInfo describes one entry of `git worktree list`.
type WorktreeInfo struct {
	Path     string
	Commit   string // HEAD sha
	Branch   string
	Detached bool
	IsBare   bool
}

// Name returns the directory name of the worktree.
func (w *WorktreeInfo) Name() string {
	return filepath.Base(w.Path)
}

// BranchInfo describes what a checkout has at HEAD.
type BranchInfo struct {
	Name     string
	Detached bool
	Commit   string
}

// GitExecutor is the git worktree provider used by the workspace manager.
type GitExecutor interface {
	// IsRepo reports whether path is inside a git working tree.
	IsRepo(ctx context.Context, path string) bool
	// BranchInfo returns the branch checked out at path.
	BranchInfo(ctx context.Context, path string) (BranchInfo, error)
	// WorktreeList returns every worktree of the repository at dir.
	WorktreeList(ctx context.Context, dir string) ([]WorktreeInfo, error)
	// AddWorktree checks out branch at path, creating the branch first when
	// createBranch is set.
	AddWorktree(ctx context.Context, repoDir, path, branch string, createBranch bool) error
	// RemoveWorktree deletes the worktree at path.
	RemoveWorktree(ctx context.Context, repoDir, path string) error
}
