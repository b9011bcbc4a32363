// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrDetached is returned by CurrentBranch when HEAD is not on a branch.
var ErrDetached = errors.New("HEAD is detached")

// RealGitExecutor runs the git binary.
type RealGitExecutor struct {
	bin string
}

// NewRealGitExecutor creates an executor using git from PATH.
func NewRealGitExecutor() *RealGitExecutor {
	return &RealGitExecutor{bin: "git"}
}

// IsRepo reports whether path is inside a git working tree.
func (e *RealGitExecutor) IsRepo(ctx context.Context, path string) bool {
	out, err := e.run(ctx, path, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// WorktreeList returns the worktrees of the repository at dir.
// Uses --porcelain so paths with spaces parse reliably.
func (e *RealGitExecutor) WorktreeList(ctx context.Context, dir string) ([]WorktreeInfo, error) {
	out, err := e.run(ctx, dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParseWorktreeListPorcelain(out), nil
}

// BranchInfo returns the current branch for a path.
func (e *RealGitExecutor) BranchInfo(ctx context.Context, path string) (BranchInfo, error) {
	out, err := e.run(ctx, path, "branch", "--show-current")
	if err != nil {
		return BranchInfo{}, err
	}
	info := ParseBranchInfo(out)
	if info.Name == "" && !info.Detached {
		// --show-current prints nothing on a detached HEAD.
		commit, err := e.run(ctx, path, "rev-parse", "--short", "HEAD")
		if err != nil {
			return BranchInfo{}, err
		}
		return BranchInfo{Detached: true, Commit: strings.TrimSpace(commit)}, nil
	}
	return info, nil
}

// AddWorktree runs `git worktree add`.
func (e *RealGitExecutor) AddWorktree(ctx context.Context, repoDir, path, branch string, createBranch bool) error {
	args := []string{"worktree", "add"}
	if createBranch {
		args = append(args, "-b", branch, path)
	} else {
		args = append(args, path, branch)
	}
	if _, err := e.run(ctx, repoDir, args...); err != nil {
		return fmt.Errorf("failed to create worktree: %w", err)
	}
	return nil
}

// RemoveWorktree runs `git worktree remove --force`.
func (e *RealGitExecutor) RemoveWorktree(ctx context.Context, repoDir, path string) error {
	if _, err := e.run(ctx, repoDir, "worktree", "remove", "--force", path); err != nil {
		return fmt.Errorf("failed to remove worktree: %w", err)
	}
	return nil
}

func (e *RealGitExecutor) run(ctx context.Context, dir string, args ...string) (string, error) {
	sub := args[0]
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, e.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %s: %w", sub, msg, err)
		}
		return "", err
	}
	return stdout.String(), nil
}

// CurrentBranch returns the branch checked out at path.
func CurrentBranch(ctx context.Context, git GitExecutor, path string) (string, error) {
	info, err := git.BranchInfo(ctx, path)
	if err != nil {
		return "", err
	}
	if info.Detached || info.Name == "" {
		return "", ErrDetached
	}
	return info.Name, nil
}

// WorktreePath returns where a new worktree for branch is created:
// a sibling directory "<repo>-worktrees" of the repository, with slashes
// in the branch name replaced by dashes.
func WorktreePath(repoPath, branch string) string {
	repoPath = filepath.Clean(repoPath)
	dir := filepath.Join(filepath.Dir(repoPath), filepath.Base(repoPath)+"-worktrees")
	return filepath.Join(dir, strings.ReplaceAll(branch, "/", "-"))
}

// ParseWorktreeListPorcelain parses the output of `git worktree list --porcelain`.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc1234...
//	branch refs/heads/main
//
//	worktree /path/to/bare
//	bare
func ParseWorktreeListPorcelain(output string) []WorktreeInfo {
	result := []WorktreeInfo{}
	for _, block := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n\n") {
		if info := parseWorktreeBlock(block); info.Path != "" {
			result = append(result, info)
		}
	}
	return result
}

func parseWorktreeBlock(block string) WorktreeInfo {
	var info WorktreeInfo
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "worktree "):
			info.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			info.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			info.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "bare":
			info.IsBare = true
		case line == "detached":
			info.Detached = true
		}
	}
	return info
}

// ParseBranchInfo parses the output of `git branch --show-current`.
func ParseBranchInfo(output string) BranchInfo {
	output = strings.TrimSpace(output)
	if strings.HasPrefix(output, "(HEAD detached at ") {
		commit := strings.TrimSuffix(strings.TrimPrefix(output, "(HEAD detached at "), ")")
		return BranchInfo{Detached: true, Commit: commit}
	}
	return BranchInfo{Name: output}
}
