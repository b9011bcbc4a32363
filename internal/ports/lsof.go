// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ports

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// ProcessTree enumerates the descendants of a process.
type ProcessTree interface {
	Descendants(pid int) ([]int, error)
}

// PSTree reads the process table with go-ps.
type PSTree struct{}

// Descendants returns the pids of every process below pid, breadth first.
func (PSTree) Descendants(pid int) ([]int, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	children := make(map[int][]int, len(procs))
	for _, p := range procs {
		if p.Pid() != p.PPid() {
			children[p.PPid()] = append(children[p.PPid()], p.Pid())
		}
	}
	return walk(children, pid), nil
}

func walk(children map[int][]int, root int) []int {
	var out []int
	seen := map[int]bool{root: true}
	queue := []int{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, c := range children[pid] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// LsofProber queries listening ports with lsof.
type LsofProber struct {
	Path string      // lsof binary, "lsof" when empty
	Tree ProcessTree // PSTree when nil
	log  *slog.Logger
}

// NewLsofProber creates a prober running the lsof at path.
func NewLsofProber(path string) *LsofProber {
	return &LsofProber{Path: path, Tree: PSTree{}, log: slog.Default().With("component", "ports")}
}

// ListeningPorts runs `lsof -Pan -p <pids> -iTCP -sTCP:LISTEN -Fn` over pid
// and its descendants. lsof exits 1 when nothing matches; that is reported as
// no ports.
func (p *LsofProber) ListeningPorts(ctx context.Context, pid int) ([]int, error) {
	pids := []int{pid}
	tree := p.Tree
	if tree == nil {
		tree = PSTree{}
	}
	if kids, err := tree.Descendants(pid); err == nil {
		pids = append(pids, kids...)
	} else if p.log != nil {
		p.log.Debug("process tree unavailable", "pid", pid, "error", err)
	}

	path := p.Path
	if path == "" {
		path = "lsof"
	}
	list := make([]string, len(pids))
	for i, id := range pids {
		list[i] = strconv.Itoa(id)
	}
	cmd := exec.CommandContext(ctx, path, "-Pan", "-p", strings.Join(list, ","), "-iTCP", "-sTCP:LISTEN", "-Fn")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return ParseLsofOutput(out), nil
		}
		return nil, fmt.Errorf("run %s: %w", path, err)
	}
	return ParseLsofOutput(out), nil
}

// ParseLsofOutput extracts port numbers from lsof -F output. Name lines look
// like "n*:3000", "n127.0.0.1:8080" or "n[::1]:5173". The result is sorted
// and free of duplicates.
func ParseLsofOutput(out []byte) []int {
	var ports []int
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "n") {
			continue
		}
		i := strings.LastIndexByte(line, ':')
		if i < 0 {
			continue
		}
		port, err := strconv.Atoi(line[i+1:])
		if err != nil || port < 1 || port > 65535 {
			continue
		}
		ports = append(ports, port)
	}
	slices.Sort(ports)
	return slices.Compact(ports)
}
