// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package terminal starts terminal tab processes on a pty and hands them to
// the port monitor.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/metrics"
	"github.com/wingedpig/arbor/internal/ports"
	"golang.org/x/sync/errgroup"
)

const defaultStopTimeout = 5 * time.Second

var (
	// ErrAlreadyRunning is returned when starting a terminal id that is running.
	ErrAlreadyRunning = errors.New("terminal already running")
	// ErrNotRunning is returned when stopping an unknown terminal.
	ErrNotRunning = errors.New("terminal not running")
)

// PortMonitor receives the processes of started terminals.
type PortMonitor interface {
	StartMonitoring(terminalID, worktreeID string, proc ports.ProcessHandle, cwd string) error
	StopMonitoring(terminalID string) error
}

// Spec describes a terminal to start.
type Spec struct {
	TerminalID string `json:"terminalId"`
	WorktreeID string `json:"worktreeId"`
	Command    string `json:"command,omitempty"` // run with the shell's -c; interactive shell when empty
	Cwd        string `json:"cwd,omitempty"`
}

// Info describes a running terminal.
type Info struct {
	TerminalID string    `json:"terminalId"`
	WorktreeID string    `json:"worktreeId"`
	Pid        int       `json:"pid"`
	Command    string    `json:"command,omitempty"`
	Cwd        string    `json:"cwd,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
}

// Process is a running terminal process. It leads its own process group.
type Process struct {
	spec      Spec
	cmd       *exec.Cmd
	ptmx      *os.File
	startedAt time.Time
	output    *Output

	done     chan struct{}
	exitCode int
}

// Pid returns the process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the process exits and returns its exit code.
func (p *Process) Wait() int {
	<-p.done
	return p.exitCode
}

// Output returns the process's recent output.
func (p *Process) Output() *Output { return p.output }

// Signal sends sig to the process group.
func (p *Process) Signal(sig syscall.Signal) error {
	return syscall.Kill(-p.Pid(), sig)
}

func (p *Process) info() Info {
	return Info{
		TerminalID: p.spec.TerminalID,
		WorktreeID: p.spec.WorktreeID,
		Pid:        p.Pid(),
		Command:    p.spec.Command,
		Cwd:        p.spec.Cwd,
		StartedAt:  p.startedAt,
	}
}

// Launcher starts and stops terminal processes.
type Launcher struct {
	shell       string
	monitor     PortMonitor
	bus         events.Bus
	stopTimeout time.Duration
	log         *slog.Logger

	mu    sync.Mutex
	procs map[string]*Process
}

// NewLauncher creates a launcher running commands with shell. monitor and
// bus may be nil.
func NewLauncher(shell string, monitor PortMonitor, bus events.Bus) *Launcher {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Launcher{
		shell:       shell,
		monitor:     monitor,
		bus:         bus,
		stopTimeout: defaultStopTimeout,
		log:         slog.Default().With("component", "terminal"),
		procs:       make(map[string]*Process),
	}
}

// Start runs spec on a new pty and begins port monitoring for it. The last
// lines of output are kept in the process's Output. When the process exits, monitoring stops and terminal.exited is
// published.
func (l *Launcher) Start(ctx context.Context, spec Spec) (*Process, error) {
	if spec.TerminalID == "" {
		return nil, errors.New("terminal id is required")
	}

	l.mu.Lock()
	if _, ok := l.procs[spec.TerminalID]; ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, spec.TerminalID)
	}

	var cmd *exec.Cmd
	if spec.Command == "" {
		cmd = exec.Command(l.shell)
	} else {
		cmd = exec.Command(l.shell, "-c", spec.Command)
	}
	cmd.Dir = spec.Cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "ARBOR_TERMINAL_ID="+spec.TerminalID)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("start terminal %s: %w", spec.TerminalID, err)
	}
	p := &Process{
		spec:      spec,
		cmd:       cmd,
		ptmx:      ptmx,
		startedAt: time.Now(),
		output:    NewOutput(defaultScrollback),
		done:      make(chan struct{}),
	}
	l.procs[spec.TerminalID] = p
	l.mu.Unlock()
	metrics.ActiveTerminals.Inc()

	go io.Copy(p.output, ptmx)

	// Monitoring starts before the reaper so an early exit still stops it.
	if l.monitor != nil {
		if err := l.monitor.StartMonitoring(spec.TerminalID, spec.WorktreeID, p, spec.Cwd); err != nil {
			l.log.Warn("port monitoring not started", "terminal", spec.TerminalID, "error", err)
		}
	}
	l.log.Info("started terminal", "terminal", spec.TerminalID, "pid", p.Pid(), "command", spec.Command)
	l.publish(ctx, events.TerminalStarted, p, nil)

	go l.wait(p)
	return p, nil
}

func (l *Launcher) wait(p *Process) {
	err := p.cmd.Wait()
	p.exitCode = p.cmd.ProcessState.ExitCode()
	p.ptmx.Close()

	l.mu.Lock()
	current := l.procs[p.spec.TerminalID] == p
	if current {
		delete(l.procs, p.spec.TerminalID)
	}
	l.mu.Unlock()
	metrics.ActiveTerminals.Dec()

	if current && l.monitor != nil {
		if err := l.monitor.StopMonitoring(p.spec.TerminalID); err != nil && !errors.Is(err, ports.ErrNotMonitored) {
			l.log.Warn("stop monitoring failed", "terminal", p.spec.TerminalID, "error", err)
		}
	}
	close(p.done)

	l.log.Info("terminal exited", "terminal", p.spec.TerminalID, "code", p.exitCode, "error", err)
	l.publish(context.Background(), events.TerminalExited, p, map[string]any{"exitCode": p.exitCode})
}

// Stop sends SIGTERM to the terminal's process group and waits for it to
// exit, escalating to SIGKILL after the stop timeout or when ctx ends.
func (l *Launcher) Stop(ctx context.Context, terminalID string) error {
	l.mu.Lock()
	p := l.procs[terminalID]
	l.mu.Unlock()
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotRunning, terminalID)
	}

	p.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(l.stopTimeout):
		p.Signal(syscall.SIGKILL)
		<-p.done
	case <-ctx.Done():
		p.Signal(syscall.SIGKILL)
		<-p.done
	}
	return nil
}

// StopAll stops every running terminal concurrently.
func (l *Launcher) StopAll(ctx context.Context) {
	var g errgroup.Group
	for _, info := range l.List() {
		g.Go(func() error {
			if err := l.Stop(ctx, info.TerminalID); err != nil && !errors.Is(err, ErrNotRunning) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.log.Warn("stop terminals", "error", err)
	}
}

// List returns the running terminals sorted by id.
func (l *Launcher) List() []Info {
	l.mu.Lock()
	out := make([]Info, 0, len(l.procs))
	for _, p := range l.procs {
		out = append(out, p.info())
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TerminalID < out[j].TerminalID })
	return out
}

// Get returns the running process of a terminal.
func (l *Launcher) Get(terminalID string) (*Process, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.procs[terminalID]
	return p, ok
}

func (l *Launcher) publish(ctx context.Context, typ string, p *Process, extra map[string]any) {
	if l.bus == nil {
		return
	}
	payload := map[string]any{
		"terminalId": p.spec.TerminalID,
		"worktreeId": p.spec.WorktreeID,
		"pid":        p.Pid(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := l.bus.Publish(ctx, events.Event{Type: typ, Worktree: p.spec.WorktreeID, Payload: payload}); err != nil {
		l.log.Debug("publish failed", "type", typ, "error", err)
	}
}
