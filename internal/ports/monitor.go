// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ports

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the time between poll cycles of one terminal.
const DefaultInterval = 2 * time.Second

// ErrNotMonitored is returned when stopping a terminal that is not monitored.
var ErrNotMonitored = errors.New("terminal is not monitored")

// Config configures a Monitor.
type Config struct {
	Interval time.Duration // DefaultInterval when zero
	Prober   Prober
	Bus      events.Bus // may be nil
}

// Monitor polls each monitored terminal's process tree for listening ports.
//
// Each terminal has its own polling goroutine; cycles of one terminal never
// overlap. Within a cycle all port.detected events are published before any
// port.closed event. StopMonitoring returns only after the terminal's
// in-flight cycle has finished and its closed events have been published.
//
// Events are published from the polling goroutine. A synchronous bus handler
// must not call StopMonitoring or Cleanup for the terminal whose event it is
// handling; subscribe with SubscribeAsync for that.
type Monitor struct {
	interval time.Duration
	prober   Prober
	bus      events.Bus
	log      *slog.Logger
	now      func() time.Time

	// Lock order: cacheMu, mu, terminal.mu.
	cacheMu sync.Mutex
	cache   map[string][]DetectedPort

	mu        sync.RWMutex
	terminals map[string]*terminal
	seq       uint64
}

type terminal struct {
	id         string
	worktreeID string
	cwd        string
	service    string
	proc       ProcessHandle
	seq        uint64

	mu      sync.Mutex
	ports   map[int]time.Time // port -> first seen
	stopped bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMonitor creates a monitor.
func NewMonitor(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Monitor{
		interval:  cfg.Interval,
		prober:    cfg.Prober,
		bus:       cfg.Bus,
		log:       slog.Default().With("component", "ports"),
		now:       time.Now,
		cache:     make(map[string][]DetectedPort),
		terminals: make(map[string]*terminal),
	}
}

// StartMonitoring begins polling the terminal's process. A terminal that is
// already monitored is stopped first. The first cycle runs before
// StartMonitoring returns; later cycles run every interval until stopped.
func (m *Monitor) StartMonitoring(terminalID, worktreeID string, proc ProcessHandle, cwd string) error {
	if terminalID == "" {
		return errors.New("terminal id is required")
	}
	if proc == nil {
		return errors.New("process handle is required")
	}

	t := &terminal{
		id:         terminalID,
		worktreeID: worktreeID,
		cwd:        cwd,
		service:    InferService(cwd),
		proc:       proc,
		ports:      make(map[int]time.Time),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	old := m.terminals[terminalID]
	m.seq++
	t.seq = m.seq
	m.terminals[terminalID] = t
	metrics.MonitoredTerminals.Set(float64(len(m.terminals)))
	m.mu.Unlock()

	if old != nil {
		m.stopTerminal(old)
	}

	m.log.Info("started monitoring", "terminal", terminalID, "worktree", worktreeID, "pid", proc.Pid())
	m.poll(t)
	go m.run(t)
	return nil
}

func (m *Monitor) run(t *terminal) {
	defer close(t.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			select {
			case <-t.stop:
				return
			default:
			}
			m.poll(t)
		}
	}
}

// poll runs one cycle for t.
func (m *Monitor) poll(t *terminal) {
	metrics.PortPollsTotal.Inc()
	current, err := m.prober.ListeningPorts(context.Background(), t.proc.Pid())
	if err != nil {
		metrics.PortQueryFailuresTotal.Inc()
		m.log.Warn("port query failed, treating as no ports", "terminal", t.id, "error", err)
		current = nil
	}

	now := m.now()
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	seen := make(map[int]bool, len(current))
	var opened []int
	for _, p := range current {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, ok := t.ports[p]; !ok {
			t.ports[p] = now
			opened = append(opened, p)
		}
	}
	var closed []int
	for p := range t.ports {
		if !seen[p] {
			closed = append(closed, p)
			delete(t.ports, p)
		}
	}
	t.mu.Unlock()

	slices.Sort(opened)
	slices.Sort(closed)
	for _, p := range opened {
		m.log.Info("detected port", "terminal", t.id, "port", p, "service", t.service)
		m.publishDetected(t, p, now)
	}
	for _, p := range closed {
		m.log.Info("port closed", "terminal", t.id, "port", p)
		m.publishClosed(t, p)
	}
	m.rebuild(t.worktreeID)
}

// StopMonitoring stops polling the terminal, publishes port.closed for each
// port it still held and drops it from the worktree's ports.
func (m *Monitor) StopMonitoring(terminalID string) error {
	m.mu.RLock()
	t := m.terminals[terminalID]
	m.mu.RUnlock()
	if t == nil {
		return ErrNotMonitored
	}
	m.stopTerminal(t)
	return nil
}

func (m *Monitor) stopTerminal(t *terminal) {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	remaining := slices.Sorted(maps.Keys(t.ports))
	clear(t.ports)
	t.mu.Unlock()

	m.mu.Lock()
	if m.terminals[t.id] == t {
		delete(m.terminals, t.id)
	}
	metrics.MonitoredTerminals.Set(float64(len(m.terminals)))
	m.mu.Unlock()

	for _, p := range remaining {
		m.publishClosed(t, p)
	}
	m.rebuild(t.worktreeID)
	m.log.Info("stopped monitoring", "terminal", t.id)
}

// rebuild recomputes the cached port list of a worktree from its terminals.
// Entries are ordered by detection time, then terminal start order, then port.
func (m *Monitor) rebuild(worktreeID string) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	type entry struct {
		DetectedPort
		seq uint64
	}
	var entries []entry

	m.mu.RLock()
	for _, t := range m.terminals {
		if t.worktreeID != worktreeID {
			continue
		}
		t.mu.Lock()
		for p, at := range t.ports {
			entries = append(entries, entry{
				DetectedPort: DetectedPort{Port: p, Service: t.service, TerminalID: t.id, DetectedAt: at},
				seq:          t.seq,
			})
		}
		t.mu.Unlock()
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.DetectedAt.Equal(b.DetectedAt) {
			return a.DetectedAt.Before(b.DetectedAt)
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return a.Port < b.Port
	})

	if len(entries) == 0 {
		delete(m.cache, worktreeID)
		metrics.DetectedPorts.DeleteLabelValues(worktreeID)
		return
	}
	list := make([]DetectedPort, len(entries))
	for i, e := range entries {
		list[i] = e.DetectedPort
	}
	m.cache[worktreeID] = list
	metrics.DetectedPorts.WithLabelValues(worktreeID).Set(float64(len(list)))
}

// GetDetectedPorts returns the cached ports of a worktree. It does not query
// the OS.
func (m *Monitor) GetDetectedPorts(worktreeID string) []DetectedPort {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	return append([]DetectedPort{}, m.cache[worktreeID]...)
}

// GetDetectedPortsMap maps inferred service name to port for a worktree.
// When several terminals infer the same service, the earliest detected port
// wins. Ports without a service are left out.
func (m *Monitor) GetDetectedPortsMap(worktreeID string) map[string]int {
	out := make(map[string]int)
	for _, p := range m.GetDetectedPorts(worktreeID) {
		if p.Service == "" {
			continue
		}
		if _, ok := out[p.Service]; !ok {
			out[p.Service] = p.Port
		}
	}
	return out
}

// GetMonitoredTerminals returns the ids of monitored terminals, sorted.
func (m *Monitor) GetMonitoredTerminals() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.terminals))
}

// IsMonitored reports whether the terminal is monitored.
func (m *Monitor) IsMonitored(terminalID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.terminals[terminalID]
	return ok
}

// Cleanup stops every monitored terminal, publishing their closed events,
// and clears the cache.
func (m *Monitor) Cleanup() {
	m.mu.RLock()
	all := slices.Collect(maps.Values(m.terminals))
	m.mu.RUnlock()

	var g errgroup.Group
	for _, t := range all {
		g.Go(func() error {
			m.stopTerminal(t)
			return nil
		})
	}
	_ = g.Wait()

	m.cacheMu.Lock()
	clear(m.cache)
	metrics.DetectedPorts.Reset()
	m.cacheMu.Unlock()
	m.log.Info("cleaned up port monitoring", "terminals", len(all))
}

func (m *Monitor) publishDetected(t *terminal, port int, at time.Time) {
	payload := map[string]any{
		"port":       port,
		"terminalId": t.id,
		"worktreeId": t.worktreeID,
		"detectedAt": at,
	}
	if t.service != "" {
		payload["service"] = t.service
	}
	m.publish(events.PortDetected, t.worktreeID, payload)
}

func (m *Monitor) publishClosed(t *terminal, port int) {
	m.publish(events.PortClosed, t.worktreeID, map[string]any{
		"port":       port,
		"terminalId": t.id,
		"worktreeId": t.worktreeID,
	})
}

func (m *Monitor) publish(typ, worktreeID string, payload map[string]any) {
	if m.bus == nil {
		return
	}
	err := m.bus.Publish(context.Background(), events.Event{Type: typ, Worktree: worktreeID, Payload: payload})
	if err != nil {
		m.log.Debug("publish failed", "type", typ, "error", err)
	}
}
